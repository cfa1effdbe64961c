package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        string
	Code      *string
	Name      string
	Price     decimal.Decimal
	Category  *string
	Type      *string
	Color     string
	Active    bool
	CreatedAt time.Time
}

// Category is a distinct product category with its representative color.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}
