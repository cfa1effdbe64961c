package domain

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	OrderStatusDraft    = "DRAFT"
	OrderStatusPaid     = "PAID"
	OrderStatusCanceled = "CANCELED"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeaway = "takeaway"
)

const (
	PaymentMethodCash     = "cash"
	PaymentMethodDebit    = "debit"
	PaymentMethodCredit   = "credit"
	PaymentMethodQRIS     = "qris"
	PaymentMethodTransfer = "transfer"
)

var validPaymentMethods = map[string]bool{
	PaymentMethodCash:     true,
	PaymentMethodDebit:    true,
	PaymentMethodCredit:   true,
	PaymentMethodQRIS:     true,
	PaymentMethodTransfer: true,
}

// Order is the aggregate root. Monetary fields always satisfy
// total = max(0, subtotal - discount) + tax.
type Order struct {
	ID            string
	OrderNumber   string
	CashierID     string
	CustomerName  string
	TableNumber   *string
	TypeOrder     string
	Status        string
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	PaymentMethod *string
	CashReceived  *decimal.Decimal
	ChangeAmount  *decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PaidAt        *time.Time
	Items         []OrderItem
}

// OrderItem snapshots product name and price at order time so later product
// edits never alter historical orders.
type OrderItem struct {
	ProductID   string
	ProductName string
	Price       decimal.Decimal
	Qty         int
	Subtotal    decimal.Decimal
}

func ValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusDraft, OrderStatusPaid, OrderStatusCanceled:
		return true
	}
	return false
}

func ValidOrderType(typeOrder string) bool {
	return typeOrder == OrderTypeDineIn || typeOrder == OrderTypeTakeaway
}

// NormalizePaymentMethod lowercases and trims the method and returns it with
// ok=true only when it is one of the recognized methods.
func NormalizePaymentMethod(method string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(method))
	if !validPaymentMethods[normalized] {
		return "", false
	}
	return normalized, true
}

// NewOrderNumber returns a display order number. ULIDs are sortable and
// collision-resistant under concurrent creation, unlike the wall-clock
// scheme they replace.
func NewOrderNumber() string {
	return "ORD-" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
