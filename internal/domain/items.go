package domain

import (
	"github.com/google/uuid"

	apperrors "pos-backend/internal/errors"
)

// ItemRequest is a requested order line before product resolution.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// SanitizeItems validates requested lines and merges duplicates by
// product_id, summing quantities. Output order follows first occurrence.
func SanitizeItems(items []ItemRequest) ([]ItemRequest, error) {
	if len(items) == 0 {
		return nil, apperrors.NewValidationError("order must contain at least one item", apperrors.ValidationDetail{
			Field:   "items",
			Message: "items must not be empty",
		})
	}

	merged := make(map[string]int, len(items))
	order := make([]string, 0, len(items))

	for _, item := range items {
		if _, err := uuid.Parse(item.ProductID); err != nil {
			return nil, apperrors.NewValidationError("invalid item", apperrors.ValidationDetail{
				Field:   "items.product_id",
				Message: "product_id must be a valid UUID",
			})
		}
		if item.Qty <= 0 {
			return nil, apperrors.NewValidationError("invalid item", apperrors.ValidationDetail{
				Field:   "items.qty",
				Message: "qty must be a positive integer",
			})
		}

		if _, seen := merged[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		merged[item.ProductID] += item.Qty
	}

	sanitized := make([]ItemRequest, 0, len(order))
	for _, id := range order {
		sanitized = append(sanitized, ItemRequest{ProductID: id, Qty: merged[id]})
	}

	return sanitized, nil
}
