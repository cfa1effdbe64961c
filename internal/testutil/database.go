package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"pos-backend/internal/domain"
)

// NewMockDB returns a sqlmock-backed handle. Expectations are verified and
// the handle closed when the test finishes.
func NewMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}

	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet sqlmock expectations: %v", err)
		}
		db.Close()
	})

	return db, mock
}

// DraftOrder builds a one-line draft order fixture.
func DraftOrder() *domain.Order {
	now := time.Date(2026, 3, 14, 12, 30, 0, 0, time.UTC)

	return &domain.Order{
		ID:           "aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee",
		OrderNumber:  "ORD-01HZXK3V9Q4N8M2P6R7S8T9U0V",
		CashierID:    "99999999-8888-7777-6666-555555555555",
		CustomerName: "Budi",
		TypeOrder:    domain.OrderTypeTakeaway,
		Status:       domain.OrderStatusDraft,
		Subtotal:     decimal.NewFromInt(50000),
		Discount:     decimal.Zero,
		Tax:          decimal.Zero,
		Total:        decimal.NewFromInt(50000),
		CreatedAt:    now,
		UpdatedAt:    now,
		Items: []domain.OrderItem{
			{
				ProductID:   "11111111-1111-1111-1111-111111111111",
				ProductName: "Soto Ayam",
				Price:       decimal.NewFromInt(25000),
				Qty:         2,
				Subtotal:    decimal.NewFromInt(50000),
			},
		},
	}
}

// PaidOrder builds a settled cash order fixture.
func PaidOrder() *domain.Order {
	order := DraftOrder()
	method := domain.PaymentMethodCash
	received := decimal.NewFromInt(60000)
	change := decimal.NewFromInt(5000)
	paidAt := order.UpdatedAt.Add(10 * time.Minute)

	order.Status = domain.OrderStatusPaid
	order.Tax = decimal.NewFromInt(5000)
	order.Total = decimal.NewFromInt(55000)
	order.PaymentMethod = &method
	order.CashReceived = &received
	order.ChangeAmount = &change
	order.PaidAt = &paidAt

	return order
}
