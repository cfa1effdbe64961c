package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
	"pos-backend/internal/testutil"
)

const itemColumnsFragment = `SELECT product_id, product_name, price, SUM\(qty\) AS qty, SUM\(subtotal\) AS subtotal`

func orderRows(order *domain.Order) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "order_number", "cashier_id", "customer_name", "table_number", "type_order",
		"status", "subtotal", "discount", "tax", "total", "cash_received", "change_amount",
		"created_at", "updated_at", "paid_at", "payment_method",
	})

	var tableNumber, paymentMethod interface{}
	if order.TableNumber != nil {
		tableNumber = *order.TableNumber
	}
	if order.PaymentMethod != nil {
		paymentMethod = *order.PaymentMethod
	}
	var cashReceived, changeAmount interface{}
	if order.CashReceived != nil {
		cashReceived = order.CashReceived.String()
	}
	if order.ChangeAmount != nil {
		changeAmount = order.ChangeAmount.String()
	}
	var paidAt interface{}
	if order.PaidAt != nil {
		paidAt = *order.PaidAt
	}

	rows.AddRow(
		order.ID, order.OrderNumber, order.CashierID, order.CustomerName, tableNumber, order.TypeOrder,
		order.Status, order.Subtotal.String(), order.Discount.String(), order.Tax.String(), order.Total.String(),
		cashReceived, changeAmount, order.CreatedAt, order.UpdatedAt, paidAt, paymentMethod,
	)
	return rows
}

func TestNewMySQLOrderRepository(t *testing.T) {
	db := &sql.DB{}
	repo := NewMySQLOrderRepository(db)

	assert.NotNil(t, repo)
	assert.Equal(t, db, repo.db)
}

func TestOrderRepository_InsertOrder(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	order := testutil.DraftOrder()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO orders`).
		WithArgs(
			order.ID, order.OrderNumber, order.CashierID, order.CustomerName,
			nil, order.TypeOrder, order.Status,
			order.Subtotal, order.Discount, order.Tax, order.Total,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.InsertOrder(context.Background(), tx, order)
	assert.NoError(t, err)
}

func TestOrderRepository_InsertItems_BulkValues(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	items := []domain.OrderItem{
		{ProductID: "p1", ProductName: "Soto Ayam", Price: decimal.NewFromInt(25000), Qty: 2, Subtotal: decimal.NewFromInt(50000)},
		{ProductID: "p2", ProductName: "Es Teh", Price: decimal.NewFromInt(5000), Qty: 1, Subtotal: decimal.NewFromInt(5000)},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO order_items (order_id, product_id, product_name, price, qty, subtotal) VALUES (?, ?, ?, ?, ?, ?), (?, ?, ?, ?, ?, ?)`)).
		WithArgs(
			"order-1", "p1", "Soto Ayam", items[0].Price, 2, items[0].Subtotal,
			"order-1", "p2", "Es Teh", items[1].Price, 1, items[1].Subtotal,
		).
		WillReturnResult(sqlmock.NewResult(0, 2))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.InsertItems(context.Background(), tx, "order-1", items)
	assert.NoError(t, err)
}

func TestOrderRepository_InsertItems_EmptyIsNoop(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.InsertItems(context.Background(), tx, "order-1", nil)
	assert.NoError(t, err)
}

func TestOrderRepository_GetForUpdate(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status, subtotal FROM orders WHERE id = ? FOR UPDATE`)).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status", "subtotal"}).AddRow("DRAFT", "50000"))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	status, subtotal, err := repo.GetForUpdate(context.Background(), tx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDraft, status)
	assert.True(t, subtotal.Equal(decimal.NewFromInt(50000)))
}

func TestOrderRepository_GetForUpdate_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status, subtotal FROM orders`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	_, _, err = repo.GetForUpdate(context.Background(), tx, "missing")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_MarkPaid(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	received := decimal.NewFromInt(60000)
	change := decimal.NewFromInt(5000)
	settle := Settlement{
		PaymentMethod: domain.PaymentMethodCash,
		Discount:      decimal.Zero,
		Tax:           decimal.NewFromInt(5000),
		Total:         decimal.NewFromInt(55000),
		CashReceived:  &received,
		ChangeAmount:  &change,
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = ? AND status = 'DRAFT'`)).
		WithArgs(settle.PaymentMethod, settle.Discount, settle.Tax, settle.Total, received, change, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.MarkPaid(context.Background(), tx, "order-1", settle)
	assert.NoError(t, err)
}

func TestOrderRepository_MarkPaid_AlreadySettled(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	settle := Settlement{PaymentMethod: domain.PaymentMethodQRIS, Total: decimal.NewFromInt(55000)}

	mock.ExpectBegin()
	// Zero matched rows: the order left DRAFT between read and write.
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = ? AND status = 'DRAFT'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM orders WHERE id = ?`)).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("PAID"))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.MarkPaid(context.Background(), tx, "order-1", settle)
	ise, ok := apperrors.IsInvalidStateError(err)
	require.True(t, ok)
	assert.Equal(t, "order is already paid or canceled", ise.Message)
}

func TestOrderRepository_MarkPaid_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`WHERE id = ? AND status = 'DRAFT'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM orders WHERE id = ?`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.MarkPaid(context.Background(), tx, "missing", Settlement{PaymentMethod: domain.PaymentMethodCash})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_Cancel(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'CANCELED', updated_at = NOW() WHERE id = ? AND status = 'DRAFT'`)).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Cancel(context.Background(), "order-1")
	assert.NoError(t, err)
}

func TestOrderRepository_Cancel_NotDraft(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`SET status = 'CANCELED'`)).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM orders WHERE id = ?`)).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELED"))

	err := repo.Cancel(context.Background(), "order-1")
	_, ok := apperrors.IsInvalidStateError(err)
	assert.True(t, ok)
}

func TestOrderRepository_UpdateStatus_ToPaid(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	method := domain.PaymentMethodCash
	amounts := domain.ComputeAmounts(decimal.NewFromInt(50000), decimal.Zero, true)
	patch := StatusPatch{Status: domain.OrderStatusPaid, PaymentMethod: &method, Amounts: &amounts}

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = ?, updated_at = NOW(), discount = ?, tax = ?, total = ?, paid_at = NOW(), payment_method = ? WHERE id = ?`)).
		WithArgs(domain.OrderStatusPaid, amounts.Discount, amounts.Tax, amounts.Total, method, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "order-1", patch)
	assert.NoError(t, err)
}

func TestOrderRepository_UpdateStatus_ToCanceled(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`)).
		WithArgs(domain.OrderStatusCanceled, "order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), "order-1", StatusPatch{Status: domain.OrderStatusCanceled})
	assert.NoError(t, err)
}

func TestOrderRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectExec(`UPDATE orders SET status`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "missing", StatusPatch{Status: domain.OrderStatusDraft})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_GetByID(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	fixture := testutil.PaidOrder()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = ?`)).
		WithArgs(fixture.ID).
		WillReturnRows(orderRows(fixture))
	mock.ExpectQuery(itemColumnsFragment).
		WithArgs(fixture.ID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "price", "qty", "subtotal"}).
			AddRow("11111111-1111-1111-1111-111111111111", "Soto Ayam", "25000", 2, "50000"))

	order, err := repo.GetByID(context.Background(), fixture.ID)
	require.NoError(t, err)

	assert.Equal(t, fixture.ID, order.ID)
	assert.Equal(t, domain.OrderStatusPaid, order.Status)
	require.NotNil(t, order.PaymentMethod)
	assert.Equal(t, domain.PaymentMethodCash, *order.PaymentMethod)
	require.NotNil(t, order.CashReceived)
	assert.True(t, order.CashReceived.Equal(decimal.NewFromInt(60000)))
	require.NotNil(t, order.PaidAt)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Soto Ayam", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Qty)
	assert.True(t, order.Items[0].Subtotal.Equal(decimal.NewFromInt(50000)))
}

func TestOrderRepository_GetByID_NullableFields(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	fixture := testutil.DraftOrder()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = ?`)).
		WithArgs(fixture.ID).
		WillReturnRows(orderRows(fixture))
	mock.ExpectQuery(itemColumnsFragment).
		WithArgs(fixture.ID).
		WillReturnRows(sqlmock.NewRows([]string{"product_id", "product_name", "price", "qty", "subtotal"}))

	order, err := repo.GetByID(context.Background(), fixture.ID)
	require.NoError(t, err)

	assert.Nil(t, order.TableNumber)
	assert.Nil(t, order.PaymentMethod)
	assert.Nil(t, order.CashReceived)
	assert.Nil(t, order.ChangeAmount)
	assert.Nil(t, order.PaidAt)
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = ?`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	order, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, order)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_GetPaidByID(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	fixture := testutil.PaidOrder()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id = ? AND status = 'PAID'`)).
		WithArgs(fixture.ID).
		WillReturnRows(orderRows(fixture))
	mock.ExpectQuery(`GROUP BY product_name`).
		WithArgs(fixture.ID).
		WillReturnRows(sqlmock.NewRows([]string{"product_name", "qty", "subtotal"}).
			AddRow("Soto Ayam", 2, "50000"))

	order, err := repo.GetPaidByID(context.Background(), fixture.ID)
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, "Soto Ayam", order.Items[0].ProductName)
	assert.Empty(t, order.Items[0].ProductID, "public read omits product ids")
}

func TestOrderRepository_GetPaidByID_DraftIsHidden(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`AND status = 'PAID'`)).
		WithArgs("draft-order").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetPaidByID(context.Background(), "draft-order")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestOrderRepository_List_StatusAndSearch(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)
	fixture := testutil.DraftOrder()

	term := "%soto%"
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders WHERE (order_number LIKE ? OR customer_name LIKE ? OR table_number LIKE ?) AND status = ?`)).
		WithArgs(term, term, term, "DRAFT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY updated_at DESC LIMIT ? OFFSET ?`)).
		WithArgs(term, term, term, "DRAFT", 10, 0).
		WillReturnRows(orderRows(fixture))

	orders, total, err := repo.List(context.Background(), ListFilter{Search: "soto", Status: "DRAFT"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, fixture.ID, orders[0].ID)
}

func TestOrderRepository_List_ClampsLimitAndPage(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	// Limit above the cap is clamped to 100; offset follows the clamp.
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT ? OFFSET ?`)).
		WithArgs(100, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, _, err := repo.List(context.Background(), ListFilter{Page: 2, Limit: 500})
	assert.NoError(t, err)
}

func TestOrderRepository_List_InvalidStatusIgnored(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM orders`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta(`LIMIT ? OFFSET ?`)).
		WithArgs(10, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, total, err := repo.List(context.Background(), ListFilter{Status: "BOGUS"})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestOrderRepository_Delete(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM order_items WHERE order_id = ?`)).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM orders WHERE id = ?`)).
		WithArgs("order-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "order-1")
	assert.NoError(t, err)
}

func TestOrderRepository_Delete_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM order_items WHERE order_id = ?`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM orders WHERE id = ?`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.Delete(context.Background(), "missing")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestDateRangeCondition(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	startOfDay := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	t.Run("Today", func(t *testing.T) {
		cond, args := dateRangeCondition("today", now)
		assert.Equal(t, `created_at >= ?`, cond)
		require.Len(t, args, 1)
		assert.Equal(t, startOfDay, args[0])
	})

	t.Run("Yesterday", func(t *testing.T) {
		cond, args := dateRangeCondition("yesterday", now)
		assert.Equal(t, `created_at >= ? AND created_at < ?`, cond)
		require.Len(t, args, 2)
		assert.Equal(t, startOfDay.AddDate(0, 0, -1), args[0])
		assert.Equal(t, startOfDay, args[1])
	})

	t.Run("SevenDays", func(t *testing.T) {
		cond, args := dateRangeCondition("7days", now)
		assert.Equal(t, `created_at >= ?`, cond)
		require.Len(t, args, 1)
		assert.Equal(t, now.AddDate(0, 0, -7), args[0])
	})

	t.Run("AllAndUnknown", func(t *testing.T) {
		for _, input := range []string{"all", "", "lastweek"} {
			cond, args := dateRangeCondition(input, now)
			assert.Empty(t, cond, "input %q", input)
			assert.Nil(t, args, "input %q", input)
		}
	})
}
