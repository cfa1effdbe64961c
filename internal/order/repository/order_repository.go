package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

// ListFilter narrows the paginated order listing. Zero values mean
// "no filter".
type ListFilter struct {
	Search    string
	Customer  string
	Table     string
	Status    string
	DateRange string
	Start     *time.Time
	End       *time.Time
	Page      int
	Limit     int
}

// Settlement carries the finalized amounts written by the pay transition.
type Settlement struct {
	PaymentMethod string
	Discount      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	CashReceived  *decimal.Decimal
	ChangeAmount  *decimal.Decimal
}

// StatusPatch is the administrative status override. Amounts is set only
// when the new status is PAID.
type StatusPatch struct {
	Status        string
	PaymentMethod *string
	Amounts       *domain.Amounts
}

type MySQLOrderRepository struct {
	db *sql.DB
}

func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{db: db}
}

func (r *MySQLOrderRepository) InsertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, cashier_id, customer_name, table_number, type_order,
			status, subtotal, discount, tax, total, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`

	_, err := tx.ExecContext(ctx, query,
		order.ID, order.OrderNumber, order.CashierID, order.CustomerName,
		order.TableNumber, order.TypeOrder, order.Status,
		order.Subtotal, order.Discount, order.Tax, order.Total,
	)
	if err != nil {
		return apperrors.NewInternalError("inserting order", err)
	}
	return nil
}

func (r *MySQLOrderRepository) InsertItems(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	placeholders := make([]string, 0, len(items))
	args := make([]interface{}, 0, len(items)*6)
	for _, item := range items {
		placeholders = append(placeholders, "(?, ?, ?, ?, ?, ?)")
		args = append(args, orderID, item.ProductID, item.ProductName, item.Price, item.Qty, item.Subtotal)
	}

	query := fmt.Sprintf(
		`INSERT INTO order_items (order_id, product_id, product_name, price, qty, subtotal) VALUES %s`,
		strings.Join(placeholders, ", "),
	)

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("inserting order items", err)
	}
	return nil
}

func (r *MySQLOrderRepository) DeleteItems(ctx context.Context, tx *sql.Tx, orderID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, orderID); err != nil {
		return apperrors.NewInternalError("deleting order items", err)
	}
	return nil
}

// GetForUpdate reads the order's status and subtotal under a row lock so
// the caller's status check and subsequent write cannot race another
// settlement.
func (r *MySQLOrderRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (string, decimal.Decimal, error) {
	var status string
	var subtotal decimal.Decimal

	err := tx.QueryRowContext(ctx, `SELECT status, subtotal FROM orders WHERE id = ? FOR UPDATE`, id).
		Scan(&status, &subtotal)
	if err == sql.ErrNoRows {
		return "", decimal.Zero, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return "", decimal.Zero, apperrors.NewInternalError("querying order for update", err)
	}

	return status, subtotal, nil
}

// UpdateHeader rewrites the DRAFT order's header fields and totals. The
// DRAFT precondition is part of the UPDATE itself.
func (r *MySQLOrderRepository) UpdateHeader(ctx context.Context, tx *sql.Tx, order *domain.Order) error {
	query := `
		UPDATE orders
		SET customer_name = ?, table_number = ?, type_order = ?, cashier_id = ?,
		    subtotal = ?, discount = ?, tax = ?, total = ?, updated_at = NOW()
		WHERE id = ? AND status = 'DRAFT'
	`

	result, err := tx.ExecContext(ctx, query,
		order.CustomerName, order.TableNumber, order.TypeOrder, order.CashierID,
		order.Subtotal, order.Discount, order.Tax, order.Total, order.ID,
	)
	if err != nil {
		return apperrors.NewInternalError("updating order header", err)
	}

	return r.checkDraftWrite(ctx, result, order.ID, "order can only be edited in DRAFT status")
}

// MarkPaid commits the DRAFT -> PAID transition. RowsAffected == 0 with an
// existing row means the order left DRAFT concurrently; the caller sees an
// invalid-state error instead of a silent overwrite.
func (r *MySQLOrderRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id string, settle Settlement) error {
	query := `
		UPDATE orders
		SET status = 'PAID', payment_method = ?, discount = ?, tax = ?, total = ?,
		    cash_received = ?, change_amount = ?, paid_at = NOW(), updated_at = NOW()
		WHERE id = ? AND status = 'DRAFT'
	`

	result, err := tx.ExecContext(ctx, query,
		settle.PaymentMethod, settle.Discount, settle.Tax, settle.Total,
		settle.CashReceived, settle.ChangeAmount, id,
	)
	if err != nil {
		return apperrors.NewInternalError("settling order", err)
	}

	return r.checkDraftWrite(ctx, result, id, "order is already paid or canceled")
}

func (r *MySQLOrderRepository) Cancel(ctx context.Context, id string) error {
	query := `
		UPDATE orders
		SET status = 'CANCELED', updated_at = NOW()
		WHERE id = ? AND status = 'DRAFT'
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.NewInternalError("canceling order", err)
	}

	return r.checkDraftWrite(ctx, result, id, "order can only be canceled in DRAFT status")
}

// UpdateStatus is the administrative status override. Unlike MarkPaid it
// carries no DRAFT precondition; when the target status is PAID the caller
// supplies recomputed amounts.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id string, patch StatusPatch) error {
	fields := []string{"status = ?", "updated_at = NOW()"}
	args := []interface{}{patch.Status}

	if patch.Status == domain.OrderStatusPaid && patch.Amounts != nil {
		fields = append(fields, "discount = ?", "tax = ?", "total = ?", "paid_at = NOW()")
		args = append(args, patch.Amounts.Discount, patch.Amounts.Tax, patch.Amounts.Total)
		if patch.PaymentMethod != nil {
			fields = append(fields, "payment_method = ?")
			args = append(args, *patch.PaymentMethod)
		}
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE orders SET %s WHERE id = ?`, strings.Join(fields, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("updating order status", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}

	return nil
}

const orderColumns = `
	id, order_number, cashier_id, customer_name, table_number, type_order,
	status, subtotal, discount, tax, total, cash_received, change_amount,
	created_at, updated_at, paid_at, payment_method
`

func (r *MySQLOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}

	// Aggregation collapses any residual duplicate rows per product.
	itemsQuery := `
		SELECT product_id, product_name, price, SUM(qty) AS qty, SUM(subtotal) AS subtotal
		FROM order_items
		WHERE order_id = ?
		GROUP BY product_id, product_name, price
	`

	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, apperrors.NewInternalError("querying order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Price, &item.Qty, &item.Subtotal); err != nil {
			return nil, apperrors.NewInternalError("scanning order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating order items", err)
	}

	return order, nil
}

// GetPaidByID is the public receipt read: only settled orders, items
// aggregated by product name.
func (r *MySQLOrderRepository) GetPaidByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := r.getOrder(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = ? AND status = 'PAID'`, id)
	if err != nil {
		return nil, err
	}

	itemsQuery := `
		SELECT product_name, SUM(qty) AS qty, SUM(subtotal) AS subtotal
		FROM order_items
		WHERE order_id = ?
		GROUP BY product_name
	`

	rows, err := r.db.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, apperrors.NewInternalError("querying order items", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductName, &item.Qty, &item.Subtotal); err != nil {
			return nil, apperrors.NewInternalError("scanning order item", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating order items", err)
	}

	return order, nil
}

func (r *MySQLOrderRepository) List(ctx context.Context, filter ListFilter) ([]domain.Order, int, error) {
	conditions := []string{}
	args := []interface{}{}

	if filter.Search != "" {
		term := "%" + filter.Search + "%"
		conditions = append(conditions, `(order_number LIKE ? OR customer_name LIKE ? OR table_number LIKE ?)`)
		args = append(args, term, term, term)
	}
	if filter.Customer != "" {
		conditions = append(conditions, `customer_name LIKE ?`)
		args = append(args, "%"+filter.Customer+"%")
	}
	if filter.Table != "" {
		conditions = append(conditions, `table_number LIKE ?`)
		args = append(args, "%"+filter.Table+"%")
	}
	if domain.ValidOrderStatus(filter.Status) {
		conditions = append(conditions, `status = ?`)
		args = append(args, filter.Status)
	}

	if filter.Start != nil && filter.End != nil {
		conditions = append(conditions, `created_at >= ? AND created_at < ?`)
		args = append(args, *filter.Start, *filter.End)
	} else if cond, condArgs := dateRangeCondition(filter.DateRange, time.Now()); cond != "" {
		conditions = append(conditions, cond)
		args = append(args, condArgs...)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM orders %s`, whereClause)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("counting orders", err)
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM orders %s ORDER BY updated_at DESC LIMIT ? OFFSET ?`,
		orderColumns, whereClause,
	)
	dataArgs := append(append([]interface{}{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataQuery, dataArgs...)
	if err != nil {
		return nil, 0, apperrors.NewInternalError("listing orders", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperrors.NewInternalError("iterating order rows", err)
	}

	return orders, total, nil
}

// Delete removes the order and its items permanently. Admin escape hatch,
// not a state transition.
func (r *MySQLOrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewInternalError("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
		return apperrors.NewInternalError("deleting order items", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewInternalError("deleting order", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewInternalError("committing transaction", err)
	}
	return nil
}

func (r *MySQLOrderRepository) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return r.db.BeginTx(ctx, opts)
}

func (r *MySQLOrderRepository) getOrder(ctx context.Context, query string, id string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, query, id)
	order, err := scanOrder(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
		}
		return nil, err
	}
	return order, nil
}

func (r *MySQLOrderRepository) getStatus(ctx context.Context, id string) (string, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return "", apperrors.NewNotFoundError(fmt.Sprintf("order %s not found", id))
	}
	if err != nil {
		return "", apperrors.NewInternalError("querying order status", err)
	}
	return status, nil
}

// checkDraftWrite maps a zero-row conditional update to not-found or
// invalid-state depending on whether the order exists.
func (r *MySQLOrderRepository) checkDraftWrite(ctx context.Context, result sql.Result, id, conflictMsg string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		if _, err := r.getStatus(ctx, id); err != nil {
			return err
		}
		return apperrors.NewInvalidStateError(conflictMsg)
	}
	return nil
}

func dateRangeCondition(dateRange string, now time.Time) (string, []interface{}) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch dateRange {
	case "today":
		return `created_at >= ?`, []interface{}{startOfDay}
	case "yesterday":
		start := startOfDay.AddDate(0, 0, -1)
		return `created_at >= ? AND created_at < ?`, []interface{}{start, startOfDay}
	case "7days":
		return `created_at >= ?`, []interface{}{now.AddDate(0, 0, -7)}
	case "30days":
		return `created_at >= ?`, []interface{}{now.AddDate(0, 0, -30)}
	}
	return "", nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID, &order.OrderNumber, &order.CashierID, &order.CustomerName,
		&order.TableNumber, &order.TypeOrder, &order.Status,
		&order.Subtotal, &order.Discount, &order.Tax, &order.Total,
		&order.CashReceived, &order.ChangeAmount,
		&order.CreatedAt, &order.UpdatedAt, &order.PaidAt, &order.PaymentMethod,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("scanning order row", err)
	}
	return &order, nil
}
