package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "pos-backend/internal/errors"
)

// Window selects the reporting date range: a named period or an explicit
// start/end pair.
type Window struct {
	Period string
	Start  *time.Time
	End    *time.Time
}

func (w Window) condition(now time.Time) (string, []interface{}, error) {
	if w.Start != nil && w.End != nil {
		return ` AND o.created_at >= ? AND o.created_at <= ?`, []interface{}{*w.Start, *w.End}, nil
	}
	if (w.Start == nil) != (w.End == nil) {
		return "", nil, apperrors.NewValidationError("start and end must be provided together", apperrors.ValidationDetail{
			Field:   "start",
			Message: "start and end must be provided together",
		})
	}

	switch w.Period {
	case "", "all":
		return "", nil, nil
	case "today":
		start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		return ` AND o.created_at >= ?`, []interface{}{start}, nil
	case "7days":
		return ` AND o.created_at >= ?`, []interface{}{now.AddDate(0, 0, -7)}, nil
	case "30days":
		return ` AND o.created_at >= ?`, []interface{}{now.AddDate(0, 0, -30)}, nil
	}
	return "", nil, apperrors.NewValidationError("invalid period", apperrors.ValidationDetail{
		Field:   "period",
		Message: "period must be today, 7days, 30days or all",
	})
}

type ReportItem struct {
	ProductName string          `json:"product_name"`
	Qty         int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type ReportOrder struct {
	ID            string          `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	TableNumber   *string         `json:"table_number"`
	Status        string          `json:"status"`
	PaymentMethod *string         `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	CreatedAt     time.Time       `json:"created_at"`
	Items         []ReportItem    `json:"items"`
}

type TopProduct struct {
	ProductName string `json:"product_name"`
	QtySold     int    `json:"qty_sold"`
}

type MySQLReportRepository struct {
	db *sql.DB
}

func NewMySQLReportRepository(db *sql.DB) *MySQLReportRepository {
	return &MySQLReportRepository{db: db}
}

// Orders lists settled orders in the window, newest first, with their item
// lines attached.
func (r *MySQLReportRepository) Orders(ctx context.Context, window Window) ([]ReportOrder, error) {
	cond, args, err := window.condition(time.Now())
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT o.id, o.order_number, o.customer_name, o.table_number,
		       o.status, o.payment_method, o.total, o.created_at
		FROM orders o
		WHERE o.status = 'PAID'%s
		ORDER BY o.created_at DESC
	`, cond)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("querying report orders", err)
	}
	defer rows.Close()

	var orders []ReportOrder
	index := map[string]int{}
	for rows.Next() {
		var o ReportOrder
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &o.TableNumber,
			&o.Status, &o.PaymentMethod, &o.Total, &o.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("scanning report order", err)
		}
		o.Items = []ReportItem{}
		index[o.ID] = len(orders)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating report orders", err)
	}

	if len(orders) == 0 {
		return orders, nil
	}

	placeholders := make([]string, 0, len(orders))
	itemArgs := make([]interface{}, 0, len(orders))
	for _, o := range orders {
		placeholders = append(placeholders, "?")
		itemArgs = append(itemArgs, o.ID)
	}

	itemsQuery := fmt.Sprintf(`
		SELECT order_id, product_name, qty, price, subtotal
		FROM order_items
		WHERE order_id IN (%s)
	`, strings.Join(placeholders, ", "))

	itemRows, err := r.db.QueryContext(ctx, itemsQuery, itemArgs...)
	if err != nil {
		return nil, apperrors.NewInternalError("querying report items", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var item ReportItem
		if err := itemRows.Scan(&orderID, &item.ProductName, &item.Qty, &item.Price, &item.Subtotal); err != nil {
			return nil, apperrors.NewInternalError("scanning report item", err)
		}
		if i, ok := index[orderID]; ok {
			orders[i].Items = append(orders[i].Items, item)
		}
	}
	if err := itemRows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating report items", err)
	}

	return orders, nil
}

// TopProducts ranks products by quantity sold across settled orders in the
// window.
func (r *MySQLReportRepository) TopProducts(ctx context.Context, window Window, limit int) ([]TopProduct, error) {
	cond, args, err := window.condition(time.Now())
	if err != nil {
		return nil, err
	}

	if limit < 1 {
		limit = 10
	}

	query := fmt.Sprintf(`
		SELECT oi.product_name, SUM(oi.qty) AS qty_sold
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.status = 'PAID'%s
		GROUP BY oi.product_name
		ORDER BY qty_sold DESC
		LIMIT ?
	`, cond)
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("querying top products", err)
	}
	defer rows.Close()

	var products []TopProduct
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductName, &p.QtySold); err != nil {
			return nil, apperrors.NewInternalError("scanning top product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating top products", err)
	}

	return products, nil
}
