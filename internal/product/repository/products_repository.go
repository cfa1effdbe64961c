package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type MySQLProductRepository struct {
	db *sql.DB
}

func NewMySQLProductRepository(db *sql.DB) *MySQLProductRepository {
	return &MySQLProductRepository{db: db}
}

const productColumns = `id, code, name, price, category, type, color, active, created_at`

// FindActiveByIDs resolves order lines to their price/name snapshots within
// the caller's transaction. Inactive products are treated as missing.
func (r *MySQLProductRepository) FindActiveByIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]domain.Product, error) {
	if len(ids) == 0 {
		return map[string]domain.Product{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := fmt.Sprintf(
		`SELECT %s FROM products WHERE id IN (%s) AND active = 1`,
		productColumns, strings.Join(placeholders, ", "),
	)

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("querying products", err)
	}
	defer rows.Close()

	products := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products[product.ID] = *product
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating product rows", err)
	}

	return products, nil
}

func (r *MySQLProductRepository) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products`, productColumns)
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternalError("listing products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating product rows", err)
	}

	return products, nil
}

func (r *MySQLProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = ?`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}
	if err != nil {
		return nil, err
	}

	return product, nil
}

func (r *MySQLProductRepository) Insert(ctx context.Context, product domain.Product) error {
	query := `
		INSERT INTO products (id, code, name, price, category, type, color, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		product.ID, product.Code, product.Name, product.Price,
		product.Category, product.Type, product.Color, product.Active,
	)
	if err != nil {
		return apperrors.NewInternalError("inserting product", err)
	}
	return nil
}

func (r *MySQLProductRepository) Update(ctx context.Context, product domain.Product) error {
	query := `
		UPDATE products
		SET code = ?, name = ?, price = ?, category = ?, type = ?, color = ?, active = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		product.Code, product.Name, product.Price, product.Category,
		product.Type, product.Color, product.Active, product.ID,
	)
	if err != nil {
		return apperrors.NewInternalError("updating product", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", product.ID))
	}

	return nil
}

// IsReferenced reports whether any order line references the product.
// Referenced products must not be hard-deleted.
func (r *MySQLProductRepository) IsReferenced(ctx context.Context, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM order_items WHERE product_id = ? LIMIT 1`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("checking product references", err)
	}
	return true, nil
}

func (r *MySQLProductRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return apperrors.NewInternalError("deleting product", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("product %s not found", id))
	}

	return nil
}

// ListCategories returns distinct categories with a representative color
// taken from the first product in each.
func (r *MySQLProductRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT category, MIN(color) AS color
		FROM products
		WHERE category IS NOT NULL AND category != ''
		GROUP BY category
		ORDER BY category
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternalError("listing categories", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var cat domain.Category
		var color sql.NullString
		if err := rows.Scan(&cat.Name, &color); err != nil {
			return nil, apperrors.NewInternalError("scanning category row", err)
		}
		cat.Color = color.String
		if cat.Color == "" {
			cat.Color = "#808080"
		}
		categories = append(categories, cat)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating category rows", err)
	}

	return categories, nil
}

// CategoryExists reports whether any product already uses the category.
func (r *MySQLProductRepository) CategoryExists(ctx context.Context, name string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM products WHERE category = ? LIMIT 1`, name).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperrors.NewInternalError("checking category", err)
	}
	return true, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.Code, &product.Name, &product.Price,
		&product.Category, &product.Type, &product.Color, &product.Active,
		&product.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, apperrors.NewInternalError("scanning product row", err)
	}
	return &product, nil
}
