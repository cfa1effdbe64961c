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

var productRowColumns = []string{"id", "code", "name", "price", "category", "type", "color", "active", "created_at"}

func TestProductRepository_FindActiveByIDs(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE id IN (?, ?) AND active = 1`)).
		WithArgs("p1", "p2").
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("p1", nil, "Soto Ayam", "25000", "Makanan", nil, "#EF4444", true, now).
			AddRow("p2", "ET-01", "Es Teh", "5000", "Minuman", nil, "#3B82F6", true, now))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	products, err := repo.FindActiveByIDs(context.Background(), tx, []string{"p1", "p2"})
	require.NoError(t, err)

	require.Len(t, products, 2)
	soto := products["p1"]
	assert.Equal(t, "Soto Ayam", soto.Name)
	assert.True(t, soto.Price.Equal(decimal.NewFromInt(25000)))
	assert.Nil(t, soto.Code)
	require.NotNil(t, products["p2"].Code)
	assert.Equal(t, "ET-01", *products["p2"].Code)
}

func TestProductRepository_FindActiveByIDs_EmptyInput(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectBegin()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	products, err := repo.FindActiveByIDs(context.Background(), tx, nil)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepository_FindActiveByIDs_InactiveOmitted(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	// The query filters inactive rows; the caller sees them as missing.
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`AND active = 1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(productRowColumns))

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	products, err := repo.FindActiveByIDs(context.Background(), tx, []string{"p1"})
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepository_List_ActiveOnly(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE active = 1 ORDER BY name`)).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("p1", nil, "Soto Ayam", "25000", "Makanan", nil, "#EF4444", true, time.Now()))

	products, err := repo.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Soto Ayam", products[0].Name)
}

func TestProductRepository_FindByID_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM products WHERE id = ?`)).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	product, err := repo.FindByID(context.Background(), "missing")
	assert.Nil(t, product)

	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectExec(`UPDATE products`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), domain.Product{ID: "missing", Name: "x", Price: decimal.NewFromInt(1)})
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestProductRepository_IsReferenced(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	t.Run("Referenced", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM order_items WHERE product_id = ? LIMIT 1`)).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

		referenced, err := repo.IsReferenced(context.Background(), "p1")
		require.NoError(t, err)
		assert.True(t, referenced)
	})

	t.Run("Unreferenced", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM order_items WHERE product_id = ? LIMIT 1`)).
			WithArgs("p2").
			WillReturnError(sql.ErrNoRows)

		referenced, err := repo.IsReferenced(context.Background(), "p2")
		require.NoError(t, err)
		assert.False(t, referenced)
	})
}

func TestProductRepository_ListCategories(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectQuery(`GROUP BY category`).
		WillReturnRows(sqlmock.NewRows([]string{"category", "color"}).
			AddRow("Makanan", "#EF4444").
			AddRow("Minuman", nil))

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)

	require.Len(t, categories, 2)
	assert.Equal(t, domain.Category{Name: "Makanan", Color: "#EF4444"}, categories[0])
	assert.Equal(t, "#808080", categories[1].Color, "missing color falls back to gray")
}

func TestProductRepository_CategoryExists(t *testing.T) {
	db, mock := testutil.NewMockDB(t)
	repo := NewMySQLProductRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM products WHERE category = ? LIMIT 1`)).
		WithArgs("Makanan").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err := repo.CategoryExists(context.Background(), "Makanan")
	require.NoError(t, err)
	assert.True(t, exists)
}
