package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
	"pos-backend/internal/product/service"
)

type ProductService interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	Create(ctx context.Context, input service.ProductInput) (*domain.Product, error)
	Update(ctx context.Context, id string, input service.ProductInput) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	PrepareCategory(ctx context.Context, name, color string) (*domain.Category, error)
}

type ProductController struct {
	svc    ProductService
	logger *zap.Logger
}

func NewProductController(svc ProductService, logger *zap.Logger) *ProductController {
	return &ProductController{svc: svc, logger: logger}
}

type productRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Code     string          `json:"code"`
	Type     string          `json:"type"`
	Color    string          `json:"color"`
	Active   *bool           `json:"active"`
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type productResponse struct {
	ID        string          `json:"id"`
	Code      *string         `json:"code"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Category  *string         `json:"category"`
	Type      *string         `json:"type"`
	Color     string          `json:"color"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

func toProductResponse(p domain.Product) productResponse {
	return productResponse{
		ID:        p.ID,
		Code:      p.Code,
		Name:      p.Name,
		Price:     p.Price,
		Category:  p.Category,
		Type:      p.Type,
		Color:     p.Color,
		Active:    p.Active,
		CreatedAt: p.CreatedAt,
	}
}

// ListActive is the cashier-facing catalog: active products only.
func (c *ProductController) ListActive(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, true)
}

// ListAll is the admin catalog, inactive products included.
func (c *ProductController) ListAll(w http.ResponseWriter, r *http.Request) {
	c.list(w, r, false)
}

func (c *ProductController) list(w http.ResponseWriter, r *http.Request, activeOnly bool) {
	products, err := c.svc.List(r.Context(), activeOnly)
	if err != nil {
		c.handleError(w, err, "Failed to fetch products")
		return
	}

	data := make([]productResponse, 0, len(products))
	for _, p := range products {
		data = append(data, toProductResponse(p))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

func (c *ProductController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.svc.ListCategories(r.Context())
	if err != nil {
		c.handleError(w, err, "Failed to fetch categories")
		return
	}

	if categories == nil {
		categories = []domain.Category{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    categories,
		"count":   len(categories),
	})
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	product, err := c.svc.Create(r.Context(), service.ProductInput{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Code:     req.Code,
		Type:     req.Type,
		Color:    req.Color,
	})
	if err != nil {
		c.handleError(w, err, "Failed to create product")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Product created",
		"data":    toProductResponse(*product),
	})
}

func (c *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	product, err := c.svc.Update(r.Context(), id, service.ProductInput{
		Name:     req.Name,
		Price:    req.Price,
		Category: req.Category,
		Code:     req.Code,
		Type:     req.Type,
		Color:    req.Color,
		Active:   req.Active,
	})
	if err != nil {
		c.handleError(w, err, "Failed to update product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product updated",
		"data":    toProductResponse(*product),
	})
}

func (c *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := c.svc.Delete(r.Context(), id); err != nil {
		c.handleError(w, err, "Failed to delete product")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Product deleted",
	})
}

func (c *ProductController) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	category, err := c.svc.PrepareCategory(r.Context(), req.Name, req.Color)
	if err != nil {
		c.handleError(w, err, "Failed to prepare category")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Category ready for use",
		"data":    category,
	})
}

func productID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid product id format")
		return "", false
	}
	return id, true
}

func (c *ProductController) handleError(w http.ResponseWriter, err error, fallback string) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": ve.Message,
			"details": ve.Details,
		})
		return
	}
	if _, ok := apperrors.IsNotFoundError(err); ok {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if _, ok := apperrors.IsInvalidStateError(err); ok {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	c.logger.Error("unexpected error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, fallback)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
