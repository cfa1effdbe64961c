package report

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	apperrors "pos-backend/internal/errors"
)

type Repository interface {
	Orders(ctx context.Context, window Window) ([]ReportOrder, error)
	TopProducts(ctx context.Context, window Window, limit int) ([]TopProduct, error)
}

type Controller struct {
	repo   Repository
	logger *zap.Logger
}

func NewController(repo Repository, logger *zap.Logger) *Controller {
	return &Controller{repo: repo, logger: logger}
}

func windowFrom(r *http.Request) Window {
	q := r.URL.Query()
	window := Window{Period: q.Get("period")}
	if window.Period == "" {
		window.Period = "7days"
	}
	if start, err := time.Parse(time.RFC3339, q.Get("start")); err == nil {
		window.Start = &start
	}
	if end, err := time.Parse(time.RFC3339, q.Get("end")); err == nil {
		window.End = &end
	}
	return window
}

func (c *Controller) Orders(w http.ResponseWriter, r *http.Request) {
	orders, err := c.repo.Orders(r.Context(), windowFrom(r))
	if err != nil {
		c.handleError(w, err, "Failed to fetch report data")
		return
	}

	if orders == nil {
		orders = []ReportOrder{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    orders,
	})
}

func (c *Controller) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	products, err := c.repo.TopProducts(r.Context(), windowFrom(r), limit)
	if err != nil {
		c.handleError(w, err, "Failed to fetch top products")
		return
	}

	if products == nil {
		products = []TopProduct{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    products,
	})
}

func (c *Controller) handleError(w http.ResponseWriter, err error, fallback string) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"message": ve.Message,
			"details": ve.Details,
		})
		return
	}

	c.logger.Error("unexpected error", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
		"success": false,
		"message": fallback,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
