package receipt

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type OrderReader interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

type Controller struct {
	orders   OrderReader
	renderer *Renderer
	logger   *zap.Logger
}

func NewController(orders OrderReader, renderer *Renderer, logger *zap.Logger) *Controller {
	return &Controller{orders: orders, renderer: renderer, logger: logger}
}

// Receipt always answers 200 with a printable payload; failures become an
// error directive the printer can show on paper.
func (c *Controller) Receipt(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if _, err := uuid.Parse(orderID); err != nil {
		writePayload(w, ErrorPayload("ID TIDAK VALID"))
		return
	}

	order, err := c.orders.GetByID(r.Context(), orderID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			writePayload(w, ErrorPayload("ORDER TIDAK DITEMUKAN"))
			return
		}
		c.logger.Error("fetching order for receipt", zap.String("orderId", orderID), zap.Error(err))
		writePayload(w, ErrorPayload("GAGAL MEMUAT STRUK"))
		return
	}

	writePayload(w, c.renderer.Render(order))
}

func writePayload(w http.ResponseWriter, payload Payload) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
