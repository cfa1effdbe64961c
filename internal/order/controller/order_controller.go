package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
	"pos-backend/internal/middleware"
	"pos-backend/internal/order/repository"
	"pos-backend/internal/order/service"
)

type OrderService interface {
	Create(ctx context.Context, cashierID string, input service.CreateOrderInput) (*domain.Order, error)
	Update(ctx context.Context, id, cashierID string, input service.CreateOrderInput) (*domain.Order, error)
	Pay(ctx context.Context, id string, input service.PayInput) (*domain.Order, error)
	Cancel(ctx context.Context, id string) (*domain.Order, error)
	PatchStatus(ctx context.Context, id, status string, paymentMethod *string) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	PublicReceipt(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, int, error)
	Delete(ctx context.Context, id string) error
}

type OrderController struct {
	svc    OrderService
	logger *zap.Logger
}

func NewOrderController(svc OrderService, logger *zap.Logger) *OrderController {
	return &OrderController{svc: svc, logger: logger}
}

type orderRequest struct {
	CustomerName string               `json:"customer_name"`
	TableNumber  string               `json:"table_number"`
	TypeOrder    string               `json:"type_order"`
	Items        []domain.ItemRequest `json:"items"`
}

type payRequest struct {
	PaymentMethod string           `json:"paymentMethod"`
	IncludeTax    bool             `json:"includeTax"`
	Discount      decimal.Decimal  `json:"discount"`
	CashReceived  *decimal.Decimal `json:"cashReceived"`
}

type patchStatusRequest struct {
	Status        string  `json:"status"`
	PaymentMethod *string `json:"paymentMethod"`
}

type itemResponse struct {
	ProductID   string          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Price       decimal.Decimal `json:"price"`
	Qty         int             `json:"qty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type publicItemResponse struct {
	ProductName string          `json:"product_name"`
	Qty         int             `json:"qty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type orderResponse struct {
	ID            string           `json:"id"`
	OrderNumber   string           `json:"order_number"`
	CashierID     string           `json:"cashier_id,omitempty"`
	CustomerName  string           `json:"customer_name"`
	TableNumber   *string          `json:"table_number"`
	TypeOrder     string           `json:"type_order"`
	Status        string           `json:"status"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Discount      decimal.Decimal  `json:"discount"`
	Tax           decimal.Decimal  `json:"tax"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod *string          `json:"payment_method"`
	CashReceived  *decimal.Decimal `json:"cash_received"`
	ChangeAmount  *decimal.Decimal `json:"change_amount"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	PaidAt        *time.Time       `json:"paid_at"`
	Items         []itemResponse   `json:"items,omitempty"`
}

func toOrderResponse(order *domain.Order) orderResponse {
	resp := orderResponse{
		ID:            order.ID,
		OrderNumber:   order.OrderNumber,
		CashierID:     order.CashierID,
		CustomerName:  order.CustomerName,
		TableNumber:   order.TableNumber,
		TypeOrder:     order.TypeOrder,
		Status:        order.Status,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Tax:           order.Tax,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		CashReceived:  order.CashReceived,
		ChangeAmount:  order.ChangeAmount,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
		PaidAt:        order.PaidAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, itemResponse{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Price:       item.Price,
			Qty:         item.Qty,
			Subtotal:    item.Subtotal,
		})
	}
	return resp
}

func (c *OrderController) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	filter := repository.ListFilter{
		Search:    q.Get("search"),
		Customer:  q.Get("customer"),
		Table:     q.Get("table"),
		Status:    q.Get("status"),
		DateRange: q.Get("dateRange"),
		Page:      page,
		Limit:     limit,
	}

	if start, err := time.Parse(time.RFC3339, q.Get("start")); err == nil {
		filter.Start = &start
	}
	if end, err := time.Parse(time.RFC3339, q.Get("end")); err == nil {
		filter.End = &end
	}

	orders, total, err := c.svc.List(r.Context(), filter)
	if err != nil {
		c.handleError(w, err, "Failed to fetch orders")
		return
	}

	data := make([]orderResponse, 0, len(orders))
	for i := range orders {
		data = append(data, toOrderResponse(&orders[i]))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
		"total":   total,
		"page":    page,
		"limit":   limit,
	})
}

func (c *OrderController) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := c.svc.Get(r.Context(), id)
	if err != nil {
		c.handleError(w, err, "Failed to fetch order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    toOrderResponse(order),
	})
}

func (c *OrderController) Create(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	order, err := c.svc.Create(r.Context(), principal.ID, service.CreateOrderInput{
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		TypeOrder:    req.TypeOrder,
		Items:        req.Items,
	})
	if err != nil {
		c.handleError(w, err, "Failed to create order")
		return
	}

	c.logger.Info("order created",
		zap.String("orderNumber", order.OrderNumber),
		zap.String("cashier", principal.Username),
	)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Order created",
		"data":    toOrderResponse(order),
	})
}

func (c *OrderController) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	principal := middleware.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	order, err := c.svc.Update(r.Context(), id, principal.ID, service.CreateOrderInput{
		CustomerName: req.CustomerName,
		TableNumber:  req.TableNumber,
		TypeOrder:    req.TypeOrder,
		Items:        req.Items,
	})
	if err != nil {
		c.handleError(w, err, "Failed to update order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order updated",
		"data":    toOrderResponse(order),
	})
}

func (c *OrderController) Pay(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req payRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	if req.PaymentMethod == "" {
		writeError(w, http.StatusBadRequest, "Payment method is required")
		return
	}

	order, err := c.svc.Pay(r.Context(), id, service.PayInput{
		PaymentMethod: req.PaymentMethod,
		IncludeTax:    req.IncludeTax,
		Discount:      req.Discount,
		CashReceived:  req.CashReceived,
	})
	if err != nil {
		c.handleError(w, err, "Failed to process payment")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Payment successful",
		"data":    toOrderResponse(order),
	})
}

func (c *OrderController) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := c.svc.Cancel(r.Context(), id)
	if err != nil {
		c.handleError(w, err, "Failed to cancel order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order canceled",
		"data":    toOrderResponse(order),
	})
}

func (c *OrderController) PatchStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req patchStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	order, err := c.svc.PatchStatus(r.Context(), id, req.Status, req.PaymentMethod)
	if err != nil {
		c.handleError(w, err, "Failed to update order status")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order status updated",
		"data":    toOrderResponse(order),
	})
}

// Public serves receipt data for a settled order without authentication.
func (c *OrderController) Public(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := c.svc.PublicReceipt(r.Context(), id)
	if err != nil {
		if _, nf := apperrors.IsNotFoundError(err); nf {
			writeError(w, http.StatusNotFound, "Order not found or not paid")
			return
		}
		c.handleError(w, err, "Failed to fetch receipt data")
		return
	}

	resp := toOrderResponse(order)
	resp.CashierID = ""
	resp.Items = nil
	items := make([]publicItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, publicItemResponse{
			ProductName: item.ProductName,
			Qty:         item.Qty,
			Subtotal:    item.Subtotal,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"order": resp,
			"items": items,
		},
	})
}

func (c *OrderController) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	if err := c.svc.Delete(r.Context(), id); err != nil {
		c.handleError(w, err, "Failed to delete order")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Order deleted",
	})
}

func orderID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid order id format")
		return "", false
	}
	return id, true
}

func (c *OrderController) handleError(w http.ResponseWriter, err error, fallback string) {
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
	if _, ok := apperrors.IsProductNotFoundError(err); ok {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := apperrors.IsInsufficientPaymentError(err); ok {
		writeError(w, http.StatusBadRequest, err.Error())
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
