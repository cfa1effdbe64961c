package service

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
	"pos-backend/internal/order/repository"
)

type TransactionManager interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

type OrderRepository interface {
	InsertOrder(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	InsertItems(ctx context.Context, tx *sql.Tx, orderID string, items []domain.OrderItem) error
	DeleteItems(ctx context.Context, tx *sql.Tx, orderID string) error
	UpdateHeader(ctx context.Context, tx *sql.Tx, order *domain.Order) error
	GetForUpdate(ctx context.Context, tx *sql.Tx, id string) (string, decimal.Decimal, error)
	MarkPaid(ctx context.Context, tx *sql.Tx, id string, settle repository.Settlement) error
	Cancel(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, id string, patch repository.StatusPatch) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetPaidByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, int, error)
	Delete(ctx context.Context, id string) error
}

type ProductRepository interface {
	FindActiveByIDs(ctx context.Context, tx *sql.Tx, ids []string) (map[string]domain.Product, error)
}

type CreateOrderInput struct {
	CustomerName string
	TableNumber  string
	TypeOrder    string
	Items        []domain.ItemRequest
}

type PayInput struct {
	PaymentMethod string
	IncludeTax    bool
	Discount      decimal.Decimal
	CashReceived  *decimal.Decimal
}

type OrderService struct {
	db        TransactionManager
	orders    OrderRepository
	products  ProductRepository
	logger    *zap.Logger
	txTimeout time.Duration
}

func NewOrderService(
	db TransactionManager,
	orders OrderRepository,
	products ProductRepository,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		db:        db,
		orders:    orders,
		products:  products,
		logger:    logger,
		txTimeout: 5 * time.Second,
	}
}

type orderHeader struct {
	customerName string
	tableNumber  *string
	typeOrder    string
}

func validateHeader(input CreateOrderInput) (orderHeader, error) {
	typeOrder := input.TypeOrder
	if typeOrder == "" {
		typeOrder = domain.OrderTypeDineIn
	}
	if !domain.ValidOrderType(typeOrder) {
		return orderHeader{}, apperrors.NewValidationError("invalid order type", apperrors.ValidationDetail{
			Field:   "type_order",
			Message: "type_order must be dine_in or takeaway",
		})
	}

	var tableNumber *string
	trimmed := strings.TrimSpace(input.TableNumber)
	if trimmed != "" {
		tableNumber = &trimmed
	}
	if typeOrder == domain.OrderTypeDineIn && (tableNumber == nil || *tableNumber == "-") {
		return orderHeader{}, apperrors.NewValidationError("table number is required for dine-in orders", apperrors.ValidationDetail{
			Field:   "table_number",
			Message: "table_number is required when type_order is dine_in",
		})
	}

	customerName := strings.TrimSpace(input.CustomerName)
	if customerName == "" {
		customerName = "-"
	}

	return orderHeader{
		customerName: customerName,
		tableNumber:  tableNumber,
		typeOrder:    typeOrder,
	}, nil
}

// resolveItems maps sanitized requests to snapshot lines, failing on any
// product that is missing or inactive. Returns the lines and their summed
// subtotal.
func (s *OrderService) resolveItems(ctx context.Context, tx *sql.Tx, items []domain.ItemRequest) ([]domain.OrderItem, decimal.Decimal, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ProductID
	}

	products, err := s.products.FindActiveByIDs(ctx, tx, ids)
	if err != nil {
		return nil, decimal.Zero, err
	}

	lines := make([]domain.OrderItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			return nil, decimal.Zero, apperrors.NewProductNotFoundError(item.ProductID)
		}

		lineSubtotal := product.Price.Mul(decimal.NewFromInt(int64(item.Qty)))
		lines = append(lines, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Qty:         item.Qty,
			Subtotal:    lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	return lines, subtotal, nil
}

func (s *OrderService) Create(ctx context.Context, cashierID string, input CreateOrderInput) (*domain.Order, error) {
	header, err := validateHeader(input)
	if err != nil {
		return nil, err
	}

	items, err := domain.SanitizeItems(input.Items)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("beginning transaction", err)
	}
	defer tx.Rollback()

	lines, subtotal, err := s.resolveItems(txCtx, tx, items)
	if err != nil {
		return nil, err
	}

	amounts := domain.ComputeAmounts(subtotal, decimal.Zero, false)

	order := &domain.Order{
		ID:           uuid.New().String(),
		OrderNumber:  domain.NewOrderNumber(),
		CashierID:    cashierID,
		CustomerName: header.customerName,
		TableNumber:  header.tableNumber,
		TypeOrder:    header.typeOrder,
		Status:       domain.OrderStatusDraft,
		Subtotal:     amounts.Subtotal,
		Discount:     amounts.Discount,
		Tax:          amounts.Tax,
		Total:        amounts.Total,
	}

	if err := s.orders.InsertOrder(txCtx, tx, order); err != nil {
		return nil, err
	}
	if err := s.orders.InsertItems(txCtx, tx, order.ID, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("committing transaction", err)
	}

	s.logger.Info("order created",
		zap.String("orderId", order.ID),
		zap.String("orderNumber", order.OrderNumber),
		zap.String("typeOrder", order.TypeOrder),
		zap.Int("itemCount", len(lines)),
	)

	return s.orders.GetByID(ctx, order.ID)
}

// Update replaces the DRAFT order's header and entire item set atomically.
func (s *OrderService) Update(ctx context.Context, id, cashierID string, input CreateOrderInput) (*domain.Order, error) {
	header, err := validateHeader(input)
	if err != nil {
		return nil, err
	}

	items, err := domain.SanitizeItems(input.Items)
	if err != nil {
		return nil, err
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("beginning transaction", err)
	}
	defer tx.Rollback()

	status, _, err := s.orders.GetForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if status != domain.OrderStatusDraft {
		return nil, apperrors.NewInvalidStateError("order can only be edited in DRAFT status")
	}

	lines, subtotal, err := s.resolveItems(txCtx, tx, items)
	if err != nil {
		return nil, err
	}

	amounts := domain.ComputeAmounts(subtotal, decimal.Zero, false)

	order := &domain.Order{
		ID:           id,
		CashierID:    cashierID,
		CustomerName: header.customerName,
		TableNumber:  header.tableNumber,
		TypeOrder:    header.typeOrder,
		Subtotal:     amounts.Subtotal,
		Discount:     amounts.Discount,
		Tax:          amounts.Tax,
		Total:        amounts.Total,
	}

	if err := s.orders.UpdateHeader(txCtx, tx, order); err != nil {
		return nil, err
	}
	if err := s.orders.DeleteItems(txCtx, tx, id); err != nil {
		return nil, err
	}
	if err := s.orders.InsertItems(txCtx, tx, id, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("committing transaction", err)
	}

	s.logger.Info("order updated", zap.String("orderId", id), zap.Int("itemCount", len(lines)))

	return s.orders.GetByID(ctx, id)
}

// Pay settles a DRAFT order. The status re-check and the PAID write happen
// inside one transaction; a concurrent settlement loses with an
// invalid-state error instead of double-applying.
func (s *OrderService) Pay(ctx context.Context, id string, input PayInput) (*domain.Order, error) {
	method, ok := domain.NormalizePaymentMethod(input.PaymentMethod)
	if !ok {
		return nil, apperrors.NewValidationError("unsupported payment method", apperrors.ValidationDetail{
			Field:   "paymentMethod",
			Message: "paymentMethod must be one of cash, debit, credit, qris, transfer",
		})
	}

	discount := input.Discount
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	txCtx, cancel := context.WithTimeout(ctx, s.txTimeout)
	defer cancel()

	tx, err := s.db.BeginTx(txCtx, nil)
	if err != nil {
		return nil, apperrors.NewInternalError("beginning transaction", err)
	}
	defer tx.Rollback()

	status, subtotal, err := s.orders.GetForUpdate(txCtx, tx, id)
	if err != nil {
		return nil, err
	}
	if status != domain.OrderStatusDraft {
		return nil, apperrors.NewInvalidStateError("order is already paid or canceled")
	}

	amounts := domain.ComputeAmounts(subtotal, discount, input.IncludeTax)

	settle := repository.Settlement{
		PaymentMethod: method,
		Discount:      amounts.Discount,
		Tax:           amounts.Tax,
		Total:         amounts.Total,
	}

	if method == domain.PaymentMethodCash {
		if input.CashReceived == nil || input.CashReceived.LessThan(amounts.Total) {
			return nil, apperrors.NewInsufficientPaymentError("cash received is missing or below the order total")
		}
		change := input.CashReceived.Sub(amounts.Total)
		settle.CashReceived = input.CashReceived
		settle.ChangeAmount = &change
	}

	if err := s.orders.MarkPaid(txCtx, tx, id, settle); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, apperrors.NewInternalError("committing transaction", err)
	}

	s.logger.Info("order paid",
		zap.String("orderId", id),
		zap.String("paymentMethod", method),
		zap.String("total", amounts.Total.String()),
	)

	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) Cancel(ctx context.Context, id string) (*domain.Order, error) {
	if err := s.orders.Cancel(ctx, id); err != nil {
		return nil, err
	}

	s.logger.Info("order canceled", zap.String("orderId", id))
	return s.orders.GetByID(ctx, id)
}

// PatchStatus is the administrative status override. When the target
// status is PAID it always recomputes totals with tax included and no
// discount; only the dedicated pay operation honors caller-supplied
// discount and tax choices.
func (s *OrderService) PatchStatus(ctx context.Context, id, status string, paymentMethod *string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, apperrors.NewValidationError("invalid status", apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be DRAFT, PAID or CANCELED",
		})
	}

	patch := repository.StatusPatch{Status: status}

	if status == domain.OrderStatusPaid {
		if paymentMethod != nil && *paymentMethod != "" {
			method, ok := domain.NormalizePaymentMethod(*paymentMethod)
			if !ok {
				return nil, apperrors.NewValidationError("unsupported payment method", apperrors.ValidationDetail{
					Field:   "paymentMethod",
					Message: "paymentMethod must be one of cash, debit, credit, qris, transfer",
				})
			}
			patch.PaymentMethod = &method
		}

		current, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		amounts := domain.ComputeAmounts(current.Subtotal, decimal.Zero, true)
		patch.Amounts = &amounts
	}

	if err := s.orders.UpdateStatus(ctx, id, patch); err != nil {
		return nil, err
	}

	s.logger.Info("order status patched", zap.String("orderId", id), zap.String("status", status))
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, id)
}

// PublicReceipt returns a settled order for the unauthenticated receipt
// view.
func (s *OrderService) PublicReceipt(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.GetPaidByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, filter repository.ListFilter) ([]domain.Order, int, error) {
	return s.orders.List(ctx, filter)
}

func (s *OrderService) Delete(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("order deleted", zap.String("orderId", id))
	return nil
}
