package order

import (
	"database/sql"

	"go.uber.org/zap"

	"pos-backend/internal/order/controller"
	orderrepo "pos-backend/internal/order/repository"
	"pos-backend/internal/order/service"
	productrepo "pos-backend/internal/product/repository"
)

func NewModule(db *sql.DB, logger *zap.Logger) *controller.OrderController {
	orderRepo := orderrepo.NewMySQLOrderRepository(db)
	productRepo := productrepo.NewMySQLProductRepository(db)

	svc := service.NewOrderService(db, orderRepo, productRepo, logger)

	return controller.NewOrderController(svc, logger)
}
