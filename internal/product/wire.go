package product

import (
	"database/sql"

	"go.uber.org/zap"

	"pos-backend/internal/product/controller"
	"pos-backend/internal/product/repository"
	"pos-backend/internal/product/service"
)

func NewModule(db *sql.DB, logger *zap.Logger) *controller.ProductController {
	repo := repository.NewMySQLProductRepository(db)
	svc := service.NewProductService(repo, logger)
	return controller.NewProductController(svc, logger)
}
