package service

import (
	"context"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type ProductRepository interface {
	List(ctx context.Context, activeOnly bool) ([]domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	Insert(ctx context.Context, product domain.Product) error
	Update(ctx context.Context, product domain.Product) error
	IsReferenced(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CategoryExists(ctx context.Context, name string) (bool, error)
}

// defaultColorMap assigns a category its conventional POS tile color when
// the client does not pick one.
var defaultColorMap = map[string]string{
	"Makanan":  "#EF4444",
	"Minuman":  "#3B82F6",
	"Katering": "#10B981",
	"Tambahan": "#F59E0B",
}

const fallbackColor = "#808080"

var hexColorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

type ProductInput struct {
	Name     string
	Price    decimal.Decimal
	Category string
	Code     string
	Type     string
	Color    string
	Active   *bool
}

type ProductService struct {
	repo   ProductRepository
	logger *zap.Logger
}

func NewProductService(repo ProductRepository, logger *zap.Logger) *ProductService {
	return &ProductService{repo: repo, logger: logger}
}

func (s *ProductService) List(ctx context.Context, activeOnly bool) ([]domain.Product, error) {
	return s.repo.List(ctx, activeOnly)
}

func (s *ProductService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func validateInput(input ProductInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("product name is required", apperrors.ValidationDetail{
			Field:   "name",
			Message: "name must not be empty",
		})
	}
	if !input.Price.IsPositive() {
		return apperrors.NewValidationError("price must be a positive number", apperrors.ValidationDetail{
			Field:   "price",
			Message: "price must be greater than zero",
		})
	}
	if input.Color != "" && !hexColorPattern.MatchString(input.Color) {
		return apperrors.NewValidationError("color must be a HEX value, e.g. #EF4444", apperrors.ValidationDetail{
			Field:   "color",
			Message: "color must match #RRGGBB",
		})
	}
	return nil
}

func resolveColor(color, category string) string {
	if color != "" {
		return color
	}
	if c, ok := defaultColorMap[category]; ok {
		return c
	}
	return fallbackColor
}

func optional(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func (s *ProductService) Create(ctx context.Context, input ProductInput) (*domain.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	category := strings.TrimSpace(input.Category)
	product := domain.Product{
		ID:       uuid.New().String(),
		Code:     optional(input.Code),
		Name:     strings.TrimSpace(input.Name),
		Price:    input.Price,
		Category: optional(category),
		Type:     optional(input.Type),
		Color:    resolveColor(input.Color, category),
		Active:   true,
	}

	if err := s.repo.Insert(ctx, product); err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.String("productId", product.ID), zap.String("name", product.Name))
	return &product, nil
}

func (s *ProductService) Update(ctx context.Context, id string, input ProductInput) (*domain.Product, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(input.Category)
	product := domain.Product{
		ID:        id,
		Code:      optional(input.Code),
		Name:      strings.TrimSpace(input.Name),
		Price:     input.Price,
		Category:  optional(category),
		Type:      optional(input.Type),
		Color:     current.Color,
		Active:    current.Active,
		CreatedAt: current.CreatedAt,
	}
	if input.Color != "" {
		product.Color = input.Color
	}
	if input.Active != nil {
		product.Active = *input.Active
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}

	return &product, nil
}

// Delete refuses to remove a product that appears in any order line;
// historical orders keep their snapshots, but the reference itself must
// stay resolvable.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	referenced, err := s.repo.IsReferenced(ctx, id)
	if err != nil {
		return err
	}
	if referenced {
		return apperrors.NewInvalidStateError("product is used by existing orders and cannot be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("product deleted", zap.String("productId", id))
	return nil
}

// PrepareCategory validates a prospective category; categories materialize
// when their first product is created, so there is nothing to insert.
func (s *ProductService) PrepareCategory(ctx context.Context, name, color string) (*domain.Category, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("category name is required", apperrors.ValidationDetail{
			Field:   "name",
			Message: "name must not be empty",
		})
	}
	if color != "" && !hexColorPattern.MatchString(color) {
		return nil, apperrors.NewValidationError("color must be a HEX value, e.g. #EF4444", apperrors.ValidationDetail{
			Field:   "color",
			Message: "color must match #RRGGBB",
		})
	}

	exists, err := s.repo.CategoryExists(ctx, trimmed)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.NewValidationError("category already exists", apperrors.ValidationDetail{
			Field:   "name",
			Message: "category already exists",
		})
	}

	if color == "" {
		color = fallbackColor
	}
	return &domain.Category{Name: trimmed, Color: color}, nil
}
