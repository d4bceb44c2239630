package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gstbill/internal/caching"
	"gstbill/internal/common"
	"gstbill/internal/models"
	"gstbill/internal/repositories"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const productCacheTTL = 5 * time.Minute

type ProductServiceInterface interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	ListProducts(ctx context.Context, status string, limit, offset int) ([]*models.Product, error)
	ListBelowMinStock(ctx context.Context) ([]*models.Product, error)
}

type productService struct {
	productRepo repositories.ProductRepository
	cache       caching.CacheService
}

// NewProductService creates the product catalog service. The cache may be nil.
func NewProductService(productRepo repositories.ProductRepository, cache caching.CacheService) ProductServiceInterface {
	return &productService{productRepo: productRepo, cache: cache}
}

func (s *productService) validate(product *models.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return common.ValidationError("name is required")
	}
	if product.SellingPrice.IsNegative() {
		return common.ValidationError("selling_price cannot be negative")
	}
	if product.TaxRate.IsNegative() || product.TaxRate.GreaterThan(decimal.NewFromInt(100)) {
		return common.ValidationError("tax_rate must be between 0 and 100")
	}
	return nil
}

func (s *productService) invalidate(ctx context.Context, id uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteProduct(ctx, id); err != nil {
		log.Debug().Err(err).Str("product_id", id.String()).Msg("product cache invalidation failed")
	}
}

func (s *productService) CreateProduct(ctx context.Context, product *models.Product) error {
	if err := s.validate(product); err != nil {
		return err
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}
	if product.Unit == "" {
		product.Unit = "pcs"
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		if repositories.IsUniqueViolation(err) {
			return fmt.Errorf("sku already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (s *productService) GetProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetProduct(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if repositories.IsNoRows(err) {
			return nil, common.NotFoundError("product")
		}
		return nil, fmt.Errorf("load product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product, productCacheTTL); err != nil {
			log.Debug().Err(err).Str("product_id", id.String()).Msg("product cache set failed")
		}
	}
	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.validate(product); err != nil {
		return err
	}
	if _, err := s.productRepo.GetByID(ctx, product.ID); err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("product")
		}
		return fmt.Errorf("load product: %w", err)
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, product.ID)
	return nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	if _, err := s.productRepo.GetByID(ctx, id); err != nil {
		if repositories.IsNoRows(err) {
			return common.NotFoundError("product")
		}
		return fmt.Errorf("load product: %w", err)
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *productService) ListProducts(ctx context.Context, status string, limit, offset int) ([]*models.Product, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	products, err := s.productRepo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *productService) ListBelowMinStock(ctx context.Context) ([]*models.Product, error) {
	products, err := s.productRepo.ListBelowMinStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("list low stock products: %w", err)
	}
	return products, nil
}
