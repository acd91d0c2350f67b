package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mapper"
	"github.com/clarotec/orders-api/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SyncedProductCategory is the category assigned to products imported from order lines
const SyncedProductCategory = "Importado de Pedidos"

// SyncResult reports how many catalog entries a sync created
type SyncResult struct {
	Created int    `json:"created"`
	Message string `json:"message"`
}

type ProductService struct {
	productRepo *repository.ProductRepository
	itemRepo    *repository.OrderItemRepository
	logger      *zap.Logger
}

func NewProductService(productRepo *repository.ProductRepository, itemRepo *repository.OrderItemRepository, logger *zap.Logger) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		itemRepo:    itemRepo,
		logger:      logger,
	}
}

// ListPublic returns active products without reference prices
func (s *ProductService) ListPublic(ctx context.Context, category string) ([]domain.ProductDTO, error) {
	products, err := s.productRepo.List(ctx, true, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toProductDTOs(products, false), nil
}

// List returns active products for staff, including reference prices
func (s *ProductService) List(ctx context.Context, category string) ([]domain.ProductDTO, error) {
	products, err := s.productRepo.List(ctx, true, strings.TrimSpace(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toProductDTOs(products, true), nil
}

func toProductDTOs(products []domain.FrequentProduct, includePrice bool) []domain.ProductDTO {
	dtos := make([]domain.ProductDTO, len(products))
	for i := range products {
		dtos[i] = mapper.ToProductDTO(&products[i], includePrice)
	}
	return dtos
}

func (s *ProductService) GetByID(ctx context.Context, id uint) (*domain.ProductDTO, error) {
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := mapper.ToProductDTO(product, true)
	return &dto, nil
}

func (s *ProductService) Create(ctx context.Context, req *domain.ProductRequest) (*domain.ProductDTO, error) {
	if req.ReferencePrice.IsNegative() {
		return nil, fmt.Errorf("%w: reference_price cannot be negative", ErrInvalidInput)
	}
	product := &domain.FrequentProduct{
		Name:           strings.TrimSpace(req.Name),
		Description:    strings.TrimSpace(req.Description),
		ReferencePrice: req.ReferencePrice,
		ImageURL:       strings.TrimSpace(req.ImageURL),
		Category:       strings.TrimSpace(req.Category),
		Active:         true,
	}
	if req.Active != nil {
		product.Active = *req.Active
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	dto := mapper.ToProductDTO(product, true)
	return &dto, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, req *domain.ProductRequest) (*domain.ProductDTO, error) {
	if req.ReferencePrice.IsNegative() {
		return nil, fmt.Errorf("%w: reference_price cannot be negative", ErrInvalidInput)
	}
	product, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	product.Name = strings.TrimSpace(req.Name)
	product.Description = strings.TrimSpace(req.Description)
	product.ReferencePrice = req.ReferencePrice
	product.ImageURL = strings.TrimSpace(req.ImageURL)
	product.Category = strings.TrimSpace(req.Category)
	if req.Active != nil {
		product.Active = *req.Active
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	dto := mapper.ToProductDTO(product, true)
	return &dto, nil
}

// Delete removes a product; order lines that referenced it keep their data
func (s *ProductService) Delete(ctx context.Context, id uint) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.productRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// SyncFromOrders adds a catalog entry for every order line description not already in the
// catalog, compared case-insensitively. The first line's unit price becomes the reference price.
func (s *ProductService) SyncFromOrders(ctx context.Context) (*SyncResult, error) {
	existing, err := s.productRepo.NameSet(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	candidates, err := s.itemRepo.FirstPriceByDescription(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	var toCreate []domain.FrequentProduct
	for _, c := range candidates {
		name := strings.TrimSpace(c.Description)
		key := strings.ToLower(name)
		if name == "" {
			continue
		}
		if _, ok := existing[key]; ok {
			continue
		}
		existing[key] = struct{}{}
		toCreate = append(toCreate, domain.FrequentProduct{
			Name:           name,
			Description:    name,
			ReferencePrice: c.UnitPrice,
			Category:       SyncedProductCategory,
			Active:         true,
		})
	}

	if err := s.productRepo.CreateBatch(ctx, toCreate); err != nil {
		return nil, fmt.Errorf("failed to create products: %w", err)
	}

	s.logger.Info("catalog synchronized from orders", zap.Int("created", len(toCreate)))
	return &SyncResult{
		Created: len(toCreate),
		Message: fmt.Sprintf("Se crearon %d productos nuevos", len(toCreate)),
	}, nil
}

func (s *ProductService) get(ctx context.Context, id uint) (*domain.FrequentProduct, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}
