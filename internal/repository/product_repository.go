package repository

import (
	"context"
	"strings"

	"github.com/clarotec/orders-api/internal/domain"
	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *ProductRepository) WithTx(tx *gorm.DB) *ProductRepository {
	return &ProductRepository{db: tx}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.FrequentProduct) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// CreateBatch inserts products in batches of 100
func (r *ProductRepository) CreateBatch(ctx context.Context, products []domain.FrequentProduct) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(products, 100).Error
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*domain.FrequentProduct, error) {
	var product domain.FrequentProduct
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.FrequentProduct) error {
	return r.db.WithContext(ctx).Save(product).Error
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.FrequentProduct{}, "id = ?", id).Error
}

// List returns catalog entries ordered by name; activeOnly hides disabled entries
func (r *ProductRepository) List(ctx context.Context, activeOnly bool, category string) ([]domain.FrequentProduct, error) {
	var products []domain.FrequentProduct
	query := r.db.WithContext(ctx).Model(&domain.FrequentProduct{})
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	err := query.Order("name ASC, id ASC").Find(&products).Error
	return products, err
}

// NameSet returns every catalog name lowercased
func (r *ProductRepository) NameSet(ctx context.Context) (map[string]struct{}, error) {
	var names []string
	if err := r.db.WithContext(ctx).Model(&domain.FrequentProduct{}).Pluck("name", &names).Error; err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}
	return set, nil
}
