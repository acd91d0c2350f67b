package repository

import (
	"context"
	"strings"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderItemRepository struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *OrderItemRepository) WithTx(tx *gorm.DB) *OrderItemRepository {
	return &OrderItemRepository{db: tx}
}

func (r *OrderItemRepository) Create(ctx context.Context, item *domain.LineItem) error {
	return r.db.WithContext(ctx).Omit("Product").Create(item).Error
}

// Save writes every column; the subtotal is recomputed by the model hook
func (r *OrderItemRepository) Save(ctx context.Context, item *domain.LineItem) error {
	return r.db.WithContext(ctx).Omit("Product").Save(item).Error
}

// GetForOrder returns an item only if it belongs to orderID
func (r *OrderItemRepository) GetForOrder(ctx context.Context, orderID, itemID uint) (*domain.LineItem, error) {
	var item domain.LineItem
	err := r.db.WithContext(ctx).Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *OrderItemRepository) ListByOrder(ctx context.Context, orderID uint) ([]domain.LineItem, error) {
	var items []domain.LineItem
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&items).Error
	return items, err
}

// DescriptionPrice pairs an item description with its unit price
type DescriptionPrice struct {
	Description string
	UnitPrice   decimal.Decimal
}

// FirstPriceByDescription returns each distinct description, compared case-insensitively,
// with the unit price of its oldest line
func (r *OrderItemRepository) FirstPriceByDescription(ctx context.Context) ([]DescriptionPrice, error) {
	var rows []DescriptionPrice
	err := r.db.WithContext(ctx).
		Model(&domain.LineItem{}).
		Select("description, unit_price").
		Where("TRIM(description) <> ''").
		Order("id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(rows))
	result := make([]DescriptionPrice, 0, len(rows))
	for _, row := range rows {
		key := strings.ToLower(strings.TrimSpace(row.Description))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, row)
	}
	return result, nil
}
