package repository

import (
	"context"

	"github.com/clarotec/orders-api/internal/domain"
	"gorm.io/gorm"
)

type OrderStatusHistoryRepository struct {
	db *gorm.DB
}

func NewOrderStatusHistoryRepository(db *gorm.DB) *OrderStatusHistoryRepository {
	return &OrderStatusHistoryRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *OrderStatusHistoryRepository) WithTx(tx *gorm.DB) *OrderStatusHistoryRepository {
	return &OrderStatusHistoryRepository{db: tx}
}

// Create records a status transition
func (r *OrderStatusHistoryRepository) Create(ctx context.Context, history *domain.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Omit("Order").Create(history).Error
}

// ListByOrder returns an order's transitions, oldest first
func (r *OrderStatusHistoryRepository) ListByOrder(ctx context.Context, orderID uint) ([]domain.OrderStatusHistory, error) {
	var history []domain.OrderStatusHistory
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("changed_at ASC, id ASC").
		Find(&history).Error
	return history, err
}
