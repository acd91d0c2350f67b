package repository

import (
	"context"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts the order together with its items
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Omit("Customer", "AssignedTo").Create(order).Error
}

func (r *OrderRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") })
}

// GetByID loads an order with customer and items
func (r *OrderRepository) GetByID(ctx context.Context, id uint) (*domain.Order, error) {
	var order domain.Order
	if err := r.withDetails(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// GetByTrackingID loads an order by its public tracking identifier
func (r *OrderRepository) GetByTrackingID(ctx context.Context, trackingID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := r.withDetails(ctx).Where("tracking_id = ?", trackingID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Update saves the order's own columns; items are saved through OrderItemRepository
func (r *OrderRepository) Update(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(order).Error
}

// Delete removes the order; items and status history cascade
func (r *OrderRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&domain.OrderStatusHistory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&domain.LineItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Order{}, "id = ?", id).Error
	})
}

// TransitionStatus moves an order to `to` only if its persisted status is one of `from`.
// It reports false when no row matched, which means the guard failed or a concurrent
// request changed the status first.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uint, from []domain.OrderStatus, to domain.OrderStatus, at time.Time, fields map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// OrderListFilter narrows List
type OrderListFilter struct {
	Statuses   []domain.OrderStatus
	CustomerID *uint
	Search     string
}

// List returns a page of orders, newest first
func (r *OrderRepository) List(ctx context.Context, page, pageSize int, filter OrderListFilter) ([]domain.Order, int64, error) {
	var orders []domain.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Order{})
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Search != "" {
		sub := applyCustomerSearch(r.db.Model(&domain.Customer{}).Select("id"), filter.Search)
		query = query.Where("customer_id IN (?)", sub)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(pageSize).
		Find(&orders).Error
	return orders, total, err
}

// ListByStatuses returns every order in one of statuses using orderBy for ordering
func (r *OrderRepository) ListByStatuses(ctx context.Context, statuses []domain.OrderStatus, orderBy string) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.withDetails(ctx).
		Where("status IN ?", statuses).
		Order(orderBy).
		Find(&orders).Error
	return orders, err
}

// ListByCustomerEmail returns a customer's orders, newest first
func (r *OrderRepository) ListByCustomerEmail(ctx context.Context, email string) ([]domain.Order, error) {
	var orders []domain.Order
	sub := r.db.Model(&domain.Customer{}).Select("id").Where("LOWER(email) = LOWER(?)", email)
	err := r.withDetails(ctx).
		Where("customer_id IN (?)", sub).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// ListStaleQuotes returns quoted orders last updated before cutoff
func (r *OrderRepository) ListStaleQuotes(ctx context.Context, cutoff time.Time) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.OrderStatusQuoted, cutoff).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

// ListCompleted returns every completed order with customer and items
func (r *OrderRepository) ListCompleted(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.withDetails(ctx).
		Where("status = ?", domain.OrderStatusCompleted).
		Order("id ASC").
		Find(&orders).Error
	return orders, err
}

// ListRealSales returns orders in a real-sale status with items, oldest first
func (r *OrderRepository) ListRealSales(ctx context.Context) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status IN ?", domain.RealSaleStatuses).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

type customerCount struct {
	CustomerID uint
	Count      int
}

// CompletedCountsByCustomer returns the all-time completed-order count per customer
func (r *OrderRepository) CompletedCountsByCustomer(ctx context.Context) (map[uint]int, error) {
	var rows []customerCount
	err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Select("customer_id, COUNT(*) AS count").
		Where("status = ?", domain.OrderStatusCompleted).
		Group("customer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.CustomerID] = row.Count
	}
	return counts, nil
}

// GetStatus reads only the persisted status of an order
func (r *OrderRepository) GetStatus(ctx context.Context, id uint) (domain.OrderStatus, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Select("id", "status").Where("id = ?", id).First(&order).Error
	return order.Status, err
}

// UpdateFields writes the given columns; callers include updated_at to control the timestamp
func (r *OrderRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Updates(fields).Error
}

// UpdateFieldsIfStatus writes the given columns only while the persisted status is one of
// statuses. It reports false when no row matched.
func (r *OrderRepository) UpdateFieldsIfStatus(ctx context.Context, id uint, statuses []domain.OrderStatus, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND status IN ?", id, statuses).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LastRealSale returns a customer's most recently created order in a real-sale status
func (r *OrderRepository) LastRealSale(ctx context.Context, customerID uint) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.id ASC") }).
		Where("customer_id = ? AND status IN ?", customerID, domain.RealSaleStatuses).
		Order("created_at DESC, id DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
