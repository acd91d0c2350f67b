package repository

import (
	"context"
	"strings"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *CustomerRepository) WithTx(tx *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: tx}
}

func (r *CustomerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Create(customer).Error
}

func (r *CustomerRepository) GetByID(ctx context.Context, id uint) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// GetByEmail looks a customer up by identity key, case-insensitively
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	return r.db.WithContext(ctx).Omit("Orders").Save(customer).Error
}

func (r *CustomerRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&domain.Customer{}, "id = ?", id).Error
}

func (r *CustomerRepository) List(ctx context.Context, page, pageSize int, search string) ([]domain.Customer, int64, error) {
	var customers []domain.Customer
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Customer{})
	query = applyCustomerSearch(query, search)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC, id DESC").Find(&customers).Error
	return customers, total, err
}

// ListAll returns every customer matching search, ordered by id
func (r *CustomerRepository) ListAll(ctx context.Context, search string) ([]domain.Customer, error) {
	var customers []domain.Customer
	query := applyCustomerSearch(r.db.WithContext(ctx).Model(&domain.Customer{}), search)
	err := query.Order("id ASC").Find(&customers).Error
	return customers, err
}

// CountOrders counts the orders referencing a customer
func (r *CustomerRepository) CountOrders(ctx context.Context, customerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("customer_id = ?", customerID).Count(&count).Error
	return count, err
}

// UpdateRetention sets the retention follow-up fields without touching the rest of the row
func (r *CustomerRepository) UpdateRetention(ctx context.Context, id uint, status domain.RetentionStatus, contactedAt *time.Time) error {
	updates := map[string]interface{}{"retention_status": status}
	if contactedAt != nil {
		updates["last_retention_contact_at"] = *contactedAt
	}
	return r.db.WithContext(ctx).Model(&domain.Customer{}).Where("id = ?", id).Updates(updates).Error
}

func applyCustomerSearch(query *gorm.DB, search string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" {
		return query
	}
	pattern := "%" + strings.ToLower(search) + "%"
	return query.Where(
		"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(company) LIKE ? OR LOWER(email) LIKE ?",
		pattern, pattern, pattern, pattern,
	)
}
