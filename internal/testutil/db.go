// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/clarotec/orders-api/internal/database"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB opens a private in-memory SQLite database with the schema migrated.
// A single connection is used so every query sees the same memory database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Dec parses a decimal literal
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// CreateCustomer inserts a customer with a unique email derived from name
func CreateCustomer(t *testing.T, db *gorm.DB, name string) *domain.Customer {
	t.Helper()
	c := &domain.Customer{
		FirstName:       name,
		LastName:        "Test",
		Email:           fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		RetentionStatus: domain.RetentionStatusPending,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// ItemSpec describes a line item for CreateOrder
type ItemSpec struct {
	Description string
	Quantity    int
	UnitPrice   string
	Purchase    string
}

// OrderSpec describes an order fixture
type OrderSpec struct {
	Status       domain.OrderStatus
	Urgency      string
	Shipping     string
	Region       string
	Commune      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DispatchedAt *time.Time
	Items        []ItemSpec
}

// CreateOrder inserts an order with items and then pins its timestamps
func CreateOrder(t *testing.T, db *gorm.DB, customer *domain.Customer, spec OrderSpec) *domain.Order {
	t.Helper()

	if spec.Status == "" {
		spec.Status = domain.OrderStatusRequest
	}
	order := &domain.Order{
		CustomerID:   customer.ID,
		Status:       spec.Status,
		UrgencyPct:   decOrZero(spec.Urgency),
		ShippingCost: decOrZero(spec.Shipping),
		Region:       spec.Region,
		Commune:      spec.Commune,
		DispatchedAt: spec.DispatchedAt,
	}
	for _, it := range spec.Items {
		order.Items = append(order.Items, domain.LineItem{
			Description:   it.Description,
			Quantity:      it.Quantity,
			UnitPrice:     decOrZero(it.UnitPrice),
			PurchasePrice: decOrZero(it.Purchase),
			Origin:        domain.ItemOriginManual,
		})
	}
	require.NoError(t, db.Create(order).Error)

	updates := map[string]interface{}{}
	if !spec.CreatedAt.IsZero() {
		updates["created_at"] = spec.CreatedAt
		order.CreatedAt = spec.CreatedAt
	}
	if !spec.UpdatedAt.IsZero() {
		updates["updated_at"] = spec.UpdatedAt
		order.UpdatedAt = spec.UpdatedAt
	}
	if len(updates) > 0 {
		require.NoError(t, db.Model(&domain.Order{}).Where("id = ?", order.ID).UpdateColumns(updates).Error)
	}
	order.Customer = customer
	return order
}

// CreateUser inserts a login with the given role and a low-cost password hash
func CreateUser(t *testing.T, db *gorm.DB, email string, role domain.UserRole, passwordHash string) *domain.User {
	t.Helper()
	u := &domain.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     string(role),
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func decOrZero(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}
