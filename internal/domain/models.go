package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OrderStatus is the lifecycle state of an Order
type OrderStatus string

const (
	OrderStatusRequest          OrderStatus = "request"
	OrderStatusQuoted           OrderStatus = "quoted"
	OrderStatusAccepted         OrderStatus = "accepted"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusDispatched       OrderStatus = "dispatched"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusRejected         OrderStatus = "rejected"
)

// IsValid checks if the order status is a known value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusRequest, OrderStatusQuoted, OrderStatusAccepted, OrderStatusPaymentConfirmed,
		OrderStatusDispatched, OrderStatusCompleted, OrderStatusRejected:
		return true
	}
	return false
}

// Label returns the customer-facing name of the status
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusRequest:
		return "Solicitud"
	case OrderStatusQuoted:
		return "Cotizado"
	case OrderStatusAccepted:
		return "Aceptado"
	case OrderStatusPaymentConfirmed:
		return "Pago Confirmado"
	case OrderStatusDispatched:
		return "Despachado"
	case OrderStatusCompleted:
		return "Completado"
	case OrderStatusRejected:
		return "Rechazado"
	}
	return string(s)
}

// RealSaleStatuses are the states in which an order counts as a sale for retention purposes
var RealSaleStatuses = []OrderStatus{
	OrderStatusCompleted,
	OrderStatusDispatched,
	OrderStatusPaymentConfirmed,
	OrderStatusAccepted,
}

// ShippingMethod is the carrier chosen for an order
type ShippingMethod string

const (
	ShippingMethodStarken     ShippingMethod = "STARKEN"
	ShippingMethodChilexpress ShippingMethod = "CHILEXPRESS"
	ShippingMethodBlue        ShippingMethod = "BLUE"
	ShippingMethodOther       ShippingMethod = "OTHER"
)

// IsValid checks if the shipping method is a known carrier
func (m ShippingMethod) IsValid() bool {
	switch m {
	case ShippingMethodStarken, ShippingMethodChilexpress, ShippingMethodBlue, ShippingMethodOther:
		return true
	}
	return false
}

// ItemOrigin records how a line item entered the order
type ItemOrigin string

const (
	ItemOriginLink    ItemOrigin = "LINK"
	ItemOriginManual  ItemOrigin = "MANUAL"
	ItemOriginCatalog ItemOrigin = "CATALOG"
)

// RetentionStatus tracks follow-up with customers that stopped buying
type RetentionStatus string

const (
	RetentionStatusPending    RetentionStatus = "pending"
	RetentionStatusContacted  RetentionStatus = "contacted"
	RetentionStatusNoResponse RetentionStatus = "no_response"
	RetentionStatusRejected   RetentionStatus = "rejected"
	RetentionStatusRecovered  RetentionStatus = "recovered"
)

// IsValid checks if the retention status is a known value
func (s RetentionStatus) IsValid() bool {
	switch s {
	case RetentionStatusPending, RetentionStatusContacted, RetentionStatusNoResponse,
		RetentionStatusRejected, RetentionStatusRecovered:
		return true
	}
	return false
}

// UserRole is the staff or customer role attached to a login
type UserRole string

const (
	RoleSales      UserRole = "sales"
	RoleAdmin      UserRole = "admin"
	RoleDispatcher UserRole = "dispatcher"
	RoleManagement UserRole = "management"
	RoleCustomer   UserRole = "customer"
)

// IsValid checks if the role is a known value
func (r UserRole) IsValid() bool {
	switch r {
	case RoleSales, RoleAdmin, RoleDispatcher, RoleManagement, RoleCustomer:
		return true
	}
	return false
}

// Customer is an external party requesting quotes. Email is the identity key.
type Customer struct {
	ID                     uint            `gorm:"primaryKey"`
	FirstName              string          `gorm:"type:varchar(100);not null;column:first_name"`
	LastName               string          `gorm:"type:varchar(100);not null;column:last_name"`
	Company                string          `gorm:"type:varchar(150)"`
	Email                  string          `gorm:"type:varchar(254);not null;uniqueIndex"`
	Phone                  string          `gorm:"type:varchar(30)"`
	RetentionStatus        RetentionStatus `gorm:"type:varchar(20);not null;default:pending;column:retention_status"`
	LastRetentionContactAt *time.Time      `gorm:"column:last_retention_contact_at"`
	CreatedAt              time.Time       `gorm:"not null;autoCreateTime"`
	Orders                 []Order         `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`
}

// FullName returns "first last"
func (c *Customer) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// Order is the quote-to-delivery aggregate. The quote total is never stored; see Totals.
type Order struct {
	ID                uint              `gorm:"primaryKey"`
	TrackingID        uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex;column:tracking_id"`
	CustomerID        uint              `gorm:"not null;index;column:customer_id"`
	Customer          *Customer         `gorm:"foreignKey:CustomerID"`
	AssignedToID      *uint             `gorm:"column:assigned_to_id"`
	AssignedTo        *User             `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL"`
	Status            OrderStatus       `gorm:"type:varchar(30);not null;index"`
	UrgencyPct        decimal.Decimal   `gorm:"type:decimal(5,2);not null;column:urgency_pct"`
	ShippingCost      decimal.Decimal   `gorm:"type:decimal(10,2);not null;column:shipping_cost"`
	Region            string            `gorm:"type:varchar(100)"`
	Commune           string            `gorm:"type:varchar(100)"`
	ShippingMethod    ShippingMethod    `gorm:"type:varchar(20);column:shipping_method"`
	CustomCarrierName string            `gorm:"type:varchar(100);column:custom_carrier_name"`
	Carrier           string            `gorm:"type:varchar(100)"`
	WaybillNumber     string            `gorm:"type:varchar(100);column:waybill_number"`
	DispatchedAt      *time.Time        `gorm:"column:dispatched_at"`
	ShippingOptions   datatypes.JSONMap `gorm:"column:shipping_options"`
	Items             []LineItem        `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt         time.Time         `gorm:"not null;autoCreateTime;index"`
	UpdatedAt         time.Time         `gorm:"not null;autoUpdateTime"`
}

// BeforeCreate assigns the tracking identifier and an empty option map
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.TrackingID == uuid.Nil {
		o.TrackingID = uuid.New()
	}
	if o.ShippingOptions == nil {
		o.ShippingOptions = datatypes.JSONMap{}
	}
	if o.Status == "" {
		o.Status = OrderStatusRequest
	}
	return nil
}

// EffectiveDate is the dispatch date, falling back to the last update
func (o *Order) EffectiveDate() time.Time {
	if o.DispatchedAt != nil {
		return *o.DispatchedAt
	}
	return o.UpdatedAt
}

// LineItem is one product or service line of an Order
type LineItem struct {
	ID            uint             `gorm:"primaryKey"`
	OrderID       uint             `gorm:"not null;index;column:order_id"`
	Description   string           `gorm:"type:text;not null"`
	Quantity      int              `gorm:"not null;default:1"`
	UnitPrice     decimal.Decimal  `gorm:"type:decimal(10,0);not null;column:unit_price"`
	PurchasePrice decimal.Decimal  `gorm:"type:decimal(10,0);not null;column:purchase_price"`
	Subtotal      decimal.Decimal  `gorm:"type:decimal(12,0);not null"`
	Origin        ItemOrigin       `gorm:"type:varchar(10);not null"`
	Reference     string           `gorm:"type:text"`
	ProductID     *uint            `gorm:"column:product_id;index"`
	Product       *FrequentProduct `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL"`
}

// TableName overrides the default table name to match the migration
func (LineItem) TableName() string {
	return "order_items"
}

// BeforeSave recomputes the subtotal; submitted subtotals are never trusted
func (i *LineItem) BeforeSave(tx *gorm.DB) error {
	if i.Quantity < 1 {
		i.Quantity = 1
	}
	i.Subtotal = i.LineTotal()
	return nil
}

// LineTotal is quantity × unit price
func (i *LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// LineCost is quantity × unit purchase cost
func (i *LineItem) LineCost() decimal.Decimal {
	return i.PurchasePrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// FrequentProduct is a catalog entry used for fast re-quoting
type FrequentProduct struct {
	ID             uint            `gorm:"primaryKey"`
	Name           string          `gorm:"type:varchar(200);not null"`
	Description    string          `gorm:"type:text"`
	ReferencePrice decimal.Decimal `gorm:"type:decimal(10,0);not null;column:reference_price"`
	ImageURL       string          `gorm:"type:varchar(500);column:image_url"`
	Category       string          `gorm:"type:varchar(100)"`
	Active         bool            `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime"`
}

// User is a login for staff members and registered customers
type User struct {
	ID           uint      `gorm:"primaryKey"`
	Email        string    `gorm:"type:varchar(254);not null;uniqueIndex"`
	FirstName    string    `gorm:"type:varchar(100);column:first_name"`
	LastName     string    `gorm:"type:varchar(100);column:last_name"`
	PasswordHash string    `gorm:"type:varchar(100);not null;column:password_hash"`
	Role         UserRole  `gorm:"type:varchar(20);not null"`
	Active       bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"not null;autoUpdateTime"`
}

// OrderStatusHistory records one lifecycle transition
type OrderStatusHistory struct {
	ID         uint         `gorm:"primaryKey"`
	OrderID    uint         `gorm:"not null;index;column:order_id"`
	Order      *Order       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	FromStatus *OrderStatus `gorm:"type:varchar(30);column:from_status"`
	ToStatus   OrderStatus  `gorm:"type:varchar(30);not null;column:to_status"`
	ChangedBy  string       `gorm:"type:varchar(254);not null;column:changed_by"`
	Notes      string       `gorm:"type:text"`
	ChangedAt  time.Time    `gorm:"not null;column:changed_at"`
}

// TableName overrides the default table name to match the migration
func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
