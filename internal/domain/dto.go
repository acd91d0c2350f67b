package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Response DTOs. Dates are ISO 8601 strings; money is serialized as decimal strings.

type CustomerDTO struct {
	ID                     uint            `json:"id"`
	Name                   string          `json:"name"`
	Surname                string          `json:"surname"`
	FullName               string          `json:"full_name"`
	Company                string          `json:"company,omitempty"`
	Email                  string          `json:"email"`
	Phone                  string          `json:"phone,omitempty"`
	RetentionStatus        RetentionStatus `json:"retention_status"`
	LastRetentionContactAt *string         `json:"last_retention_contact_at"`
	CreatedAt              string          `json:"created_at"`
}

type LineItemDTO struct {
	ID          uint            `json:"id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	// PurchasePrice is omitted on customer-facing views
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	Origin        ItemOrigin       `json:"type"`
	Reference     string           `json:"reference,omitempty"`
	ProductID     *uint            `json:"product_id"`
}

type OrderTotalsDTO struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Surcharge decimal.Decimal `json:"surcharge"`
	Net       decimal.Decimal `json:"net"`
	Tax       decimal.Decimal `json:"tax"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
}

type OrderDTO struct {
	ID                uint                   `json:"id"`
	TrackingID        uuid.UUID              `json:"tracking_id"`
	Customer          CustomerDTO            `json:"customer"`
	AssignedToID      *uint                  `json:"assigned_to_id"`
	Status            OrderStatus            `json:"status"`
	StatusLabel       string                 `json:"status_label"`
	UrgencyPct        decimal.Decimal        `json:"urgency_pct"`
	ShippingCost      decimal.Decimal        `json:"shipping_cost"`
	Region            string                 `json:"region"`
	Commune           string                 `json:"commune"`
	ShippingMethod    ShippingMethod         `json:"shipping_method,omitempty"`
	CustomCarrierName string                 `json:"custom_carrier_name,omitempty"`
	Carrier           string                 `json:"carrier,omitempty"`
	WaybillNumber     string                 `json:"waybill_number,omitempty"`
	DispatchedAt      *string                `json:"dispatched_at"`
	ShippingOptions   map[string]interface{} `json:"shipping_options"`
	Items             []LineItemDTO          `json:"items"`
	Totals            OrderTotalsDTO         `json:"totals"`
	TotalQuote        decimal.Decimal        `json:"total_quote"`
	CreatedAt         string                 `json:"created_at"`
	UpdatedAt         string                 `json:"updated_at"`
}

type OrderStatusHistoryDTO struct {
	ID         uint         `json:"id"`
	FromStatus *OrderStatus `json:"from_status"`
	ToStatus   OrderStatus  `json:"to_status"`
	ChangedBy  string       `json:"changed_by"`
	Notes      string       `json:"notes,omitempty"`
	ChangedAt  string       `json:"changed_at"`
}

type ProductDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// ReferencePrice is only populated for staff
	ReferencePrice *decimal.Decimal `json:"reference_price,omitempty"`
	ImageURL       string           `json:"image_url,omitempty"`
	Category       string           `json:"category,omitempty"`
	Active         bool             `json:"active"`
}

type UserDTO struct {
	ID          uint     `json:"id"`
	Email       string   `json:"email"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Role        UserRole `json:"role"`
	Permissions []string `json:"permissions"`
}

type TokenPairDTO struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessTokenDTO struct {
	Access string `json:"access"`
}

// Shipping

type ShippingQuoteDTO struct {
	Commune      string           `json:"commune"`
	Options      map[string]int64 `json:"options"`
	DetectedZone string           `json:"detected_zone"`
}

type ZoneDirectoryDTO struct {
	Zone      string   `json:"zone"`
	BasePrice int64    `json:"base_price"`
	Communes  []string `json:"communes"`
}

// Business intelligence

type KPIsDTO struct {
	RecurrenceRate     decimal.Decimal `json:"recurrence_rate"`
	NewCustomers       int             `json:"new_customers"`
	RecurringCustomers int             `json:"recurring_customers"`
	OperatingMargin    decimal.Decimal `json:"operating_margin"`
	TotalRevenue       decimal.Decimal `json:"total_revenue"`
	TotalProfit        decimal.Decimal `json:"total_profit"`
	TotalOrders        int             `json:"total_orders"`
}

type ProfitabilityRowDTO struct {
	ID         uint            `json:"id"`
	Date       string          `json:"date"`
	Customer   string          `json:"customer"`
	NetRevenue decimal.Decimal `json:"net_revenue"`
	Profit     decimal.Decimal `json:"profit"`
	Margin     decimal.Decimal `json:"margin"`
}

type TopProductDTO struct {
	Name     string          `json:"name"`
	FullName string          `json:"full_name"`
	Value    decimal.Decimal `json:"value"`
}

type RegionSalesDTO struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

type MonthlyTrendDTO struct {
	Name   string          `json:"name"`
	Sales  decimal.Decimal `json:"sales"`
	Costs  decimal.Decimal `json:"costs"`
	Profit decimal.Decimal `json:"profit"`
}

type DashboardStatsDTO struct {
	TopProducts   []TopProductDTO   `json:"top_products"`
	SalesByRegion []RegionSalesDTO  `json:"sales_by_region"`
	MonthlyTrend  []MonthlyTrendDTO `json:"monthly_trend"`
}

// ChurnStatus is the activity tier used by retention segmentation
type ChurnStatus string

const (
	ChurnActive ChurnStatus = "active"
	ChurnRisk   ChurnStatus = "risk"
	ChurnLost   ChurnStatus = "lost"
)

type RetentionClientDTO struct {
	ID                     uint            `json:"id"`
	Name                   string          `json:"name"`
	Company                string          `json:"company,omitempty"`
	Email                  string          `json:"email"`
	Phone                  string          `json:"phone,omitempty"`
	LastOrderDate          *string         `json:"last_order_date"`
	DaysInactive           int             `json:"days_inactive"`
	Status                 ChurnStatus     `json:"status"`
	TotalSpent             decimal.Decimal `json:"total_spent"`
	LastProduct            string          `json:"last_product"`
	Region                 string          `json:"region,omitempty"`
	Commune                string          `json:"commune,omitempty"`
	RetentionStatus        RetentionStatus `json:"retention_status"`
	LastRetentionContactAt *string         `json:"last_retention_contact_at"`
}

type RetentionSummaryDTO struct {
	Active       int `json:"active"`
	Risk         int `json:"risk"`
	Lost         int `json:"lost"`
	TotalClients int `json:"total_clients"`
}

type RetentionReportDTO struct {
	Summary RetentionSummaryDTO  `json:"summary"`
	Clients []RetentionClientDTO `json:"clients"`
}

type CustomerOptionDTO struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type FilterOptionsDTO struct {
	Regions   []string            `json:"regions"`
	Communes  []string            `json:"communes"`
	Customers []CustomerOptionDTO `json:"customers"`
	Months    []string            `json:"months"`
}

// PaginatedResponse wraps a page of results
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// MessageResponse is returned by actions that have no resource to show
type MessageResponse struct {
	Message string `json:"message"`
}

// Request DTOs

type QuoteCustomerInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Surname string `json:"surname" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Company string `json:"company" validate:"max=150"`
	Phone   string `json:"phone" validate:"max=30"`
}

type QuoteItemInput struct {
	Type        ItemOrigin `json:"type" validate:"required,oneof=LINK MANUAL CATALOG"`
	Description string     `json:"description" validate:"required"`
	Quantity    int        `json:"quantity" validate:"omitempty,min=1"`
	Reference   string     `json:"reference"`
	ProductID   *uint      `json:"product_id"`
}

type SubmitQuoteRequest struct {
	Customer QuoteCustomerInput `json:"customer"`
	Items    []QuoteItemInput   `json:"items" validate:"required,min=1,dive"`
	Region   string             `json:"region" validate:"max=100"`
	Commune  string             `json:"commune" validate:"max=100"`
}

type UpdateLineItemInput struct {
	// ID selects an existing line of the order; nil appends a new line
	ID            *uint            `json:"id"`
	Description   *string          `json:"description" validate:"omitempty,min=1"`
	Quantity      *int             `json:"quantity" validate:"omitempty,min=1"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	Type          *ItemOrigin      `json:"type" validate:"omitempty,oneof=LINK MANUAL CATALOG"`
	Reference     *string          `json:"reference"`
	ProductID     *uint            `json:"product_id"`
}

type UpdateOrderRequest struct {
	UrgencyPct        *decimal.Decimal       `json:"urgency_pct"`
	ShippingCost      *decimal.Decimal       `json:"shipping_cost"`
	Region            *string                `json:"region" validate:"omitempty,max=100"`
	Commune           *string                `json:"commune" validate:"omitempty,max=100"`
	ShippingMethod    *ShippingMethod        `json:"shipping_method" validate:"omitempty,oneof=STARKEN CHILEXPRESS BLUE OTHER"`
	CustomCarrierName *string                `json:"custom_carrier_name" validate:"omitempty,max=100"`
	ShippingOptions   map[string]interface{} `json:"shipping_options"`
	AssignedToID      *uint                  `json:"assigned_to_id"`
	// Items being non-nil marks a quote edit
	Items []UpdateLineItemInput `json:"items" validate:"omitempty,dive"`
}

type PortalActionRequest struct {
	Action string `json:"action" validate:"required"`
}

type SelectShippingRequest struct {
	ShippingMethod    ShippingMethod `json:"shipping_method" validate:"required"`
	CustomCarrierName string         `json:"custom_carrier_name" validate:"max=100"`
}

type MarkDispatchedRequest struct {
	Carrier       string `json:"carrier" validate:"required,max=100"`
	WaybillNumber string `json:"waybill_number" validate:"required,max=100"`
}

type ShippingEstimateRequest struct {
	Commune string `json:"commune" validate:"required"`
}

type CustomerRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Surname string `json:"surname" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Company string `json:"company" validate:"max=150"`
	Phone   string `json:"phone" validate:"max=30"`
}

type ProductRequest struct {
	Name           string          `json:"name" validate:"required,max=200"`
	Description    string          `json:"description"`
	ReferencePrice decimal.Decimal `json:"reference_price"`
	ImageURL       string          `json:"image_url" validate:"omitempty,url,max=500"`
	Category       string          `json:"category" validate:"max=100"`
	Active         *bool           `json:"active"`
}

type RetentionStatusRequest struct {
	Status RetentionStatus `json:"status" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email,max=254"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}
