package mapper

import (
	"time"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/domain"
)

const timeLayout = "2006-01-02T15:04:05Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToCustomerDTO converts Customer to CustomerDTO
func ToCustomerDTO(customer *domain.Customer) domain.CustomerDTO {
	if customer == nil {
		return domain.CustomerDTO{}
	}
	return domain.CustomerDTO{
		ID:                     customer.ID,
		Name:                   customer.FirstName,
		Surname:                customer.LastName,
		FullName:               customer.FullName(),
		Company:                customer.Company,
		Email:                  customer.Email,
		Phone:                  customer.Phone,
		RetentionStatus:        customer.RetentionStatus,
		LastRetentionContactAt: formatTimePtr(customer.LastRetentionContactAt),
		CreatedAt:              formatTime(customer.CreatedAt),
	}
}

// ToLineItemDTO converts LineItem to LineItemDTO. Purchase cost is only included for staff views.
func ToLineItemDTO(item *domain.LineItem, includeCost bool) domain.LineItemDTO {
	dto := domain.LineItemDTO{
		ID:          item.ID,
		Description: item.Description,
		Quantity:    item.Quantity,
		UnitPrice:   item.UnitPrice,
		Subtotal:    item.LineTotal(),
		Origin:      item.Origin,
		Reference:   item.Reference,
		ProductID:   item.ProductID,
	}
	if includeCost {
		cost := item.PurchasePrice
		dto.PurchasePrice = &cost
	}
	return dto
}

// ToOrderTotalsDTO converts the derived totals
func ToOrderTotalsDTO(t domain.OrderTotals) domain.OrderTotalsDTO {
	return domain.OrderTotalsDTO{
		Subtotal:  t.Subtotal,
		Surcharge: t.Surcharge,
		Net:       t.Net,
		Tax:       t.Tax,
		Shipping:  t.Shipping,
		Total:     t.Total,
	}
}

// ToOrderDTO converts an Order with its customer and items for staff views
func ToOrderDTO(order *domain.Order) domain.OrderDTO {
	return toOrderDTO(order, true)
}

// ToPortalOrderDTO converts an Order for the customer portal, without purchase costs
func ToPortalOrderDTO(order *domain.Order) domain.OrderDTO {
	return toOrderDTO(order, false)
}

func toOrderDTO(order *domain.Order, includeCost bool) domain.OrderDTO {
	totals := order.Totals()

	items := make([]domain.LineItemDTO, len(order.Items))
	for i := range order.Items {
		items[i] = ToLineItemDTO(&order.Items[i], includeCost)
	}

	options := map[string]interface{}(order.ShippingOptions)
	if options == nil {
		options = map[string]interface{}{}
	}

	return domain.OrderDTO{
		ID:                order.ID,
		TrackingID:        order.TrackingID,
		Customer:          ToCustomerDTO(order.Customer),
		AssignedToID:      order.AssignedToID,
		Status:            order.Status,
		StatusLabel:       order.Status.Label(),
		UrgencyPct:        order.UrgencyPct,
		ShippingCost:      order.ShippingCost,
		Region:            order.Region,
		Commune:           order.Commune,
		ShippingMethod:    order.ShippingMethod,
		CustomCarrierName: order.CustomCarrierName,
		Carrier:           order.Carrier,
		WaybillNumber:     order.WaybillNumber,
		DispatchedAt:      formatTimePtr(order.DispatchedAt),
		ShippingOptions:   options,
		Items:             items,
		Totals:            ToOrderTotalsDTO(totals),
		TotalQuote:        totals.Total,
		CreatedAt:         formatTime(order.CreatedAt),
		UpdatedAt:         formatTime(order.UpdatedAt),
	}
}

// ToOrderDTOs converts a slice of orders for staff views
func ToOrderDTOs(orders []domain.Order) []domain.OrderDTO {
	dtos := make([]domain.OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = ToOrderDTO(&orders[i])
	}
	return dtos
}

// ToPortalOrderDTOs converts a slice of orders for customer-facing views
func ToPortalOrderDTOs(orders []domain.Order) []domain.OrderDTO {
	dtos := make([]domain.OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = ToPortalOrderDTO(&orders[i])
	}
	return dtos
}

// ToOrderStatusHistoryDTO converts OrderStatusHistory to its DTO
func ToOrderStatusHistoryDTO(h *domain.OrderStatusHistory) domain.OrderStatusHistoryDTO {
	return domain.OrderStatusHistoryDTO{
		ID:         h.ID,
		FromStatus: h.FromStatus,
		ToStatus:   h.ToStatus,
		ChangedBy:  h.ChangedBy,
		Notes:      h.Notes,
		ChangedAt:  formatTime(h.ChangedAt),
	}
}

// ToProductDTO converts FrequentProduct to ProductDTO. The reference price is staff-only.
func ToProductDTO(p *domain.FrequentProduct, includePrice bool) domain.ProductDTO {
	dto := domain.ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		Category:    p.Category,
		Active:      p.Active,
	}
	if includePrice {
		price := p.ReferencePrice
		dto.ReferencePrice = &price
	}
	return dto
}

// ToUserDTO converts User to UserDTO including the role's permissions
func ToUserDTO(u *domain.User) domain.UserDTO {
	return domain.UserDTO{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Role:        u.Role,
		Permissions: auth.PermissionsForRole(u.Role),
	}
}
