package domain

import "github.com/shopspring/decimal"

// TaxRate is the Chilean IVA applied to the net amount
var TaxRate = decimal.RequireFromString("0.19")

var hundred = decimal.NewFromInt(100)

// OrderTotals is the derived money breakdown of an order
type OrderTotals struct {
	Subtotal  decimal.Decimal
	Surcharge decimal.Decimal
	Net       decimal.Decimal
	Tax       decimal.Decimal
	Shipping  decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals derives the quote total from line items, urgency percentage and shipping.
// Line subtotals are recomputed from quantity and unit price; the stored value is ignored.
// Only Total is rounded, half-up to whole currency units.
func ComputeTotals(items []LineItem, urgencyPct, shipping decimal.Decimal) OrderTotals {
	subtotal := decimal.Zero
	for i := range items {
		subtotal = subtotal.Add(items[i].LineTotal())
	}

	surcharge := subtotal.Mul(urgencyPct).Div(hundred)
	net := subtotal.Add(surcharge)
	tax := net.Mul(TaxRate)

	return OrderTotals{
		Subtotal:  subtotal,
		Surcharge: surcharge,
		Net:       net,
		Tax:       tax,
		Shipping:  shipping,
		Total:     net.Add(tax).Add(shipping).Round(0),
	}
}

// Totals computes the money breakdown from the loaded items
func (o *Order) Totals() OrderTotals {
	return ComputeTotals(o.Items, o.UrgencyPct, o.ShippingCost)
}

// PurchaseCost is Σ(purchase price × quantity) over the loaded items
func (o *Order) PurchaseCost() decimal.Decimal {
	cost := decimal.Zero
	for i := range o.Items {
		cost = cost.Add(o.Items[i].LineCost())
	}
	return cost
}
