package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mail"
	"github.com/clarotec/orders-api/internal/pdf"
	"go.uber.org/zap"
)

// Notifier renders and sends customer emails for order events
type Notifier struct {
	mailer mail.Mailer
	cfg    *config.QuoteConfig
	logger *zap.Logger
}

func NewNotifier(mailer mail.Mailer, cfg *config.QuoteConfig, logger *zap.Logger) *Notifier {
	return &Notifier{mailer: mailer, cfg: cfg, logger: logger}
}

// PortalURL is the customer's link to the order in the public portal
func (n *Notifier) PortalURL(order *domain.Order) string {
	return fmt.Sprintf("%s/portal/pedidos/%s", strings.TrimRight(n.cfg.FrontendURL, "/"), order.TrackingID)
}

func (n *Notifier) orderEmail(order *domain.Order) mail.OrderEmail {
	data := mail.OrderEmail{
		CompanyName:   n.cfg.CompanyName,
		OrderID:       order.ID,
		PortalURL:     n.PortalURL(order),
		Total:         pdf.FormatMoney(order.Totals().Total),
		Carrier:       order.Carrier,
		WaybillNumber: order.WaybillNumber,
	}
	if order.Customer != nil {
		data.CustomerName = order.Customer.FirstName
	}
	return data
}

func recipient(order *domain.Order) string {
	if order.Customer == nil {
		return ""
	}
	return order.Customer.Email
}

// SendQuote emails the quote link; the error is returned to the caller
func (n *Notifier) SendQuote(ctx context.Context, order *domain.Order, validUntil time.Time) error {
	data := n.orderEmail(order)
	data.ValidUntil = validUntil.Format("02-01-2006")
	msg, err := mail.QuoteSent(recipient(order), data)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}

// PaymentConfirmed emails the payment confirmation; failures are logged only
func (n *Notifier) PaymentConfirmed(ctx context.Context, order *domain.Order) {
	n.sendLogged(ctx, order, "payment_confirmed", mail.PaymentConfirmed)
}

// PaymentRejected emails the payment rejection; failures are logged only
func (n *Notifier) PaymentRejected(ctx context.Context, order *domain.Order) {
	n.sendLogged(ctx, order, "payment_rejected", mail.PaymentRejected)
}

// Dispatched emails carrier and waybill; failures are logged only
func (n *Notifier) Dispatched(ctx context.Context, order *domain.Order) {
	n.sendLogged(ctx, order, "dispatched", mail.Dispatched)
}

func (n *Notifier) sendLogged(ctx context.Context, order *domain.Order, kind string, build func(string, mail.OrderEmail) (mail.Message, error)) {
	msg, err := build(recipient(order), n.orderEmail(order))
	if err == nil {
		err = n.mailer.Send(ctx, msg)
	}
	if err != nil {
		n.logger.Warn("failed to send order email",
			zap.String("kind", kind),
			zap.Uint("order_id", order.ID),
			zap.Error(err))
	}
}

// Retention emails a win-back message; lost selects the template for long-inactive customers
func (n *Notifier) Retention(ctx context.Context, customer *domain.Customer, daysInactive int, lost bool) error {
	data := mail.RetentionEmail{
		CompanyName:  n.cfg.CompanyName,
		CustomerName: customer.FirstName,
		DaysInactive: daysInactive,
		ShopURL:      strings.TrimRight(n.cfg.FrontendURL, "/"),
	}
	build := mail.RetentionRisk
	if lost {
		build = mail.RetentionLost
	}
	msg, err := build(customer.Email, data)
	if err != nil {
		return err
	}
	return n.mailer.Send(ctx, msg)
}
