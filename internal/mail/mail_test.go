package mail

import (
	"context"
	"testing"

	"github.com/clarotec/orders-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewMailer(t *testing.T) {
	logger := zap.NewNop()

	m, err := NewMailer(&config.MailConfig{Provider: "log"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &LogMailer{}, m)

	m, err = NewMailer(&config.MailConfig{Provider: "sendgrid", SendGridAPIKey: "key", FromAddress: "ventas@clarotec.cl"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SendGridMailer{}, m)

	_, err = NewMailer(&config.MailConfig{Provider: "sendgrid"}, logger)
	assert.Error(t, err)

	_, err = NewMailer(&config.MailConfig{Provider: "pigeon"}, logger)
	assert.Error(t, err)
}

func TestLogMailerNeverFails(t *testing.T) {
	m := NewLogMailer(zap.NewNop())
	assert.NoError(t, m.Send(context.Background(), Message{To: "a@b.cl", Subject: "x"}))
}

func TestQuoteSentRendersPortalLink(t *testing.T) {
	msg, err := QuoteSent("ana@example.com", OrderEmail{
		CompanyName:  "Clarotec",
		CustomerName: "Ana",
		OrderID:      42,
		PortalURL:    "http://localhost:5173/portal/pedidos/abc",
		Total:        "$37.725",
		ValidUntil:   "05-11-2026",
	})
	require.NoError(t, err)

	assert.Equal(t, "ana@example.com", msg.To)
	assert.Equal(t, "Cotización para tu Pedido #42 - Clarotec", msg.Subject)
	assert.Contains(t, msg.HTML, "http://localhost:5173/portal/pedidos/abc")
	assert.Contains(t, msg.Text, "Total: $37.725")
	assert.Contains(t, msg.Text, "05-11-2026")
}

func TestHTMLIsEscaped(t *testing.T) {
	msg, err := PaymentRejected("x@example.com", OrderEmail{CompanyName: "Clarotec", CustomerName: "<b>Eve</b>", OrderID: 1})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<b>Eve</b>")
	assert.Contains(t, msg.Text, "<b>Eve</b>")
}

func TestDispatchedIncludesWaybill(t *testing.T) {
	msg, err := Dispatched("x@example.com", OrderEmail{
		CompanyName:   "Clarotec",
		CustomerName:  "Luis",
		OrderID:       7,
		Carrier:       "Starken",
		WaybillNumber: "WB-123",
	})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "WB-123")
	assert.Contains(t, msg.Text, "Starken")
}

func TestRetentionTemplatesDiffer(t *testing.T) {
	data := RetentionEmail{CompanyName: "Clarotec", CustomerName: "Ana", DaysInactive: 45, ShopURL: "http://shop"}

	risk, err := RetentionRisk("a@example.com", data)
	require.NoError(t, err)
	lost, err := RetentionLost("a@example.com", data)
	require.NoError(t, err)

	assert.Contains(t, risk.Text, "45 días")
	assert.Contains(t, lost.Subject, "extrañamos")
	assert.NotEqual(t, risk.Subject, lost.Subject)
}
