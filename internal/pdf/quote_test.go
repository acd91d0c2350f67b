package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderQuote(t *testing.T) {
	order := &domain.Order{
		ID:           12,
		UrgencyPct:   decimal.NewFromInt(10),
		ShippingCost: decimal.NewFromInt(5000),
		Commune:      "Viña del Mar",
		Region:       "Valparaíso",
		Customer:     &domain.Customer{FirstName: "Ana", LastName: "Pérez", Email: "ana@example.com"},
		Items: []domain.LineItem{
			{Description: "Cable HDMI 2m", Quantity: 2, UnitPrice: decimal.NewFromInt(10000)},
			{Description: "Adaptador USB-C", Quantity: 1, UnitPrice: decimal.NewFromInt(5000)},
		},
	}
	issued := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	err := NewQuoteRenderer().RenderQuote(&buf, &QuoteDocument{
		CompanyName: "Clarotec",
		Order:       order,
		IssuedAt:    issued,
		ValidUntil:  issued.AddDate(0, 0, 21),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 500)
}

func TestRenderQuoteWithoutOrder(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, NewQuoteRenderer().RenderQuote(&buf, &QuoteDocument{}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
