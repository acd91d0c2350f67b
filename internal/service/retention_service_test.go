package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func daysAgo(n int) time.Time {
	return fixtureStart.Add(-time.Duration(n) * 24 * time.Hour)
}

func TestClassifyChurn(t *testing.T) {
	tests := []struct {
		days int
		want domain.ChurnStatus
	}{
		{0, domain.ChurnActive},
		{30, domain.ChurnActive},
		{31, domain.ChurnRisk},
		{90, domain.ChurnRisk},
		{91, domain.ChurnLost},
		{999, domain.ChurnLost},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, service.ClassifyChurn(tt.days), "days=%d", tt.days)
	}
}

func TestRetentionService_Report(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := testutil.CreateCustomer(t, f.db, "activo")
	bigRisk := testutil.CreateCustomer(t, f.db, "riesgo-alto")
	smallRisk := testutil.CreateCustomer(t, f.db, "riesgo-bajo")
	lost := testutil.CreateCustomer(t, f.db, "perdido")
	never := testutil.CreateCustomer(t, f.db, "nuevo")
	onlyRejected := testutil.CreateCustomer(t, f.db, "rechazado")

	testutil.CreateOrder(t, f.db, active, testutil.OrderSpec{
		Status: domain.OrderStatusAccepted, CreatedAt: daysAgo(10), Region: "Metropolitana", Commune: "Santiago",
		Items: []testutil.ItemSpec{{Description: "Teclado", Quantity: 1, UnitPrice: "20000"}},
	})
	testutil.CreateOrder(t, f.db, bigRisk, testutil.OrderSpec{
		Status: domain.OrderStatusCompleted, CreatedAt: daysAgo(200),
		Items: []testutil.ItemSpec{{Description: "Servidor", Quantity: 1, UnitPrice: "900000"}},
	})
	testutil.CreateOrder(t, f.db, bigRisk, testutil.OrderSpec{
		Status: domain.OrderStatusDispatched, CreatedAt: daysAgo(45), Region: "Biobío",
		Items: []testutil.ItemSpec{{Description: "Disco", Quantity: 2, UnitPrice: "50000"}, {Description: "Cable", Quantity: 1, UnitPrice: "1000"}},
	})
	testutil.CreateOrder(t, f.db, smallRisk, testutil.OrderSpec{
		Status: domain.OrderStatusPaymentConfirmed, CreatedAt: daysAgo(60),
		Items: []testutil.ItemSpec{{Description: "Mouse", Quantity: 1, UnitPrice: "8000"}},
	})
	testutil.CreateOrder(t, f.db, lost, testutil.OrderSpec{
		Status: domain.OrderStatusCompleted, CreatedAt: daysAgo(120), Region: "Metropolitana",
		Items: []testutil.ItemSpec{{Description: "Impresora", Quantity: 1, UnitPrice: "150000"}},
	})
	testutil.CreateOrder(t, f.db, onlyRejected, testutil.OrderSpec{
		Status: domain.OrderStatusRejected, CreatedAt: daysAgo(5),
		Items: []testutil.ItemSpec{{Description: "Nada", Quantity: 1, UnitPrice: "1"}},
	})

	t.Run("classifies and sorts every customer", func(t *testing.T) {
		report, err := f.retention.Report(ctx, service.RetentionQuery{})
		require.NoError(t, err)

		assert.Equal(t, domain.RetentionSummaryDTO{Active: 1, Risk: 2, Lost: 3, TotalClients: 6}, report.Summary)

		ids := make([]uint, len(report.Clients))
		for i, c := range report.Clients {
			ids[i] = c.ID
		}
		assert.Equal(t, []uint{bigRisk.ID, smallRisk.ID, lost.ID, never.ID, onlyRejected.ID, active.ID}, ids)

		first := report.Clients[0]
		assert.Equal(t, domain.ChurnRisk, first.Status)
		assert.Equal(t, 45, first.DaysInactive)
		assert.True(t, first.TotalSpent.Equal(testutil.Dec("1001000")))
		assert.Equal(t, "Disco", first.LastProduct)
		assert.Equal(t, "Biobío", first.Region)
		require.NotNil(t, first.LastOrderDate)

		noOrders := report.Clients[3]
		assert.Equal(t, 999, noOrders.DaysInactive)
		assert.Equal(t, domain.ChurnLost, noOrders.Status)
		assert.Equal(t, "Sin compras", noOrders.LastProduct)
		assert.Nil(t, noOrders.LastOrderDate)
		assert.True(t, noOrders.TotalSpent.IsZero())
	})

	t.Run("location filter drops customers without orders", func(t *testing.T) {
		report, err := f.retention.Report(ctx, service.RetentionQuery{Regions: []string{"Metropolitana"}})
		require.NoError(t, err)
		require.Len(t, report.Clients, 2)
		assert.Equal(t, lost.ID, report.Clients[0].ID)
		assert.Equal(t, active.ID, report.Clients[1].ID)
	})

	t.Run("date filter applies to the last order", func(t *testing.T) {
		start := daysAgo(70)
		end := daysAgo(40)
		report, err := f.retention.Report(ctx, service.RetentionQuery{StartDate: &start, EndDate: &end})
		require.NoError(t, err)
		require.Len(t, report.Clients, 2)
		assert.Equal(t, bigRisk.ID, report.Clients[0].ID)
		assert.Equal(t, smallRisk.ID, report.Clients[1].ID)
	})

	t.Run("search", func(t *testing.T) {
		report, err := f.retention.Report(ctx, service.RetentionQuery{Search: "PERDIDO"})
		require.NoError(t, err)
		require.Len(t, report.Clients, 1)
		assert.Equal(t, lost.ID, report.Clients[0].ID)
	})
}

func TestRetentionService_SendEmail(t *testing.T) {
	t.Run("lost customers get the win-back template", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "tomas")
		testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusCompleted, CreatedAt: daysAgo(100)})

		_, err := f.retention.SendEmail(context.Background(), customer.ID)
		require.NoError(t, err)

		sent := f.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Subject, "Te extrañamos")

		stored, err := f.customerRepo.GetByID(context.Background(), customer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RetentionStatusContacted, stored.RetentionStatus)
		require.NotNil(t, stored.LastRetentionContactAt)
		assert.True(t, stored.LastRetentionContactAt.Equal(fixtureStart))
	})

	t.Run("customers at risk get the news template", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "ursula")
		testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusCompleted, CreatedAt: daysAgo(50)})

		_, err := f.retention.SendEmail(context.Background(), customer.ID)
		require.NoError(t, err)

		sent := f.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0].Subject, "tenemos novedades")
		assert.Contains(t, sent[0].Text, "50 días")
	})

	t.Run("mail failure leaves the status untouched", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.err = errors.New("rate limited")
		customer := testutil.CreateCustomer(t, f.db, "valeria")

		_, err := f.retention.SendEmail(context.Background(), customer.ID)
		assert.ErrorIs(t, err, service.ErrMailDelivery)

		stored, err := f.customerRepo.GetByID(context.Background(), customer.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RetentionStatusPending, stored.RetentionStatus)
		assert.Nil(t, stored.LastRetentionContactAt)
	})

	t.Run("unknown customer", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.retention.SendEmail(context.Background(), 777)
		assert.ErrorIs(t, err, service.ErrCustomerNotFound)
	})
}

func TestRetentionService_UpdateStatus(t *testing.T) {
	f := newFixture(t)
	customer := testutil.CreateCustomer(t, f.db, "walter")

	dto, err := f.retention.UpdateStatus(context.Background(), customer.ID, domain.RetentionStatusRecovered)
	require.NoError(t, err)
	assert.Equal(t, domain.RetentionStatusRecovered, dto.RetentionStatus)

	_, err = f.retention.UpdateStatus(context.Background(), customer.ID, domain.RetentionStatus("ghosted"))
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}
