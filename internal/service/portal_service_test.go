package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const validity = 21 * 24 * time.Hour

func TestPortalService_GetExpiresStaleQuotes(t *testing.T) {
	t.Run("quote still inside the validity window", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "julia")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart})

		f.clock.Advance(validity)
		dto, err := f.portal.Get(context.Background(), order.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusQuoted, dto.Status)
		assert.Empty(t, f.history(t, order.ID))
	})

	t.Run("quote past the validity window is rejected", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "kevin")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart})

		f.clock.Advance(validity + time.Second)
		dto, err := f.portal.Get(context.Background(), order.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusRejected, dto.Status)
		assert.Equal(t, domain.OrderStatusRejected, f.reload(t, order.ID).Status)

		rows := f.history(t, order.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, service.ActorPortal, rows[0].ChangedBy)
		assert.Equal(t, domain.OrderStatusRejected, rows[0].ToStatus)
	})

	t.Run("other states are never expired", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "laura")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusAccepted, UpdatedAt: fixtureStart})

		f.clock.Advance(90 * 24 * time.Hour)
		dto, err := f.portal.Get(context.Background(), order.TrackingID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusAccepted, dto.Status)
	})

	t.Run("unknown tracking id", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.portal.Get(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrOrderNotFound)
	})
}

func TestPortalService_Act(t *testing.T) {
	t.Run("accepting an expired quote fails with its new state", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "mario")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart})

		f.clock.Advance(30 * 24 * time.Hour)
		_, err := f.portal.Act(context.Background(), order.TrackingID, "accept")
		var te *service.TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, domain.OrderStatusRejected, te.Current)
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "nora")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart})

		_, err := f.portal.Act(context.Background(), order.TrackingID, "maybe")
		assert.ErrorIs(t, err, service.ErrInvalidAction)
		assert.Equal(t, domain.OrderStatusQuoted, f.reload(t, order.ID).Status)
	})

	t.Run("spanish action names are accepted", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "oscar")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart})

		dto, err := f.portal.Act(context.Background(), order.TrackingID, "Aceptar")
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusAccepted, dto.Status)
	})
}

func TestPortalService_SelectShipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := testutil.CreateCustomer(t, f.db, "pamela")

	newQuote := func(t *testing.T, options datatypes.JSONMap) *domain.Order {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status:    domain.OrderStatusQuoted,
			Commune:   "Providencia",
			UpdatedAt: fixtureStart,
			Items:     []testutil.ItemSpec{{Description: "Rack", Quantity: 1, UnitPrice: "10000"}},
		})
		if options != nil {
			require.NoError(t, f.orderRepo.UpdateFields(ctx, order.ID, map[string]interface{}{
				"shipping_options": options,
				"updated_at":       fixtureStart,
			}))
		}
		return order
	}

	t.Run("uses the price stored by staff", func(t *testing.T) {
		order := newQuote(t, datatypes.JSONMap{"starken": "5200", "BLUE": map[string]interface{}{"cost": 3900}})

		dto, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{ShippingMethod: domain.ShippingMethodStarken})
		require.NoError(t, err)
		assert.True(t, dto.ShippingCost.Equal(testutil.Dec("5200")))

		dto, err = f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{ShippingMethod: domain.ShippingMethodBlue})
		require.NoError(t, err)
		assert.True(t, dto.ShippingCost.Equal(testutil.Dec("3900")))
	})

	t.Run("falls back to the zone estimate", func(t *testing.T) {
		order := newQuote(t, nil)

		dto, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{ShippingMethod: domain.ShippingMethodChilexpress})
		require.NoError(t, err)
		assert.True(t, dto.ShippingCost.Equal(testutil.Dec("6300")))
		assert.Equal(t, domain.ShippingMethodChilexpress, dto.ShippingMethod)

		stored := f.reload(t, order.ID)
		assert.True(t, stored.ShippingCost.Equal(testutil.Dec("6300")))
		assert.True(t, stored.Totals().Shipping.Equal(testutil.Dec("6300")))
	})

	t.Run("other carrier is free and keeps its name", func(t *testing.T) {
		order := newQuote(t, nil)

		dto, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{
			ShippingMethod:    domain.ShippingMethodOther,
			CustomCarrierName: "Transportes Sur",
		})
		require.NoError(t, err)
		assert.True(t, dto.ShippingCost.IsZero())
		assert.Equal(t, "Transportes Sur", dto.CustomCarrierName)
	})

	t.Run("custom name is dropped for named carriers", func(t *testing.T) {
		order := newQuote(t, nil)

		dto, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{
			ShippingMethod:    domain.ShippingMethodStarken,
			CustomCarrierName: "ignored",
		})
		require.NoError(t, err)
		assert.Empty(t, dto.CustomCarrierName)
	})

	t.Run("not written when payment is confirmed meanwhile", func(t *testing.T) {
		order := newQuote(t, nil)
		f.changeStatusAfterNextLoad(t, order.ID, domain.OrderStatusPaymentConfirmed)

		_, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{ShippingMethod: domain.ShippingMethodStarken})
		var te *service.TransitionError
		require.True(t, errors.As(err, &te), "got %v", err)
		assert.Equal(t, domain.OrderStatusPaymentConfirmed, te.Current)

		stored := f.reload(t, order.ID)
		assert.Empty(t, stored.ShippingMethod)
		assert.True(t, stored.ShippingCost.IsZero())
	})

	t.Run("not allowed once paid", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusPaymentConfirmed})
		_, err := f.portal.SelectShipping(ctx, order.TrackingID, &domain.SelectShippingRequest{ShippingMethod: domain.ShippingMethodStarken})
		assert.ErrorIs(t, err, service.ErrInvalidTransition)
	})
}

func TestPortalService_ExpireStaleQuotes(t *testing.T) {
	f := newFixture(t)
	customer := testutil.CreateCustomer(t, f.db, "quique")

	stale1 := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart.Add(-40 * 24 * time.Hour)})
	stale2 := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart.Add(-22 * 24 * time.Hour)})
	fresh := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted, UpdatedAt: fixtureStart.Add(-20 * 24 * time.Hour)})
	accepted := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusAccepted, UpdatedAt: fixtureStart.Add(-60 * 24 * time.Hour)})

	expired, err := f.portal.ExpireStaleQuotes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, expired)

	for _, o := range []*domain.Order{stale1, stale2} {
		assert.Equal(t, domain.OrderStatusRejected, f.reload(t, o.ID).Status)
		rows := f.history(t, o.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, service.ActorSystem, rows[0].ChangedBy)
	}
	assert.Equal(t, domain.OrderStatusQuoted, f.reload(t, fresh.ID).Status)
	assert.Equal(t, domain.OrderStatusAccepted, f.reload(t, accepted.ID).Status)

	again, err := f.portal.ExpireStaleQuotes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, again)
}
