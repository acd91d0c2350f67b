package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []domain.OrderStatus{
	domain.OrderStatusRequest,
	domain.OrderStatusQuoted,
	domain.OrderStatusAccepted,
	domain.OrderStatusPaymentConfirmed,
	domain.OrderStatusDispatched,
	domain.OrderStatusCompleted,
	domain.OrderStatusRejected,
}

type transitionCase struct {
	name    string
	allowed []domain.OrderStatus
	target  domain.OrderStatus
	run     func(f *fixture, order *domain.Order) error
}

func transitionCases() []transitionCase {
	staff := staffContext(domain.RoleManagement)
	return []transitionCase{
		{
			name:    "confirm payment",
			allowed: []domain.OrderStatus{domain.OrderStatusAccepted},
			target:  domain.OrderStatusPaymentConfirmed,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.lifecycle.ConfirmPayment(staff, o.ID)
				return err
			},
		},
		{
			name:    "reject payment",
			allowed: []domain.OrderStatus{domain.OrderStatusAccepted},
			target:  domain.OrderStatusRejected,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.lifecycle.RejectPayment(staff, o.ID)
				return err
			},
		},
		{
			name:    "mark dispatched",
			allowed: []domain.OrderStatus{domain.OrderStatusPaymentConfirmed},
			target:  domain.OrderStatusDispatched,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.lifecycle.MarkDispatched(staff, o.ID, &domain.MarkDispatchedRequest{Carrier: "Starken", WaybillNumber: "WB-1"})
				return err
			},
		},
		{
			name:    "cancel",
			allowed: []domain.OrderStatus{domain.OrderStatusRequest, domain.OrderStatusQuoted, domain.OrderStatusAccepted},
			target:  domain.OrderStatusRejected,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.lifecycle.Cancel(staff, o.ID)
				return err
			},
		},
		{
			name:    "portal accept",
			allowed: []domain.OrderStatus{domain.OrderStatusQuoted},
			target:  domain.OrderStatusAccepted,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.portal.Act(context.Background(), o.TrackingID, "accept")
				return err
			},
		},
		{
			name:    "portal reject",
			allowed: []domain.OrderStatus{domain.OrderStatusQuoted},
			target:  domain.OrderStatusRejected,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.portal.Act(context.Background(), o.TrackingID, "rechazar")
				return err
			},
		},
		{
			name:    "confirm receipt",
			allowed: []domain.OrderStatus{domain.OrderStatusDispatched},
			target:  domain.OrderStatusCompleted,
			run: func(f *fixture, o *domain.Order) error {
				_, err := f.portal.ConfirmReceipt(context.Background(), o.TrackingID)
				return err
			},
		},
	}
}

func TestOrderTransitions_AllowedAndRejected(t *testing.T) {
	for _, tc := range transitionCases() {
		for _, from := range allStatuses {
			tc, from := tc, from
			t.Run(tc.name+" from "+string(from), func(t *testing.T) {
				f := newFixture(t)
				customer := testutil.CreateCustomer(t, f.db, "ana")
				order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
					Status:    from,
					UpdatedAt: fixtureStart,
					Items:     []testutil.ItemSpec{{Description: "Cable", Quantity: 1, UnitPrice: "1000"}},
				})

				err := tc.run(f, order)
				stored := f.reload(t, order.ID)

				allowed := false
				for _, s := range tc.allowed {
					if s == from {
						allowed = true
					}
				}
				if allowed {
					require.NoError(t, err)
					assert.Equal(t, tc.target, stored.Status)
					rows := f.history(t, order.ID)
					require.Len(t, rows, 1)
					require.NotNil(t, rows[0].FromStatus)
					assert.Equal(t, from, *rows[0].FromStatus)
					assert.Equal(t, tc.target, rows[0].ToStatus)
					return
				}

				require.Error(t, err)
				assert.True(t, errors.Is(err, service.ErrInvalidTransition))
				var te *service.TransitionError
				require.True(t, errors.As(err, &te))
				assert.Equal(t, from, te.Current)
				assert.Equal(t, "current state is "+string(from), err.Error())
				assert.Equal(t, from, stored.Status)
				assert.Empty(t, f.history(t, order.ID))
			})
		}
	}
}

func TestOrderLifecycle_ConcurrentConfirmOnlyOneWins(t *testing.T) {
	f := newFixture(t)
	customer := testutil.CreateCustomer(t, f.db, "bruno")
	order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusAccepted})
	ctx := staffContext(domain.RoleAdmin)

	const attempts = 4
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.lifecycle.ConfirmPayment(ctx, order.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, service.ErrInvalidTransition), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.history(t, order.ID), 1)
	assert.Len(t, f.mailer.Sent(), 1)
}

func TestOrderLifecycle_MarkDispatched(t *testing.T) {
	f := newFixture(t)
	customer := testutil.CreateCustomer(t, f.db, "carla")
	ctx := staffContext(domain.RoleDispatcher)

	t.Run("requires carrier and waybill", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusPaymentConfirmed})
		_, err := f.lifecycle.MarkDispatched(ctx, order.ID, &domain.MarkDispatchedRequest{Carrier: "  ", WaybillNumber: "1"})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
		assert.Equal(t, domain.OrderStatusPaymentConfirmed, f.reload(t, order.ID).Status)
	})

	t.Run("stores dispatch data and emails the customer", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusPaymentConfirmed})
		dto, err := f.lifecycle.MarkDispatched(ctx, order.ID, &domain.MarkDispatchedRequest{Carrier: "Chilexpress", WaybillNumber: "99887766"})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusDispatched, dto.Status)

		stored := f.reload(t, order.ID)
		assert.Equal(t, "Chilexpress", stored.Carrier)
		assert.Equal(t, "99887766", stored.WaybillNumber)
		require.NotNil(t, stored.DispatchedAt)
		assert.True(t, stored.DispatchedAt.Equal(fixtureStart))

		rows := f.history(t, order.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, "dispatcher@clarotec.cl", rows[0].ChangedBy)

		sent := f.mailer.Sent()
		require.NotEmpty(t, sent)
		last := sent[len(sent)-1]
		assert.Equal(t, customer.Email, last.To)
		assert.True(t, strings.Contains(last.Text, "99887766"))
	})
}

func TestOrderLifecycle_NotificationFailureDoesNotUndoTransition(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp down")
	customer := testutil.CreateCustomer(t, f.db, "diego")
	order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusAccepted})

	dto, err := f.lifecycle.ConfirmPayment(staffContext(domain.RoleAdmin), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPaymentConfirmed, dto.Status)
	assert.Equal(t, domain.OrderStatusPaymentConfirmed, f.reload(t, order.ID).Status)
}

func TestOrderLifecycle_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.lifecycle.ConfirmPayment(staffContext(domain.RoleAdmin), 4242)
	assert.ErrorIs(t, err, service.ErrOrderNotFound)
}
