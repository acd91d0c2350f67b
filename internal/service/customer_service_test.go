package service_test

import (
	"testing"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := staffContext(domain.RoleSales)

	created, err := f.customers.Create(ctx, &domain.CustomerRequest{
		Name:    "Beatriz",
		Surname: "Muñoz",
		Email:   " Beatriz@Example.cl ",
		Company: "Muñoz SpA",
	})
	require.NoError(t, err)
	assert.Equal(t, "beatriz@example.cl", created.Email)
	assert.Equal(t, "Beatriz Muñoz", created.FullName)
	assert.Equal(t, domain.RetentionStatusPending, created.RetentionStatus)

	t.Run("email must be unique", func(t *testing.T) {
		_, err := f.customers.Create(ctx, &domain.CustomerRequest{Name: "Otra", Surname: "Persona", Email: "BEATRIZ@example.cl"})
		assert.ErrorIs(t, err, service.ErrEmailTaken)
	})

	t.Run("update keeps own email", func(t *testing.T) {
		updated, err := f.customers.Update(ctx, created.ID, &domain.CustomerRequest{
			Name: "Beatriz", Surname: "Muñoz Soto", Email: "beatriz@example.cl", Phone: "+56 9 1234 5678",
		})
		require.NoError(t, err)
		assert.Equal(t, "Muñoz Soto", updated.Surname)
		assert.Equal(t, "+56 9 1234 5678", updated.Phone)
	})

	t.Run("list with search", func(t *testing.T) {
		testutil.CreateCustomer(t, f.db, "carlos")
		page, err := f.customers.List(ctx, 1, 20, "muñoz")
		require.NoError(t, err)
		assert.Equal(t, int64(1), page.Total)
	})

	t.Run("unknown customer", func(t *testing.T) {
		_, err := f.customers.GetByID(ctx, 123456)
		assert.ErrorIs(t, err, service.ErrCustomerNotFound)
	})
}

func TestCustomerService_DeleteProtectsOrders(t *testing.T) {
	f := newFixture(t)
	ctx := staffContext(domain.RoleManagement)

	withOrders := testutil.CreateCustomer(t, f.db, "daniela")
	testutil.CreateOrder(t, f.db, withOrders, testutil.OrderSpec{Status: domain.OrderStatusRejected})
	assert.ErrorIs(t, f.customers.Delete(ctx, withOrders.ID), service.ErrCustomerHasOrders)

	_, err := f.customers.GetByID(ctx, withOrders.ID)
	require.NoError(t, err)

	without := testutil.CreateCustomer(t, f.db, "emilio")
	require.NoError(t, f.customers.Delete(ctx, without.ID))
	_, err = f.customers.GetByID(ctx, without.ID)
	assert.ErrorIs(t, err, service.ErrCustomerNotFound)
}
