package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/pdf"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/storage"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

func uintPtr(u uint) *uint { return &u }

func decPtr(s string) *decimal.Decimal {
	d := testutil.Dec(s)
	return &d
}

func originPtr(o domain.ItemOrigin) *domain.ItemOrigin { return &o }

func submitRequest(email string, items ...domain.QuoteItemInput) *domain.SubmitQuoteRequest {
	return &domain.SubmitQuoteRequest{
		Customer: domain.QuoteCustomerInput{
			Name:    "Ana",
			Surname: "Rojas",
			Email:   email,
			Company: "Rojas Ltda",
			Phone:   "+56911112222",
		},
		Items:   items,
		Region:  "Metropolitana",
		Commune: "Providencia",
	}
}

func TestQuoteService_Submit(t *testing.T) {
	t.Run("creates customer, order, items and history", func(t *testing.T) {
		f := newFixture(t)

		dto, err := f.quotes.Submit(context.Background(), submitRequest("Ana@Example.com",
			domain.QuoteItemInput{Type: domain.ItemOriginLink, Description: "Router", Quantity: 2, Reference: "https://shop.example/router"},
			domain.QuoteItemInput{Type: domain.ItemOriginManual, Description: "Instalación"},
		))
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusRequest, dto.Status)
		assert.Equal(t, "ana@example.com", dto.Customer.Email)
		require.Len(t, dto.Items, 2)
		assert.Equal(t, 2, dto.Items[0].Quantity)
		assert.Equal(t, 1, dto.Items[1].Quantity)
		for _, item := range dto.Items {
			assert.Nil(t, item.PurchasePrice)
		}

		rows := f.history(t, dto.ID)
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].FromStatus)
		assert.Equal(t, domain.OrderStatusRequest, rows[0].ToStatus)
		assert.Equal(t, "ana@example.com", rows[0].ChangedBy)
	})

	t.Run("reuses customer by email and keeps non-empty contact data", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		first, err := f.quotes.Submit(ctx, submitRequest("repeat@example.com",
			domain.QuoteItemInput{Type: domain.ItemOriginManual, Description: "Cable"}))
		require.NoError(t, err)

		req := submitRequest("REPEAT@example.com", domain.QuoteItemInput{Type: domain.ItemOriginManual, Description: "Switch"})
		req.Customer.Name = "Anita"
		req.Customer.Company = ""
		second, err := f.quotes.Submit(ctx, req)
		require.NoError(t, err)

		assert.Equal(t, first.Customer.ID, second.Customer.ID)
		assert.Equal(t, "Anita", second.Customer.Name)
		assert.Equal(t, "Rojas Ltda", second.Customer.Company)
	})

	t.Run("catalog items take the reference price", func(t *testing.T) {
		f := newFixture(t)
		product := &domain.FrequentProduct{Name: "Disco SSD", ReferencePrice: testutil.Dec("45990"), Active: true}
		require.NoError(t, f.productRepo.Create(context.Background(), product))

		dto, err := f.quotes.Submit(context.Background(), submitRequest("cat@example.com",
			domain.QuoteItemInput{Type: domain.ItemOriginCatalog, Description: "Disco SSD", Quantity: 2, ProductID: uintPtr(product.ID)},
			domain.QuoteItemInput{Type: domain.ItemOriginCatalog, Description: "Fantasma", ProductID: uintPtr(9999)},
		))
		require.NoError(t, err)
		require.Len(t, dto.Items, 2)
		assert.True(t, dto.Items[0].UnitPrice.Equal(testutil.Dec("45990")))
		assert.True(t, dto.Items[0].Subtotal.Equal(testutil.Dec("91980")))
		assert.True(t, dto.Items[1].UnitPrice.IsZero())
		assert.Nil(t, dto.Items[1].ProductID)
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.quotes.Submit(context.Background(), submitRequest("none@example.com"))
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("rolls back the customer when the order cannot be stored", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.db.Migrator().DropTable(&domain.LineItem{}))

		_, err := f.quotes.Submit(context.Background(), submitRequest("rollback@example.com",
			domain.QuoteItemInput{Type: domain.ItemOriginManual, Description: "Cable"}))
		require.Error(t, err)

		var customers int64
		require.NoError(t, f.db.Model(&domain.Customer{}).Count(&customers).Error)
		assert.Zero(t, customers)
		var orders int64
		require.NoError(t, f.db.Model(&domain.Order{}).Count(&orders).Error)
		assert.Zero(t, orders)
	})
}

func TestQuoteService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := staffContext(domain.RoleSales)
	customer := testutil.CreateCustomer(t, f.db, "elena")

	t.Run("editing items on a request quotes it", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusRequest,
			Items:  []testutil.ItemSpec{{Description: "Notebook", Quantity: 2}},
		})
		existing := order.Items[0].ID

		dto, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			UrgencyPct:   decPtr("10"),
			ShippingCost: decPtr("3000"),
			Items: []domain.UpdateLineItemInput{
				{ID: uintPtr(existing), UnitPrice: decPtr("1000"), PurchasePrice: decPtr("600")},
				{Description: strPtr("Mouse"), Quantity: intPtr(1), UnitPrice: decPtr("500"), Type: originPtr(domain.ItemOriginManual)},
			},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.OrderStatusQuoted, dto.Status)
		require.Len(t, dto.Items, 2)
		assert.True(t, dto.Totals.Subtotal.Equal(testutil.Dec("2500")))
		assert.True(t, dto.Totals.Surcharge.Equal(testutil.Dec("250")))
		assert.True(t, dto.Totals.Net.Equal(testutil.Dec("2750")))
		assert.True(t, dto.Totals.Tax.Equal(testutil.Dec("522.5")))
		assert.True(t, dto.Totals.Total.Equal(testutil.Dec("6273")))
		require.NotNil(t, dto.Items[0].PurchasePrice)
		assert.True(t, dto.Items[0].PurchasePrice.Equal(testutil.Dec("600")))

		rows := f.history(t, order.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.OrderStatusQuoted, rows[0].ToStatus)
		assert.Equal(t, "sales@clarotec.cl", rows[0].ChangedBy)
		assert.Equal(t, "quote prepared", rows[0].Notes)
	})

	t.Run("editing a quoted order keeps it quoted without new history", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusQuoted,
			Items:  []testutil.ItemSpec{{Description: "Monitor", Quantity: 1, UnitPrice: "90000"}},
		})
		dto, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			Items: []domain.UpdateLineItemInput{{ID: uintPtr(order.Items[0].ID), Quantity: intPtr(3)}},
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusQuoted, dto.Status)
		assert.True(t, dto.Totals.Subtotal.Equal(testutil.Dec("270000")))
		assert.Empty(t, f.history(t, order.ID))
	})

	t.Run("an item of another order aborts the whole edit", func(t *testing.T) {
		other := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Items: []testutil.ItemSpec{{Description: "Ajeno", Quantity: 1}},
		})
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Items: []testutil.ItemSpec{{Description: "Propio", Quantity: 1}},
		})

		_, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			UrgencyPct: decPtr("25"),
			Items: []domain.UpdateLineItemInput{
				{ID: uintPtr(order.Items[0].ID), UnitPrice: decPtr("100")},
				{ID: uintPtr(other.Items[0].ID), UnitPrice: decPtr("100")},
			},
		})
		assert.ErrorIs(t, err, service.ErrLineItemNotFound)

		stored := f.reload(t, order.ID)
		assert.Equal(t, domain.OrderStatusRequest, stored.Status)
		assert.True(t, stored.UrgencyPct.IsZero())
		assert.True(t, stored.Items[0].UnitPrice.IsZero())
	})

	t.Run("items cannot be edited after acceptance", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusAccepted,
			Items:  []testutil.ItemSpec{{Description: "Cerrado", Quantity: 1}},
		})
		_, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			Items: []domain.UpdateLineItemInput{{ID: uintPtr(order.Items[0].ID), Quantity: intPtr(5)}},
		})
		var te *service.TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, domain.OrderStatusAccepted, te.Current)
	})

	t.Run("items are not written when the customer accepts first", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusQuoted,
			Items:  []testutil.ItemSpec{{Description: "Switch", Quantity: 1, UnitPrice: "40000"}},
		})
		f.changeStatusAfterNextLoad(t, order.ID, domain.OrderStatusAccepted)

		_, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			UrgencyPct: decPtr("20"),
			Items: []domain.UpdateLineItemInput{
				{ID: uintPtr(order.Items[0].ID), UnitPrice: decPtr("55000")},
				{Description: strPtr("Cable"), Quantity: intPtr(1), UnitPrice: decPtr("2000"), Type: originPtr(domain.ItemOriginManual)},
			},
		})
		var te *service.TransitionError
		require.True(t, errors.As(err, &te), "got %v", err)
		assert.Equal(t, domain.OrderStatusAccepted, te.Current)

		stored := f.reload(t, order.ID)
		assert.Equal(t, domain.OrderStatusAccepted, stored.Status)
		assert.True(t, stored.UrgencyPct.IsZero())
		require.Len(t, stored.Items, 1)
		assert.True(t, stored.Items[0].UnitPrice.Equal(testutil.Dec("40000")))
		assert.Empty(t, f.history(t, order.ID))
	})

	t.Run("commercial fields can change in any state", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusAccepted})
		dto, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{ShippingCost: decPtr("4500"), Commune: strPtr("Ñuñoa")})
		require.NoError(t, err)
		assert.True(t, dto.ShippingCost.Equal(testutil.Dec("4500")))
		assert.Equal(t, "Ñuñoa", dto.Commune)
		assert.Equal(t, domain.OrderStatusAccepted, dto.Status)
	})

	t.Run("rejects negative amounts and new items without description", func(t *testing.T) {
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{})
		_, err := f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{UrgencyPct: decPtr("-1")})
		assert.ErrorIs(t, err, service.ErrInvalidInput)

		_, err = f.quotes.Update(ctx, order.ID, &domain.UpdateOrderRequest{
			Items: []domain.UpdateLineItemInput{{Quantity: intPtr(1)}},
		})
		assert.ErrorIs(t, err, service.ErrInvalidInput)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := f.quotes.Update(ctx, 999999, &domain.UpdateOrderRequest{})
		assert.ErrorIs(t, err, service.ErrOrderNotFound)
	})
}

func TestQuoteService_SendQuote(t *testing.T) {
	t.Run("emails the portal link", func(t *testing.T) {
		f := newFixture(t)
		customer := testutil.CreateCustomer(t, f.db, "fabian")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusQuoted,
			Items:  []testutil.ItemSpec{{Description: "Impresora", Quantity: 1, UnitPrice: "100000"}},
		})

		require.NoError(t, f.quotes.SendQuote(staffContext(domain.RoleSales), order.ID))

		sent := f.mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, customer.Email, sent[0].To)
		assert.Contains(t, sent[0].Subject, fmt.Sprintf("#%d", order.ID))
		assert.Contains(t, sent[0].Text, order.TrackingID.String())
		assert.Contains(t, sent[0].Text, "22-03-2024")
	})

	t.Run("mail failure is reported", func(t *testing.T) {
		f := newFixture(t)
		f.mailer.err = errors.New("sendgrid: 401")
		customer := testutil.CreateCustomer(t, f.db, "gabriela")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{Status: domain.OrderStatusQuoted})

		err := f.quotes.SendQuote(staffContext(domain.RoleSales), order.ID)
		assert.ErrorIs(t, err, service.ErrMailDelivery)
		assert.Equal(t, domain.OrderStatusQuoted, f.reload(t, order.ID).Status)
	})
}

func TestQuoteService_RenderPDF(t *testing.T) {
	t.Run("renders and archives the document", func(t *testing.T) {
		f := newFixture(t)
		archive, err := storage.NewLocalStorage(t.TempDir())
		require.NoError(t, err)
		svc := f.quoteService(pdf.NewQuoteRenderer(), archive)

		customer := testutil.CreateCustomer(t, f.db, "hector")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{
			Status: domain.OrderStatusQuoted,
			Items:  []testutil.ItemSpec{{Description: "Servidor", Quantity: 1, UnitPrice: "1500000"}},
		})

		data, filename, err := svc.RenderPDF(staffContext(domain.RoleSales), order.ID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(data), "%PDF-"))
		assert.Equal(t, fmt.Sprintf("Cotizacion_%d.pdf", order.ID), filename)

		rc, err := archive.Get(context.Background(), storage.QuoteKey(order.ID, fixtureStart))
		require.NoError(t, err)
		defer rc.Close()
		archived, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, data, archived)
	})

	t.Run("renderer failure is reported", func(t *testing.T) {
		f := newFixture(t)
		svc := f.quoteService(failingRenderer{}, storage.NopStorage{})
		customer := testutil.CreateCustomer(t, f.db, "ines")
		order := testutil.CreateOrder(t, f.db, customer, testutil.OrderSpec{})

		_, _, err := svc.RenderPDF(staffContext(domain.RoleSales), order.ID)
		assert.ErrorIs(t, err, service.ErrPDFRender)
	})
}
