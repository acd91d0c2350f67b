package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/mail"
	"github.com/clarotec/orders-api/internal/pdf"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/storage"
	"github.com/clarotec/orders-api/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// testClock is a settable time source shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingMailer keeps every message and fails when err is set
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type failingRenderer struct{}

func (failingRenderer) RenderQuote(w io.Writer, doc *pdf.QuoteDocument) error {
	return errors.New("font missing")
}

type fixture struct {
	db     *gorm.DB
	clock  *testClock
	mailer *recordingMailer
	cfg    *config.QuoteConfig

	orderRepo    *repository.OrderRepository
	historyRepo  *repository.OrderStatusHistoryRepository
	customerRepo *repository.CustomerRepository
	itemRepo     *repository.OrderItemRepository
	productRepo  *repository.ProductRepository
	notifier     *service.Notifier

	quotes    *service.QuoteService
	orders    *service.OrderService
	lifecycle *service.OrderLifecycleService
	portal    *service.PortalService
	customers *service.CustomerService
	products  *service.ProductService
	bi        *service.BIService
	retention *service.RetentionService
}

var fixtureStart = time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	clock := &testClock{now: fixtureStart}
	mailer := &recordingMailer{}
	cfg := &config.QuoteConfig{ValidityDays: 21, FrontendURL: "https://tienda.example.cl", CompanyName: "Clarotec"}

	orderRepo := repository.NewOrderRepository(db)
	itemRepo := repository.NewOrderItemRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	notifier := service.NewNotifier(mailer, cfg, logger)
	shippingSvc := service.NewShippingService()

	f := &fixture{
		db:           db,
		clock:        clock,
		mailer:       mailer,
		cfg:          cfg,
		orderRepo:    orderRepo,
		historyRepo:  historyRepo,
		customerRepo: customerRepo,
		itemRepo:     itemRepo,
		productRepo:  productRepo,
		notifier:     notifier,
		orders:       service.NewOrderService(orderRepo, historyRepo, logger),
		lifecycle:    service.NewOrderLifecycleService(db, orderRepo, historyRepo, notifier, logger),
		portal:       service.NewPortalService(db, orderRepo, historyRepo, cfg, logger),
		customers:    service.NewCustomerService(customerRepo, logger),
		products:     service.NewProductService(productRepo, itemRepo, logger),
		bi:           service.NewBIService(orderRepo, shippingSvc, logger),
		retention:    service.NewRetentionService(customerRepo, orderRepo, notifier, logger),
	}
	f.quotes = f.quoteService(pdf.NewQuoteRenderer(), storage.NopStorage{})
	f.lifecycle.SetClock(clock.Now)
	f.portal.SetClock(clock.Now)
	f.retention.SetClock(clock.Now)
	return f
}

// quoteService builds a QuoteService around the given document renderer and archive
func (f *fixture) quoteService(renderer pdf.Renderer, archive storage.Storage) *service.QuoteService {
	svc := service.NewQuoteService(f.db, f.orderRepo, f.itemRepo, f.customerRepo, f.productRepo, f.historyRepo,
		f.notifier, renderer, archive, f.cfg, zap.NewNop())
	svc.SetClock(f.clock.Now)
	return svc
}

func staffContext(role domain.UserRole) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:      1,
		Email:       string(role) + "@clarotec.cl",
		DisplayName: "Staff",
		Role:        role,
	})
}

func (f *fixture) reload(t *testing.T, id uint) *domain.Order {
	t.Helper()
	order, err := f.orderRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("reload order %d: %v", id, err)
	}
	return order
}

func (f *fixture) history(t *testing.T, id uint) []domain.OrderStatusHistory {
	t.Helper()
	rows, err := f.historyRepo.ListByOrder(context.Background(), id)
	if err != nil {
		t.Fatalf("history of order %d: %v", id, err)
	}
	return rows
}

// changeStatusAfterNextLoad sets orderID's status to status right after the next query on the
// orders table, simulating a concurrent request that commits between a service's read and write.
func (f *fixture) changeStatusAfterNextLoad(t *testing.T, orderID uint, status domain.OrderStatus) {
	t.Helper()
	fired := false
	name := fmt.Sprintf("test:change_status_%d", orderID)
	err := f.db.Callback().Query().After("gorm:query").Register(name, func(db *gorm.DB) {
		if fired || db.Error != nil || db.Statement.Table != "orders" {
			return
		}
		fired = true
		if err := f.db.Exec("UPDATE orders SET status = ? WHERE id = ?", status, orderID).Error; err != nil {
			t.Errorf("change status of order %d: %v", orderID, err)
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}
