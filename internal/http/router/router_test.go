package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/domain"
	"github.com/clarotec/orders-api/internal/http/handler"
	"github.com/clarotec/orders-api/internal/http/middleware"
	"github.com/clarotec/orders-api/internal/http/router"
	"github.com/clarotec/orders-api/internal/mail"
	"github.com/clarotec/orders-api/internal/pdf"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/storage"
	"github.com/clarotec/orders-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testServer struct {
	handler http.Handler
	db      *gorm.DB
	tokens  *auth.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{
		App:  config.AppConfig{Name: "orders-api", Environment: "test", Port: 8080},
		Auth: config.AuthConfig{JWTSecret: "router-test-secret-0123456789", Issuer: "orders-api-test", AccessTokenTTL: 15, RefreshTokenTTL: 24, BcryptCost: bcrypt.MinCost},
		Quote: config.QuoteConfig{
			ValidityDays: 21,
			FrontendURL:  "https://clarotec.cl",
			CompanyName:  "Clarotec",
		},
		Security:  config.SecurityConfig{ContentTypeNosniff: true, FrameOptions: "DENY"},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}

	orderRepo := repository.NewOrderRepository(db)
	itemRepo := repository.NewOrderItemRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	tokens := auth.NewTokenManager(&cfg.Auth)
	notifier := service.NewNotifier(mail.NewLogMailer(log), &cfg.Quote, log)
	shipping := service.NewShippingService()
	quotes := service.NewQuoteService(db, orderRepo, itemRepo, customerRepo, productRepo, historyRepo,
		notifier, pdf.NewQuoteRenderer(), storage.NopStorage{}, &cfg.Quote, log)
	orders := service.NewOrderService(orderRepo, historyRepo, log)
	lifecycle := service.NewOrderLifecycleService(db, orderRepo, historyRepo, notifier, log)
	portal := service.NewPortalService(db, orderRepo, historyRepo, &cfg.Quote, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		auth.NewMiddleware(tokens, log),
		middleware.NewRateLimiter(&cfg.RateLimit, log),
		handler.NewAuthHandler(service.NewUserService(userRepo, tokens, &cfg.Auth, log), log),
		handler.NewQuoteHandler(quotes, shipping, log),
		handler.NewOrderHandler(orders, quotes, lifecycle, log),
		handler.NewPortalHandler(portal, orders, log),
		handler.NewProductHandler(service.NewProductService(productRepo, itemRepo, log), log),
		handler.NewCustomerHandler(service.NewCustomerService(customerRepo, log), log),
		handler.NewBIHandler(service.NewBIService(orderRepo, shipping, log), service.NewRetentionService(customerRepo, orderRepo, notifier, log), log),
	)

	return &testServer{handler: rt.Setup(), db: db, tokens: tokens}
}

func (s *testServer) tokenFor(t *testing.T, role domain.UserRole) string {
	t.Helper()
	hash, err := auth.HashPassword("irrelevante", bcrypt.MinCost)
	require.NoError(t, err)
	user := testutil.CreateUser(t, s.db, string(role)+"@clarotec.cl", role, hash)
	access, _, err := s.tokens.IssuePair(user)
	require.NoError(t, err)
	return access
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func submitBody(email string) map[string]interface{} {
	return map[string]interface{}{
		"customer": map[string]string{"name": "Rocío", "surname": "Fuentes", "email": email},
		"items":    []map[string]interface{}{{"type": "MANUAL", "description": "Notebook 14\"", "quantity": 1}},
		"region":   "Metropolitana",
		"commune":  "Providencia",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPublicQuoteFlow(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/solicitudes/", "", submitBody("rocio@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var order domain.OrderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	assert.Equal(t, domain.OrderStatusRequest, order.Status)

	rec = s.do(t, http.MethodGet, "/api/portal/pedidos/"+order.TrackingID.String()+"/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	rec = s.do(t, http.MethodGet, "/api/portal/pedidos/no-es-un-uuid", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestValidationErrorsUseJSONFieldNames(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/register", "", map[string]string{"email": "nuevo@example.com", "password": "clave-segura"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var apiErr domain.APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "first_name")
	assert.Contains(t, apiErr.Errors, "last_name")

	rec = s.do(t, http.MethodPost, "/api/solicitudes", "", map[string]interface{}{
		"customer": map[string]string{"name": "A", "surname": "B", "email": "a@example.com"},
		"items":    []interface{}{},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
	assert.Contains(t, apiErr.Errors, "items")
}

func TestStaffRoutesRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/api/pedidos", "/api/pedidos/solicitudes", "/api/bi/kpis", "/api/clientes-crud", "/api/users/me"} {
		rec := s.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := s.do(t, http.MethodGet, "/api/pedidos", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRolePermissions(t *testing.T) {
	s := newTestServer(t)
	sales := s.tokenFor(t, domain.RoleSales)
	dispatcher := s.tokenFor(t, domain.RoleDispatcher)
	admin := s.tokenFor(t, domain.RoleAdmin)
	management := s.tokenFor(t, domain.RoleManagement)
	customer := s.tokenFor(t, domain.RoleCustomer)

	tests := []struct {
		name   string
		token  string
		path   string
		status int
	}{
		{"sales sees requests", sales, "/api/pedidos/solicitudes", http.StatusOK},
		{"sales cannot see payments", sales, "/api/pedidos/aceptados", http.StatusForbidden},
		{"admin sees payments", admin, "/api/pedidos/aceptados", http.StatusOK},
		{"admin cannot dispatch", admin, "/api/pedidos/para-despachar", http.StatusForbidden},
		{"dispatcher sees dispatch queue", dispatcher, "/api/pedidos/para-despachar/", http.StatusOK},
		{"dispatcher cannot edit quotes", dispatcher, "/api/pedidos/solicitudes", http.StatusForbidden},
		{"sales cannot see reports", sales, "/api/bi/kpis", http.StatusForbidden},
		{"management sees reports", management, "/api/bi/kpis", http.StatusOK},
		{"management sees retention", management, "/api/bi/retention", http.StatusOK},
		{"customer cannot list orders", customer, "/api/pedidos", http.StatusForbidden},
		{"customer lists own orders", customer, "/api/portal/mis-pedidos", http.StatusOK},
		{"staff cannot use customer listing", sales, "/api/portal/mis-pedidos", http.StatusForbidden},
		{"logistics info is public", "", "/api/bi/info-logistica", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, tt.token, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestOrderByIDRoutes(t *testing.T) {
	s := newTestServer(t)
	sales := s.tokenFor(t, domain.RoleSales)

	rec := s.do(t, http.MethodPost, "/api/solicitudes", "", submitBody("ids@example.com"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var order domain.OrderDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &order))
	path := "/api/pedidos/" + strconv.FormatUint(uint64(order.ID), 10)
	rec = s.do(t, http.MethodGet, path, sales, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/pedidos/999999", sales, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, path+"/confirmar-pago", sales, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPost, path+"/rechazar", sales, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPost, path+"/rechazar", sales, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
