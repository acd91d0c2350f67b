package router

import (
	"encoding/json"
	"net/http"

	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/database"
	"github.com/clarotec/orders-api/internal/http/handler"
	"github.com/clarotec/orders-api/internal/http/middleware"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/clarotec/orders-api/docs" // swagger docs
)

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	authHandler     *handler.AuthHandler
	quoteHandler    *handler.QuoteHandler
	orderHandler    *handler.OrderHandler
	portalHandler   *handler.PortalHandler
	productHandler  *handler.ProductHandler
	customerHandler *handler.CustomerHandler
	biHandler       *handler.BIHandler
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	authHandler *handler.AuthHandler,
	quoteHandler *handler.QuoteHandler,
	orderHandler *handler.OrderHandler,
	portalHandler *handler.PortalHandler,
	productHandler *handler.ProductHandler,
	customerHandler *handler.CustomerHandler,
	biHandler *handler.BIHandler,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		authHandler:     authHandler,
		quoteHandler:    quoteHandler,
		orderHandler:    orderHandler,
		portalHandler:   portalHandler,
		productHandler:  productHandler,
		customerHandler: customerHandler,
		biHandler:       biHandler,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(chimw.StripSlashes)
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.Limit)
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
	}

	r.Route("/api", func(r chi.Router) {
		rt.publicRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)

			r.Get("/users/me", rt.authHandler.Me)
			r.Patch("/users/me/password", rt.authHandler.ChangePassword)

			r.With(rt.authMiddleware.RequirePermission(auth.PermissionOrdersOwn)).
				Get("/portal/mis-pedidos", rt.portalHandler.ListMine)

			rt.orderRoutes(r)
			rt.catalogRoutes(r)
			rt.biRoutes(r)
		})
	})

	return r
}

func (rt *Router) publicRoutes(r chi.Router) {
	r.With(rt.rateLimiter.LimitPublicSubmit).Post("/solicitudes", rt.quoteHandler.Submit)
	r.Post("/cotizacion/calcular-envio", rt.quoteHandler.EstimateShipping)
	r.Get("/productos/frecuentes", rt.productHandler.ListPublic)
	r.Get("/bi/info-logistica", rt.biHandler.LogisticsInfo)

	r.Post("/token", rt.authHandler.Login)
	r.Post("/token/refresh", rt.authHandler.Refresh)
	r.With(rt.rateLimiter.LimitPublicSubmit).Post("/register", rt.authHandler.Register)

	r.Route("/portal/pedidos/{tracking}", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Get("/", rt.portalHandler.Get)
		r.Post("/accion", rt.portalHandler.Act)
		r.Post("/seleccionar-envio", rt.portalHandler.SelectShipping)
		r.Post("/confirmar-recepcion", rt.portalHandler.ConfirmReceipt)
	})
}

func (rt *Router) orderRoutes(r chi.Router) {
	requireSales := rt.authMiddleware.RequirePermission(auth.PermissionQuotesManage)
	requirePayments := rt.authMiddleware.RequirePermission(auth.PermissionPaymentsManage)
	requireDispatch := rt.authMiddleware.RequirePermission(auth.PermissionDispatchManage)
	h := rt.orderHandler

	r.Route("/pedidos", func(r chi.Router) {
		r.With(requireSales).Get("/", h.List)

		r.With(requireSales).Get("/solicitudes", h.Queue(service.QueueRequests))
		r.With(requireSales).Get("/cotizados", h.Queue(service.QueueQuoted))
		r.With(requireSales).Get("/historial-cotizaciones", h.Queue(service.QueueQuoteHistory))
		r.With(requirePayments).Get("/aceptados", h.Queue(service.QueueAccepted))
		r.With(requirePayments).Get("/historial-pagos", h.Queue(service.QueuePaymentHistory))
		r.With(requireDispatch).Get("/para-despachar", h.Queue(service.QueueToDispatch))
		r.With(requireDispatch).Get("/historial-despachos", h.Queue(service.QueueDispatchHistory))

		r.Route("/{id:[0-9]+}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(requireSales)
				r.Get("/", h.GetByID)
				r.Patch("/", h.Update)
				r.Put("/", h.Update)
				r.Delete("/", h.Delete)
				r.Get("/historial", h.History)
				r.Post("/enviar-cotizacion", h.SendQuote)
				r.With(middleware.NoStore).Get("/pdf", h.PDF)
				r.Post("/rechazar", h.Cancel)
			})
			r.With(requirePayments).Post("/confirmar-pago", h.ConfirmPayment)
			r.With(requirePayments).Post("/rechazar-pago", h.RejectPayment)
			r.With(requireDispatch).Post("/marcar-despachado", h.MarkDispatched)
		})
	})
}

func (rt *Router) catalogRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(rt.authMiddleware.RequirePermission(auth.PermissionQuotesManage))

		r.Post("/productos/sincronizar", rt.productHandler.Sync)
		r.Route("/productos-crud", func(r chi.Router) {
			r.Get("/", rt.productHandler.List)
			r.Post("/", rt.productHandler.Create)
			r.Get("/{id}", rt.productHandler.GetByID)
			r.Put("/{id}", rt.productHandler.Update)
			r.Patch("/{id}", rt.productHandler.Update)
			r.Delete("/{id}", rt.productHandler.Delete)
		})

		r.Route("/clientes-crud", func(r chi.Router) {
			r.Get("/", rt.customerHandler.List)
			r.Post("/", rt.customerHandler.Create)
			r.Get("/{id}", rt.customerHandler.GetByID)
			r.Put("/{id}", rt.customerHandler.Update)
			r.Patch("/{id}", rt.customerHandler.Update)
			r.Delete("/{id}", rt.customerHandler.Delete)
		})
	})
}

func (rt *Router) biRoutes(r chi.Router) {
	r.Route("/bi", func(r chi.Router) {
		r.Use(rt.authMiddleware.RequirePermission(auth.PermissionReportsView))

		r.Get("/kpis", rt.biHandler.KPIs)
		r.Get("/rentabilidad", rt.biHandler.Profitability)
		r.Get("/dashboard-stats", rt.biHandler.DashboardStats)
		r.Get("/filter-options", rt.biHandler.FilterOptions)
		r.Get("/retention", rt.biHandler.Retention)
		r.Post("/retention/email/{id}", rt.biHandler.SendRetentionEmail)
		r.Post("/retention/status/{id}", rt.biHandler.UpdateRetentionStatus)
		r.Patch("/retention/status/{id}", rt.biHandler.UpdateRetentionStatus)
	})
}

func (rt *Router) databaseHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("database health check failed", zap.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "unhealthy",
			"service": "database",
			"error":   err.Error(),
		})
		return
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"open_connections": stats.OpenConnections,
			"in_use":           stats.InUse,
			"idle":             stats.Idle,
			"wait_count":       stats.WaitCount,
			"wait_duration_ms": stats.WaitDuration.Milliseconds(),
		},
	})
}

func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"database": "healthy"}
	status := http.StatusOK
	if err := database.HealthCheck(rt.db); err != nil {
		rt.logger.Error("readiness check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	overall := "healthy"
	if status != http.StatusOK {
		overall = "unhealthy"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": overall, "checks": checks})
}
