package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clarotec/orders-api/docs"
	"github.com/clarotec/orders-api/internal/auth"
	"github.com/clarotec/orders-api/internal/config"
	"github.com/clarotec/orders-api/internal/database"
	"github.com/clarotec/orders-api/internal/http/handler"
	"github.com/clarotec/orders-api/internal/http/middleware"
	"github.com/clarotec/orders-api/internal/http/router"
	"github.com/clarotec/orders-api/internal/jobs"
	"github.com/clarotec/orders-api/internal/logger"
	"github.com/clarotec/orders-api/internal/mail"
	"github.com/clarotec/orders-api/internal/pdf"
	"github.com/clarotec/orders-api/internal/repository"
	"github.com/clarotec/orders-api/internal/service"
	"github.com/clarotec/orders-api/internal/storage"
	"go.uber.org/zap"
)

// @title Clarotec Orders API
// @version 1.0
// @description Quoting, order lifecycle and business intelligence API for Clarotec

// @contact.name Clarotec
// @contact.email soporte@clarotec.cl

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

const quoteExpiryTimeout = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	switch basicCfg.App.Environment {
	case "staging":
		docs.SwaggerInfo.Host = "api-staging.clarotec.cl"
	case "production":
		docs.SwaggerInfo.Host = "api.clarotec.cl"
	default:
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Development reads secrets from the environment, other environments from Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	archive, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	mailer, err := mail.NewMailer(&cfg.Mail, log)
	if err != nil {
		return fmt.Errorf("failed to initialize mailer: %w", err)
	}
	log.Info("Mailer initialized", zap.String("provider", cfg.Mail.Provider))

	// Repositories
	orderRepo := repository.NewOrderRepository(db)
	itemRepo := repository.NewOrderItemRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	historyRepo := repository.NewOrderStatusHistoryRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services
	tokens := auth.NewTokenManager(&cfg.Auth)
	notifier := service.NewNotifier(mailer, &cfg.Quote, log)
	shippingService := service.NewShippingService()
	quoteService := service.NewQuoteService(db, orderRepo, itemRepo, customerRepo, productRepo, historyRepo,
		notifier, pdf.NewQuoteRenderer(), archive, &cfg.Quote, log)
	orderService := service.NewOrderService(orderRepo, historyRepo, log)
	lifecycleService := service.NewOrderLifecycleService(db, orderRepo, historyRepo, notifier, log)
	portalService := service.NewPortalService(db, orderRepo, historyRepo, &cfg.Quote, log)
	customerService := service.NewCustomerService(customerRepo, log)
	productService := service.NewProductService(productRepo, itemRepo, log)
	userService := service.NewUserService(userRepo, tokens, &cfg.Auth, log)
	biService := service.NewBIService(orderRepo, shippingService, log)
	retentionService := service.NewRetentionService(customerRepo, orderRepo, notifier, log)

	// Middleware
	authMiddleware := auth.NewMiddleware(tokens, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	rt := router.NewRouter(
		cfg,
		log,
		db,
		authMiddleware,
		rateLimiter,
		handler.NewAuthHandler(userService, log),
		handler.NewQuoteHandler(quoteService, shippingService, log),
		handler.NewOrderHandler(orderService, quoteService, lifecycleService, log),
		handler.NewPortalHandler(portalService, orderService, log),
		handler.NewProductHandler(productService, log),
		handler.NewCustomerHandler(customerService, log),
		handler.NewBIHandler(biService, retentionService, log),
	)

	var scheduler *jobs.Scheduler
	if cfg.Jobs.QuoteExpiryEnabled {
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterQuoteExpiryJob(scheduler, portalService, log, cfg.Jobs.QuoteExpiryCron, quoteExpiryTimeout); err != nil {
			log.Error("Failed to register quote expiry job", zap.Error(err))
		} else {
			scheduler.Start()
			log.Info("Scheduler started",
				zap.Strings("jobs", scheduler.JobNames()),
				zap.String("cron_expr", cfg.Jobs.QuoteExpiryCron),
			)
		}
	} else {
		log.Info("Quote expiry sweep disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		if sqlDB, err := db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				log.Warn("Error closing database connection", zap.Error(err))
			}
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
