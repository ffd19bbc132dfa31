package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"church-payments/config"
	httpHandler "church-payments/internal/adapter/http/handler"
	"church-payments/internal/adapter/paypal"
	mongoStorage "church-payments/internal/adapter/storage/mongodb"
	redisStorage "church-payments/internal/adapter/storage/redis"
	"church-payments/internal/core/ports"
	"church-payments/internal/service"
	"church-payments/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env if present (local development); real deployments set the
	// environment directly.
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Church Payments")

	ctx := context.Background()

	// Initialize MongoDB
	client, db, err := mongoStorage.Connect(ctx, cfg.Mongo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := mongoStorage.EnsureIndexes(ctx, db, cfg.Mongo); err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB indexes")
	}
	log.Info().Msg("MongoDB connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	txnStore := mongoStorage.NewTransactionStore(db)
	requestRepo := mongoStorage.NewRefundRequestRepo(db)
	eventRepo := mongoStorage.NewWebhookEventRepository(db)
	failureRepo := mongoStorage.NewWebhookFailureRepository(db)
	auditRepo := mongoStorage.NewAuditRepository(db)
	transactor := mongoStorage.NewTransactor(ctx, client, log)

	// Initialize Redis stores
	dedupeCache := redisStorage.NewDedupeCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize processor client
	processor := paypal.NewClient(cfg.PayPal, nil, log)

	// Initialize core services
	tokenSvc := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	authorizer := service.NewAuthorizer()

	// Initialize business services
	checkoutSvc := service.NewCheckoutService(txnStore, processor, log)
	updater := service.NewLedgerUpdater(txnStore, log)
	strategy := service.SelectReservationStrategy(transactor, txnStore, requestRepo, updater, log)
	log.Info().Str("strategy", strategy.Name()).Msg("Reservation strategy selected")
	refundSvc := service.NewRefundService(txnStore, requestRepo, strategy, processor, authorizer, log)
	dispatcher := service.NewDispatcher(txnStore, updater, log)
	intakeSvc := service.NewWebhookIntake(eventRepo, failureRepo, dedupeCache, processor, dispatcher, log)
	querySvc := service.NewLedgerQueryService(txnStore, authorizer, log)
	auditSvc := service.NewAuditService(auditRepo, log)

	// Initialize health checkers
	mongoHealth := mongoStorage.NewHealthCheck(client)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Load OpenAPI spec for Swagger UI
	if specBytes, err := os.ReadFile("docs/api/openapi.yaml"); err == nil {
		httpHandler.SetSwaggerSpec(specBytes)
		log.Info().Msg("OpenAPI spec loaded for Swagger UI at /swagger")
	} else {
		log.Warn().Err(err).Msg("OpenAPI spec not found, Swagger UI will be unavailable")
	}

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		CheckoutSvc:    checkoutSvc,
		RefundSvc:      refundSvc,
		QuerySvc:       querySvc,
		IntakeSvc:      intakeSvc,
		TokenSvc:       tokenSvc,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{mongoHealth, redisHealth},
		AuditSvc:       auditSvc,
		Logger:         log,
	})

	// Start the reservation reaper
	reaperCtx, stopReaper := context.WithCancel(ctx)
	reaper := service.NewReaper(txnStore, requestRepo, cfg.Refund.ReaperInterval, cfg.Refund.StaleAfter, log)
	go reaper.Run(reaperCtx)

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	stopReaper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
