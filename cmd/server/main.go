package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appcredential "github.com/storesync/backend/internal/application/credential"
	appregistration "github.com/storesync/backend/internal/application/registration"
	appsync "github.com/storesync/backend/internal/application/sync"
	appwebhook "github.com/storesync/backend/internal/application/webhook"
	domainwebhook "github.com/storesync/backend/internal/domain/webhook"
	"github.com/storesync/backend/internal/infrastructure/cache"
	"github.com/storesync/backend/internal/infrastructure/config"
	"github.com/storesync/backend/internal/infrastructure/crypto"
	"github.com/storesync/backend/internal/infrastructure/ecommerce"
	"github.com/storesync/backend/internal/infrastructure/logger"
	"github.com/storesync/backend/internal/infrastructure/persistence"
	"github.com/storesync/backend/internal/infrastructure/telemetry"
	"github.com/storesync/backend/internal/interfaces/http/handler"
	"github.com/storesync/backend/internal/interfaces/http/middleware"
	"github.com/storesync/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting storesync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database with zap-bridged GORM logging
	gormLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLevel)
	db, err := persistence.Open(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected",
		zap.String("host", cfg.Database.Host),
		zap.String("database", cfg.Database.DBName),
	)

	// Dedup store: Redis when available, in-memory otherwise. The webhook
	// ledger stays authoritative either way.
	dedupFactory := cache.NewDedupStoreFactory(cfg.Redis, cache.WithLogger(log))
	dedupStore, err := dedupFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to create dedup store", zap.Error(err))
	}
	defer func() {
		if err := dedupStore.Close(); err != nil {
			log.Error("Error closing dedup store", zap.Error(err))
		}
	}()

	// Token encryption at rest
	cipher, err := crypto.NewTokenCipher(cfg.Security.CredentialKey)
	if err != nil {
		log.Fatal("Failed to initialize credential cipher", zap.Error(err))
	}

	// Platform API client
	platform, err := ecommerce.NewSallaAdapter(&ecommerce.SallaConfig{
		APIBaseURL:     cfg.Platform.APIBaseURL,
		UserAgent:      cfg.Platform.UserAgent,
		TimeoutSeconds: cfg.Platform.TimeoutSeconds,
		PageSize:       cfg.Platform.PageSize,
	})
	if err != nil {
		log.Fatal("Failed to initialize platform client", zap.Error(err))
	}

	// Initialize repositories
	credentialRepo := persistence.NewGormCredentialRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	checkoutRepo := persistence.NewGormCheckoutRepository(db.DB)
	snapshotRepo := persistence.NewGormOrderSnapshotRepository(db.DB)
	webhookLogRepo := persistence.NewGormWebhookLogRepository(db.DB)

	// Initialize application services
	credentialService := appcredential.NewService(credentialRepo, cipher)
	syncService := appsync.NewService(
		platform,
		platform,
		credentialService,
		productRepo,
		orderRepo,
		checkoutRepo,
		snapshotRepo,
		cfg.Platform.PageSize,
		log,
	)
	webhookService := appwebhook.NewService(
		webhookLogRepo,
		dedupStore,
		credentialService,
		syncService,
		domainwebhook.DedupConfig{TTL: cfg.Sync.DedupTTL, Enabled: true},
		log,
	)
	registrationService := appregistration.NewService(platform, credentialService, log)
	verifier := appwebhook.NewVerifier(cfg.Platform.WebhookSecret)

	// Initialize telemetry providers. Disabled config yields no-op providers,
	// so the instrumentation calls below stay unconditional.
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.TracesConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		if err := tracerProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		if err := logsProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	// From here on every log record is also exported with trace correlation
	log = telemetry.AttachOTELCore(log, logsProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	// Database query tracing and pool metrics
	dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:          cfg.Telemetry.Enabled,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}, log)
	if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider, telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Pipeline metrics: per-delivery and per-entity counters plus a periodic
	// per-store row count gauge
	countProvider := telemetry.NewGormEntityCountProvider(db.DB)
	pipelineMetrics, err := telemetry.NewPipelineMetrics(telemetry.PipelineMetricsConfig{
		Meter:         meterProvider.Meter("storesync-backend"),
		Logger:        log,
		CountProvider: countProvider,
	})
	if err != nil {
		log.Fatal("Failed to initialize pipeline metrics", zap.Error(err))
	}
	pipelineMetrics.StartPeriodicCollection(ctx, countProvider, 0)
	defer pipelineMetrics.Stop()

	webhookService.SetPipelineMetrics(pipelineMetrics)
	syncService.SetPipelineMetrics(pipelineMetrics)

	// Initialize HTTP handlers
	webhookHandler := handler.NewWebhookHandler(verifier, webhookService, log)
	syncHandler := handler.NewSyncHandler(syncService)
	registrationHandler := handler.NewRegistrationHandler(registrationService)
	credentialHandler := handler.NewCredentialHandler(credentialService)
	systemHandler := handler.NewSystemHandler()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. StoreContext - Resolve store id into context and logs
	// 8. Tracing + attribute injection + span error marking
	// 9. HTTPMetrics - Request counters and latency histograms
	// 10. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Store context resolution
	engine.Use(middleware.StoreContext())

	// Tracing. The injector must follow the tracing middleware so the span
	// exists when attributes are added.
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.TracingAttributeInjector())
	engine.Use(middleware.SpanErrorMarker())

	// HTTP metrics
	engine.Use(middleware.HTTPMetricsWithMeter(
		meterProvider.Meter("storesync-backend"),
		cfg.Telemetry.Enabled,
	))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health and readiness endpoints (outside API versioning)
	engine.GET("/health", healthHandler(db))
	engine.GET("/ready", readyHandler(db))

	// Webhook ingress. Registered directly on the engine because the
	// platform signs the raw body and sends no dashboard headers.
	engine.POST("/api/v1/webhooks/salla", webhookHandler.Receive)

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Store-scoped operations: credential lifecycle, reconciliation,
	// webhook registration
	storeRoutes := router.NewDomainGroup("stores", "/stores")
	storeRoutes.PUT("/:store_id/credential", credentialHandler.Connect)
	storeRoutes.GET("/:store_id/credential", credentialHandler.Get)
	storeRoutes.DELETE("/:store_id/credential", credentialHandler.Disconnect)
	storeRoutes.POST("/:store_id/sync/:kind", syncHandler.BulkSync)
	storeRoutes.POST("/:store_id/sync/:kind/:entity_id", syncHandler.SyncEntity)
	storeRoutes.POST("/:store_id/cleanup", syncHandler.CleanupDuplicates)
	storeRoutes.POST("/:store_id/refresh", syncHandler.RefreshFromSnapshots)
	storeRoutes.POST("/:store_id/webhooks/register", registrationHandler.RegisterAll)

	// Webhook metadata
	webhookRoutes := router.NewDomainGroup("webhooks", "/webhooks")
	webhookRoutes.GET("/subscriptions", registrationHandler.ListSubscriptions)
	webhookRoutes.POST("/replay", webhookHandler.Replay)

	// System routes
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(storeRoutes).
		Register(webhookRoutes).
		Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for the liveness endpoint
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}

// readyHandler returns a handler for the readiness endpoint. Readiness
// tracks only the database; a lost Redis degrades dedup to the ledger
// slow path without taking the service out of rotation.
func readyHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"time":   time.Now().Format(time.RFC3339),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	}
}
