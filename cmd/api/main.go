package main

// @title Lead Sync API
// @version 1.0
// @description Receives CRM lead webhooks and keeps local leads, owners and assignment rules in step.

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/jordanlanch/leadsync/config"
	"github.com/jordanlanch/leadsync/pkg/api/handlers"
	apimiddleware "github.com/jordanlanch/leadsync/pkg/api/middleware"
	"github.com/jordanlanch/leadsync/pkg/app"
	"github.com/jordanlanch/leadsync/pkg/jobs"
	"github.com/jordanlanch/leadsync/pkg/logger"
	"github.com/jordanlanch/leadsync/pkg/metrics"
	custommiddleware "github.com/jordanlanch/leadsync/pkg/middleware"
	"github.com/jordanlanch/leadsync/pkg/secrets"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	secretsManager, err := secrets.NewManager(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize secrets manager: %v", err)
	}
	if err := secrets.Apply(context.Background(), secretsManager, cfg); err != nil {
		log.Fatalf("❌ Failed to load secrets: %v", err)
	}

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 0.2,
			AttachStacktrace: true,
		})
		if err != nil {
			log.Printf("⚠️  Failed to initialize Sentry: %v", err)
		} else {
			log.Printf("✅ Sentry initialized (environment: %s)", cfg.SentryEnvironment)
			defer sentry.Flush(2 * time.Second)
		}
	} else {
		log.Printf("ℹ️  Sentry disabled (no DSN configured)")
	}

	db, redisClient, err := app.Open(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	defer db.Close()
	defer redisClient.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatalf("❌ Failed to migrate database: %v", err)
	}
	cancelMigrate()
	log.Printf("✅ Database ready (%s)", db.Dialect())

	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	a, err := app.New(cfg, db, redisClient, prometheusMetrics, logger.New(cfg.LogLevel))
	if err != nil {
		log.Fatalf("❌ Failed to initialize services: %v", err)
	}
	if a.CRM == nil {
		log.Printf("⚠️  CRM credentials missing: leads are stored but not acknowledged")
	}

	e := echo.New()
	e.HideBanner = true

	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	webhookRateLimiter := custommiddleware.NewRateLimiter(cfg.WebhookRateLimitRequestsPerMinute, cfg.WebhookRateLimitBurst)

	// Global middleware
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Printf("[%s] %s - Status: %d", c.Request().Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig(cfg.CORSOrigins)))
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(middleware.Gzip())

	e.GET("/health", handlers.NewHealthHandler(db, redisClient).Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	webhookHandler := handlers.NewWebhookHandler(a.Receiver)
	ownerHandler := handlers.NewOwnerHandler(a.Owners)
	leadHandler := handlers.NewLeadHandler(a.Leads)
	logHandler := handlers.NewIntegrationLogHandler(a.Store, a.Processor)
	mappingHandler := handlers.NewFieldMappingHandler(a.Store, cfg.FieldMappingName)
	ruleHandler := handlers.NewCRMRuleHandler(a.Rules)
	userHandler := handlers.NewUserHandler(a.Store)

	var exchanger handlers.TokenExchanger
	if a.Tokens != nil {
		exchanger = a.Tokens
	}
	oauthHandler := handlers.NewOAuthHandler(exchanger)

	v1 := e.Group("/api/v1")

	// Public: the CRM posts here without credentials
	v1.POST("/webhooks/crm/leads", webhookHandler.ReceiveLead, webhookRateLimiter.RateLimitMiddleware())

	crmGroup := v1.Group("/crm/oauth", globalRateLimiter.RateLimitMiddleware())
	crmGroup.GET("/authorize", oauthHandler.Authorize)
	crmGroup.GET("/callback", oauthHandler.Callback)

	// Export links are opened from the browser, so the token may come in the query string
	v1.GET("/admin/integration-logs/export", logHandler.ExportLogs,
		globalRateLimiter.RateLimitMiddleware(),
		apimiddleware.JWTFromQueryOrHeader(cfg.JWTSecret),
		custommiddleware.RequireAdmin(),
	)

	admin := v1.Group("/admin",
		globalRateLimiter.RateLimitMiddleware(),
		apimiddleware.JWTMiddleware(cfg.JWTSecret),
		custommiddleware.RequireAdmin(),
	)

	admin.POST("/leads/owners/resync", ownerHandler.ResyncOwners)
	admin.POST("/leads/owners/backfill-names", ownerHandler.BackfillOwnerNames)
	admin.POST("/leads/:id/owner/sync", ownerHandler.SyncLeadOwner)
	admin.POST("/leads", leadHandler.CreateLead)
	admin.GET("/leads/:id", leadHandler.GetLead)
	admin.PUT("/leads/:id", leadHandler.UpdateLead)

	admin.GET("/integration-logs", logHandler.ListLogs)
	admin.POST("/integration-logs/sweep", logHandler.SweepLogs)
	admin.GET("/integration-logs/:id", logHandler.GetLog)
	admin.POST("/integration-logs/:id/retry", logHandler.RetryLog)
	admin.POST("/integration-logs/:id/fail", logHandler.FailLog)

	admin.GET("/field-mappings", mappingHandler.GetMappings)
	admin.PUT("/field-mappings", mappingHandler.ReplaceMappings)
	admin.GET("/field-mappings/fields", mappingHandler.ListFields)
	admin.POST("/field-mappings/default", mappingHandler.SeedDefault)

	admin.GET("/crm-rules", ruleHandler.GetRules)
	admin.PUT("/crm-rules", ruleHandler.SaveRules)
	admin.GET("/assignment-rules", ruleHandler.ListAssignmentRules)

	admin.GET("/users", userHandler.ListUsers)
	admin.PUT("/users", userHandler.UpsertUser)

	// Retry sweep
	cronManager := jobs.NewCronManager(a.Processor, redisClient, cfg.RetrySweepSchedule, a.Log.With("component", "jobs"))
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Retry sweep scheduled (%s)", cfg.RetrySweepSchedule)

	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 Lead sync API starting on %s", address)
	log.Printf("📝 Log level: %s", cfg.LogLevel)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🌍 CORS: %v", cfg.CORSOrigins)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d), webhook %d req/min (burst: %d)",
		cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst,
		cfg.WebhookRateLimitRequestsPerMinute, cfg.WebhookRateLimitBurst)
	log.Printf("🔗 Field mapping: %s, owner policy: %s, inline processing: %t",
		cfg.FieldMappingName, cfg.OwnerPolicy, cfg.ProcessWebhookInline)

	// Graceful shutdown
	go func() {
		if err := e.Start(address); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Let a running sweep finish before the database goes away
	select {
	case <-cronManager.Stop().Done():
		log.Println("✅ Cron jobs stopped")
	case <-ctx.Done():
		log.Println("⚠️  Retry sweep still running at shutdown")
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Printf("❌ Server forced to shutdown: %v", err)
	}
	globalRateLimiter.Close()
	webhookRateLimiter.Close()

	log.Println("✅ Server gracefully stopped")
}
