package main

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
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/formlift/formlift/config"
	"github.com/formlift/formlift/pkg/admission"
	"github.com/formlift/formlift/pkg/ai"
	"github.com/formlift/formlift/pkg/ai/image"
	"github.com/formlift/formlift/pkg/ai/llm"
	"github.com/formlift/formlift/pkg/api/handlers"
	custommw "github.com/formlift/formlift/pkg/api/middleware"
	"github.com/formlift/formlift/pkg/auth"
	"github.com/formlift/formlift/pkg/billing"
	"github.com/formlift/formlift/pkg/cache"
	"github.com/formlift/formlift/pkg/database"
	"github.com/formlift/formlift/pkg/email"
	"github.com/formlift/formlift/pkg/files"
	"github.com/formlift/formlift/pkg/forms"
	"github.com/formlift/formlift/pkg/generation"
	"github.com/formlift/formlift/pkg/jobs"
	"github.com/formlift/formlift/pkg/leads"
	"github.com/formlift/formlift/pkg/metrics"
	custommiddleware "github.com/formlift/formlift/pkg/middleware"
	"github.com/formlift/formlift/pkg/notify"
	"github.com/formlift/formlift/pkg/settings"
	"github.com/formlift/formlift/pkg/slack"
	"github.com/formlift/formlift/pkg/store"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("🔧 Configuration loaded (environment: %s)", cfg.APIEnvironment)

	// Initialize Sentry for error tracking
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: 1.0,
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

	// Initialize database
	db, err := database.NewClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis cache
	redisClient, err := cache.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Initialize Prometheus metrics
	prometheusMetrics := metrics.New()
	log.Printf("✅ Prometheus metrics initialized")

	// Stores
	accountStore := store.NewAccountStore(db)
	formStore := store.NewFormStore(db)
	leadStore := store.NewLeadStore(db)
	fileStore := store.NewFileStore(db)
	usageStore := store.NewUsageStore(db)
	settingsStore := store.NewSettingsStore(db)

	// Admission controller over recomputed counters
	quota := store.NewQuota(accountStore, formStore, leadStore, fileStore, usageStore)
	admissionController := admission.NewController(quota, log.Default())

	// Notification services
	emailService := email.NewService(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, cfg.FrontendURL)

	var slackService *slack.Service
	if cfg.SlackWebhookURL != "" {
		slackService = slack.NewService(slack.NewWebhookClient(cfg.SlackWebhookURL))
		log.Printf("✅ Slack notifications enabled")
	} else {
		slackService = slack.NewService(nil)
		log.Printf("ℹ️  Slack notifications disabled (no webhook URL configured)")
	}

	dispatcher := notify.NewDispatcher(
		cfg.NotifyQueueSize,
		cfg.NotifyWorkers,
		10*time.Second,
		log.Default(),
		notify.NewEmailSink(emailService),
		notify.NewSlackSink(slackService),
	)
	dispatcher.SetMetrics(prometheusMetrics)
	defer dispatcher.Close()

	// AI backends and model router
	openaiClient := llm.NewOpenAIClient(llm.Config{APIKey: cfg.OpenAIAPIKey}, log.Default())
	openrouterClient := llm.NewOpenRouterClient(llm.OpenRouterConfig{
		BaseURL: cfg.OpenRouterBaseURL,
		APIKey:  cfg.OpenRouterAPIKey,
		Timeout: cfg.GenerationTimeout,
	}, log.Default())
	modelRouter := ai.NewRouter(openaiClient, openrouterClient)
	imageService := image.NewService(openaiClient.Raw(), openrouterClient, log.Default())
	imageService.SetMetrics(prometheusMetrics)

	// Core pipeline services
	settingsService := settings.NewService(settingsStore)
	leadWriter := leads.NewWriter(leadStore, formStore, admissionController, cfg.TestAddress, log.Default())
	pipeline := generation.NewService(
		formStore, accountStore, leadWriter, admissionController, usageStore,
		settingsService, modelRouter, imageService, dispatcher, prometheusMetrics,
		cfg.GenerationTimeout, log.Default(),
	)

	formService := forms.NewService(formStore, admissionController, log.Default())

	// Knowledge file storage (optional, needs an S3 bucket)
	var fileService *files.Service
	if cfg.S3Bucket != "" {
		s3Client, err := files.NewS3Client(cfg.AWSRegion, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
		if err != nil {
			log.Printf("⚠️  Failed to initialize S3 client: %v", err)
		} else {
			fileService = files.NewService(s3Client, cfg.S3Bucket, fileStore, admissionController, log.Default())
			log.Printf("✅ Knowledge file storage enabled (bucket: %s)", cfg.S3Bucket)
		}
	} else {
		log.Printf("ℹ️  Knowledge file storage disabled (no S3 bucket configured)")
	}

	billingService := billing.NewService(accountStore, dispatcher, &billing.StripeConfig{
		SecretKey:     cfg.StripeSecretKey,
		WebhookSecret: cfg.StripeWebhookSecret,
		PricePro:      cfg.StripePricePro,
		PriceBusiness: cfg.StripePriceBusiness,
		SuccessURL:    cfg.FrontendURL + "/dashboard/billing?success=true",
		CancelURL:     cfg.FrontendURL + "/dashboard/billing?canceled=true",
	})

	// JWT blacklist for logout
	tokenBlacklist := auth.NewTokenBlacklist(redisClient)

	// Cron manager for usage pruning and quota warnings
	cronManager := jobs.NewCronManager(db, usageStore, dispatcher, log.Default())
	if err := cronManager.SetupJobs(); err != nil {
		log.Fatalf("❌ Failed to setup cron jobs: %v", err)
	}
	cronManager.Start()
	log.Printf("✅ Cron jobs started successfully")

	// Handlers
	authHandler := handlers.NewAuthHandler(accountStore, tokenBlacklist, dispatcher, cfg)
	submitHandler := handlers.NewSubmitHandler(pipeline)
	formHandler := handlers.NewFormHandler(formService, fileService, leadStore)
	usageHandler := handlers.NewUsageHandler(quota, accountStore)
	settingsHandler := handlers.NewSettingsHandler(settingsService)
	billingHandler := handlers.NewBillingHandler(billingService)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	// Rate limiters
	globalRateLimiter := custommiddleware.NewRateLimiter(cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst)
	submitRateLimiter := custommiddleware.NewRateLimiter(cfg.SubmitRequestsPerMinute, cfg.SubmitBurst)
	authRateLimiter := custommiddleware.NewRateLimiter(5, 2)       // login brute-force guard
	webhookRateLimiter := custommiddleware.NewRateLimiter(100, 20) // Stripe retries in bursts

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
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
		}))
	}

	e.Use(prometheusMetrics.Middleware())
	e.Use(middleware.CORSWithConfig(custommiddleware.CORSConfig()))
	e.Use(middleware.Gzip())
	e.Use(custommiddleware.SecurityHeaders(custommiddleware.DefaultSecurityHeadersConfig()))
	e.Use(globalRateLimiter.RateLimitMiddleware())

	// Health check endpoints (public)
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"name":        "FormLift API",
			"version":     "0.1.0",
			"status":      "running",
			"environment": cfg.APIEnvironment,
			"timestamp":   time.Now().Unix(),
		})
	})

	e.GET("/health", func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status":   "unhealthy",
				"database": "down",
			})
		}
		if _, err := redisClient.Redis.Ping(ctx).Result(); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"cache":  "down",
			})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"status":   "healthy",
			"database": "up",
			"cache":    "up",
		})
	})

	// Prometheus metrics endpoint (public)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/api/v1")

	// Public submission endpoint. OptionalJWT recognizes logged-in owners
	// testing their own forms; everyone else is anonymous.
	v1.POST("/submit/:slug", submitHandler.Submit,
		submitRateLimiter.RateLimitMiddleware(),
		custommw.OptionalJWT(cfg.JWTSecret, tokenBlacklist),
	)

	// Authentication routes (public)
	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register, authRateLimiter.RateLimitMiddleware())
		authRoutes.POST("/login", authHandler.Login, authRateLimiter.RateLimitMiddleware())
		authRoutes.GET("/me", authHandler.Me, custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist, accountStore))
		authRoutes.POST("/logout", authHandler.Logout, custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist, accountStore))
	}

	// Public billing routes
	v1.GET("/billing/plans", billingHandler.Plans)
	v1.POST("/billing/webhook", billingHandler.Webhook, webhookRateLimiter.RateLimitMiddleware())

	// Protected routes (require JWT with blacklist validation)
	protected := v1.Group("")
	protected.Use(custommw.JWTMiddlewareWithBlacklist(cfg.JWTSecret, tokenBlacklist, accountStore))
	{
		formsGroup := protected.Group("/forms")
		{
			formsGroup.POST("", formHandler.Create)
			formsGroup.GET("", formHandler.List)
			formsGroup.GET("/:id", formHandler.Get)
			formsGroup.GET("/:id/leads", formHandler.ListLeads)
			formsGroup.POST("/:id/files", formHandler.UploadFile)
			formsGroup.GET("/:id/files", formHandler.ListFiles)
		}

		protected.GET("/usage", usageHandler.Get)

		billingGroup := protected.Group("/billing")
		{
			billingGroup.POST("/checkout", billingHandler.Checkout)
			billingGroup.POST("/portal", billingHandler.Portal)
		}

		// Admin-only model selection
		adminGroup := protected.Group("/admin")
		adminGroup.Use(custommw.RequireAdmin())
		{
			adminGroup.GET("/settings", settingsHandler.Get)
			adminGroup.PUT("/settings", settingsHandler.Update)
		}
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.Printf("🚀 FormLift API starting on %s", address)
	log.Printf("🔐 JWT expiration: %d hours", cfg.JWTExpirationHours)
	log.Printf("🛡️  Rate limiting: %d req/min (burst: %d), submit: %d req/min (burst: %d)",
		cfg.RateLimitRequestsPerMinute, cfg.RateLimitBurst, cfg.SubmitRequestsPerMinute, cfg.SubmitBurst)
	log.Printf("🎯 Test address: %s", cfg.TestAddress)
	log.Printf("⏰ Cron jobs: Daily 2AM (prune usage), Daily 8AM (quota warnings), Daily 4AM (stats)")

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

	cronManager.Stop()
	log.Println("✅ Cron jobs stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server gracefully stopped")
}
