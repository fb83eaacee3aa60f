package api

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	swagger "github.com/go-swagno/swagno-fiber/swagger"

	"github.com/pairwise-app/faceverify/internal/admin"
	"github.com/pairwise-app/faceverify/internal/alert"
	"github.com/pairwise-app/faceverify/internal/api/docs"
	"github.com/pairwise-app/faceverify/internal/api/handler"
	"github.com/pairwise-app/faceverify/internal/api/middleware"
	"github.com/pairwise-app/faceverify/internal/audit"
	"github.com/pairwise-app/faceverify/internal/cache"
	"github.com/pairwise-app/faceverify/internal/config"
	"github.com/pairwise-app/faceverify/internal/detector"
	"github.com/pairwise-app/faceverify/internal/liveness"
	"github.com/pairwise-app/faceverify/internal/matcher"
	"github.com/pairwise-app/faceverify/internal/metrics"
	"github.com/pairwise-app/faceverify/internal/ratelimit"
	"github.com/pairwise-app/faceverify/internal/repository"
	"github.com/pairwise-app/faceverify/internal/service"
	"github.com/pairwise-app/faceverify/internal/usage"
	"github.com/pairwise-app/faceverify/internal/verify"
	"github.com/pairwise-app/faceverify/internal/webhook"
	"github.com/pairwise-app/faceverify/internal/ws"
)

type Dependencies struct {
	DB       *pgxpool.Pool
	Detector detector.FaceDetector
	Config   *config.Config
}

type Router struct {
	app           *fiber.App
	logger        *slog.Logger
	deps          *Dependencies
	rateLimiter   *middleware.RateLimiter
	wsHub         *ws.Hub
	webhookWorker *webhook.Worker
	usageWorker   *usage.Worker
	aggregator    *metrics.Aggregator
	alertWorker   *alert.Worker
	cancelWorkers context.CancelFunc
	cancelCleanup context.CancelFunc
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Faceverify API",
		BodyLimit:    12 * 1024 * 1024,
	})

	return &Router{
		app:    app,
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Swagger documentation
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints
	var db *pgxpool.Pool
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// API v1 group
	v1 := r.app.Group("/v1")

	// Only configure application routes if dependencies were provided
	if r.deps != nil {
		cfg := r.deps.Config

		// WebSocket hub
		r.wsHub = ws.NewHub()
		go r.wsHub.Run()

		// Webhook service and retry worker
		webhookService := webhook.NewService(r.deps.DB)
		r.webhookWorker = webhook.NewWorker(r.deps.DB, webhookService, r.logger)

		workerCtx, cancelWorkers := context.WithCancel(context.Background())
		r.cancelWorkers = cancelWorkers
		go r.webhookWorker.Run(workerCtx)

		// Rate limiting keyed per session
		r.rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
		v1.Use(r.rateLimiter.Handler())

		// Repositories
		photoRepo := repository.NewPhotoRepository(r.deps.DB)
		verificationRepo := repository.NewVerificationRepository(r.deps.DB)
		signatureCacheRepo := repository.NewSignatureCacheRepository(r.deps.DB, cfg.SignatureCacheTTL)

		// Audit trail for session lifecycle and admin actions
		auditLogger := audit.NewSlogLogger(r.logger)

		// Usage accounting, flushed to the database on an interval.
		// Month summaries are cached in the shared cache table.
		pgCache := cache.NewPGCache(r.deps.DB)
		usageService := usage.NewService(usage.NewRepository(r.deps.DB), usage.NewCacheAdapter(pgCache))
		r.usageWorker = usage.NewWorker(usageService, r.logger, cfg.UsageFlushInterval)
		go r.usageWorker.Run(workerCtx)

		// Per-user cap on session starts
		startLimiter := ratelimit.NewRateLimiter(r.deps.DB, cfg.SessionStartWindow, cfg.SessionStartLimit)

		// Reference photo matcher
		downloader := matcher.NewHTTPDownloader(matcher.DownloaderConfig{
			Timeout:    cfg.DownloadTimeout,
			RetryCount: cfg.DownloadRetries,
			MaxBytes:   int64(cfg.DownloadMaxMB) << 20,
		})
		faceMatcher := matcher.New(
			matcher.Config{
				Threshold:   cfg.MatchThreshold,
				Concurrency: cfg.MatchConcurrency,
			},
			photoRepo,
			downloader,
			r.deps.Detector,
			verificationRepo,
			signatureCacheRepo,
			r.logger,
		)

		// Verification session service
		verifyCfg := verify.DefaultConfig()
		verifyCfg.CapturesPerPose = cfg.CapturesPerPose
		verifyCfg.RequiredBlinks = cfg.RequiredBlinks
		verifyCfg.SmileFrames = cfg.SmileFrames
		verifyCfg.ChallengeFrameBudget = cfg.ChallengeFrameBudget

		verificationService := service.NewVerificationService(
			verifyCfg,
			liveness.DefaultConfig(),
			faceMatcher,
			r.deps.Detector,
			r.wsHub,
			webhookService,
			cfg.SessionTTL,
			r.logger,
		).
			WithStartLimiter(startLimiter).
			WithAuditLog(auditLogger).
			WithUsageRecorder(usageService)

		cleanupCtx, cancelCleanup := context.WithCancel(context.Background())
		r.cancelCleanup = cancelCleanup
		verificationService.StartCleanup(cleanupCtx, time.Minute)

		// Verification metrics, expired-row pruning and failure alerting
		metricsRepo := metrics.NewRepository(r.deps.DB)
		r.aggregator = metrics.NewAggregator(metricsRepo, r.logger, time.Minute)
		r.aggregator.AddPruner("reference_signatures", signatureCacheRepo)
		r.aggregator.AddPruner("rate_limit_counters", startLimiter)
		r.aggregator.AddPruner("cache_entries", pgCache)
		go r.aggregator.Start(workerCtx)

		alertRepo := alert.NewRepository(r.deps.DB)
		alertNotifier := alert.NewNotifier(webhookService, r.logger)
		r.alertWorker = alert.NewWorker(alertRepo, alert.NewEngine(metricsRepo), alertNotifier, r.logger, cfg.AlertCheckInterval)
		go r.alertWorker.Start(workerCtx)

		// Session handler and routes
		sessionHandler := handler.NewSessionHandler(verificationService, r.logger)
		v1.Post("/sessions", sessionHandler.Start)
		v1.Post("/sessions/:id/frames", sessionHandler.Frame)
		v1.Get("/sessions/:id", sessionHandler.Get)
		v1.Post("/sessions/:id/reset", sessionHandler.Reset)
		v1.Delete("/sessions/:id", sessionHandler.Cancel)

		// Operational routes (webhook and usage management), guarded by
		// admin JWT when a secret is configured
		adminGroup := v1.Group("")
		if cfg.AdminJWTSecret != "" {
			jwtService := admin.NewJWTService(cfg.AdminJWTSecret, "faceverify", cfg.AdminTokenTTL)
			adminGroup.Use(middleware.RequireAdmin(jwtService, r.logger))
		} else {
			r.logger.Warn("admin endpoints are unguarded, set ADMIN_JWT_SECRET in production")
		}

		webhooksHandler := handler.NewWebhooksHandler(webhookService, r.logger).WithAuditLog(auditLogger)
		adminGroup.Get("/webhooks", webhooksHandler.List)
		adminGroup.Post("/webhooks", webhooksHandler.Create)
		adminGroup.Delete("/webhooks/:id", webhooksHandler.Delete)

		usageHandler := handler.NewUsageHandler(usageService, r.logger)
		adminGroup.Get("/usage/:user_id", usageHandler.Get)

		// WebSocket endpoint
		v1.Get("/ws", ws.UpgradeMiddleware(), ws.Handler(r.wsHub))
	}
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	// Stop webhook, usage, metrics and alert workers
	if r.cancelWorkers != nil {
		r.cancelWorkers()
	}
	if r.aggregator != nil {
		r.aggregator.Stop()
	}
	if r.alertWorker != nil {
		r.alertWorker.Stop()
	}

	// Stop the session cleanup sweeper
	if r.cancelCleanup != nil {
		r.cancelCleanup()
	}

	// Stop rate limiter cleanup goroutine
	if r.rateLimiter != nil {
		r.rateLimiter.Stop()
	}

	return r.app.Shutdown()
}
