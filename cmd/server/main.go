package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	identityapp "github.com/craftmarket/backend/internal/application/identity"
	messagingapp "github.com/craftmarket/backend/internal/application/messaging"
	notificationapp "github.com/craftmarket/backend/internal/application/notification"
	"github.com/craftmarket/backend/internal/infrastructure/auth"
	"github.com/craftmarket/backend/internal/infrastructure/cache"
	"github.com/craftmarket/backend/internal/infrastructure/config"
	"github.com/craftmarket/backend/internal/infrastructure/event"
	"github.com/craftmarket/backend/internal/infrastructure/i18n"
	"github.com/craftmarket/backend/internal/infrastructure/logger"
	"github.com/craftmarket/backend/internal/infrastructure/mail"
	"github.com/craftmarket/backend/internal/infrastructure/persistence"
	"github.com/craftmarket/backend/internal/infrastructure/scheduler"
	"github.com/craftmarket/backend/internal/infrastructure/storage"
	"github.com/craftmarket/backend/internal/infrastructure/telemetry"
	"github.com/craftmarket/backend/internal/interfaces/http/handler"
	"github.com/craftmarket/backend/internal/interfaces/http/middleware"
	"github.com/craftmarket/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const unreadCacheTTL = 5 * time.Minute

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
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
		_ = logger.Sync(log)
	}()

	log.Info("Starting CraftMarket Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with a zap-backed GORM logger
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLogLevel)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	db.DB.Logger = logger.NewGormLogger(log, gormLogLevel)
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis backs the token blacklist and the unread counter cache. The
	// server stays up without it: logout falls back to the in-memory
	// blacklist and unread counts hit the database directly.
	var (
		redisClient *redis.Client
		blacklist   auth.TokenBlacklist
		unreadCache *cache.UnreadCountCache
	)
	redisClient, err = cache.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = auth.NewRedisTokenBlacklistWithClient(redisClient)
		unreadCache = cache.NewUnreadCountCache(redisClient, unreadCacheTTL)
		defer func() {
			_ = redisClient.Close()
		}()
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	dialogueRepo := persistence.NewGormDialogueRepository(db.DB)
	messageRepo := persistence.NewGormMessageRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)

	// Translation catalog and language negotiation
	catalog, err := i18n.LoadOrCompileCatalog(cfg.I18N.LocalesDir, cfg.I18N.CatalogDir, cfg.I18N.DefaultLanguage, cfg.I18N.SupportedLanguages)
	if err != nil {
		log.Fatal("Failed to load translation catalog", zap.Error(err))
	}
	negotiator, err := i18n.NewNegotiator(cfg.I18N.DefaultLanguage, cfg.I18N.SupportedLanguages)
	if err != nil {
		log.Fatal("Failed to build language negotiator", zap.Error(err))
	}
	log.Info("Translation catalog loaded", zap.Strings("languages", catalog.Languages()))

	// Outgoing mail for verification codes
	mailer, err := mail.NewFromConfig(cfg.Mail, log)
	if err != nil {
		log.Fatal("Failed to initialize mailer", zap.Error(err))
	}

	// Media storage for avatars
	var mediaStorage identityapp.MediaStorage
	if cfg.Storage.Bucket != "" {
		s3Storage, err := storage.NewS3MediaStorage(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize media storage", zap.Error(err))
		}
		mediaStorage = s3Storage
		log.Info("S3 media storage initialized", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		mediaStorage = storage.NewStubMediaStorage()
		log.Warn("No storage bucket configured, avatar URLs are stubs")
	}

	// OpenTelemetry tracing, metrics and profiling
	tel, err := setupTelemetry(context.Background(), cfg, db, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer tel.shutdown(log)

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)

	var authOpts []identityapp.AuthServiceOption
	var chatOpts []messagingapp.ChatServiceOption
	var notificationOpts []notificationapp.ServiceOption
	if unreadCache != nil {
		chatOpts = append(chatOpts, messagingapp.WithUnreadCache(unreadCache))
		notificationOpts = append(notificationOpts, notificationapp.WithUnreadCache(unreadCache))
	}
	if tel.metrics != nil {
		authOpts = append(authOpts, identityapp.WithActivityRecorder(tel.metrics))
		chatOpts = append(chatOpts, messagingapp.WithMessageRecorder(tel.metrics))
		notificationOpts = append(notificationOpts, notificationapp.WithCreationRecorder(tel.metrics))
	}

	authService := identityapp.NewAuthService(
		userRepo, jwtService, blacklist, mailer, catalog, eventBus,
		identityapp.DefaultAuthServiceConfig(), log, authOpts...,
	)
	userService := identityapp.NewUserService(userRepo, mediaStorage, log)
	chatService := messagingapp.NewChatService(dialogueRepo, messageRepo, userRepo, eventBus, log, chatOpts...)
	notificationService := notificationapp.NewService(notificationRepo, log, notificationOpts...)

	// Register event handlers: new messages become notifications and are
	// relayed to connected WebSocket clients. The notification handler is
	// wrapped with duplicate detection so a redelivered event cannot create
	// a second inbox entry.
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	messageSentHandler := notificationapp.NewMessageSentHandler(notificationService, userRepo, catalog, log)
	eventBus.Subscribe(event.NewIdempotentHandler(messageSentHandler, idempotencyStore, log))

	chatRelay := handler.NewChatRelay(log)
	eventBus.Subscribe(chatRelay)

	log.Info("Event handlers registered",
		zap.Strings("notification_events", messageSentHandler.EventTypes()),
		zap.Strings("relay_events", chatRelay.EventTypes()),
	)

	// Start event bus
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Housekeeping scheduler: expired verification codes and stale read
	// notifications are purged daily
	if cfg.Scheduler.Enabled {
		executor := scheduler.NewHousekeepingExecutor(
			scheduler.HousekeepingExecutorConfig{NotificationRetention: cfg.Scheduler.NotificationRetention},
			userRepo, notificationRepo, log,
		)
		housekeeping := scheduler.NewScheduler(scheduler.DefaultSchedulerConfig(), executor, log)
		if err := housekeeping.Start(context.Background()); err != nil {
			log.Fatal("Failed to start housekeeping scheduler", zap.Error(err))
		}
		defer func() {
			if err := housekeeping.Stop(context.Background()); err != nil {
				log.Error("Error stopping housekeeping scheduler", zap.Error(err))
			}
		}()

		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			DailyRunHour:   cfg.Scheduler.DailyHour,
			DailyRunMinute: cfg.Scheduler.DailyMinute,
			CheckInterval:  cfg.Scheduler.CheckInterval,
		}, housekeeping, log)
		if err := trigger.Start(context.Background()); err != nil {
			log.Fatal("Failed to start housekeeping trigger", zap.Error(err))
		}
		defer trigger.Stop()

		log.Info("Housekeeping scheduler started",
			zap.Int("daily_hour", cfg.Scheduler.DailyHour),
			zap.Int("daily_minute", cfg.Scheduler.DailyMinute),
		)
	}

	// Initialize HTTP handlers
	var cachePing handler.PingChecker
	if redisClient != nil {
		cachePing = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	handlers := router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Chat:         handler.NewChatHandler(chatService),
		Notification: handler.NewNotificationHandler(notificationService),
		Pages:        handler.NewPageHandler(catalog, negotiator),
		System:       handler.NewSystemHandler(db, cachePing),
	}

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.Language(negotiator))
	if tel.enabled() {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: tel.meter,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		authLimit := middleware.AuthRateLimit(authLimiter)
		engine.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/v1/auth/") {
				authLimit(c)
				return
			}
			c.Next()
		})
	}

	// Liveness and readiness endpoints, outside API versioning. The
	// deployment health probe hits /healthz.
	engine.GET("/health", handlers.System.Health)
	engine.GET("/healthz", handlers.System.Health)
	engine.GET("/ready", handlers.System.Ready)

	// JWT authentication for API routes; public endpoints are skipped
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)

	// WebSocket chat relay, behind the same JWT check as the API
	wsGroup := engine.Group("/ws")
	wsGroup.Use(jwtAuth)
	wsGroup.GET("/chat", chatRelay.Connect)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(jwtAuth).
		Register(router.Marketplace(handlers)...).
		Setup()

	// Create HTTP server
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	chatRelay.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// telemetryStack bundles the OTel providers so main can shut them down in
// one place. All fields are nil when telemetry is disabled.
type telemetryStack struct {
	tracer   *telemetry.TracerProvider
	meter    *telemetry.MeterProvider
	metrics  *telemetry.MarketplaceMetrics
	profiler *telemetry.Profiler
}

func (t *telemetryStack) enabled() bool {
	return t.meter != nil
}

func (t *telemetryStack) shutdown(log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if t.metrics != nil {
		t.metrics.StopPeriodicCollection()
	}
	if t.profiler != nil {
		if err := t.profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}
	if t.meter != nil {
		if err := t.meter.Shutdown(ctx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}
	if t.tracer != nil {
		if err := t.tracer.Shutdown(ctx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}
}

func setupTelemetry(ctx context.Context, cfg *config.Config, db *persistence.Database, log *zap.Logger) (*telemetryStack, error) {
	stack := &telemetryStack{}
	if !cfg.Telemetry.Enabled {
		return stack, nil
	}

	tracer, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           true,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	stack.tracer = tracer

	meter, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           true,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		return nil, err
	}
	stack.meter = meter

	metrics, err := telemetry.NewMarketplaceMetrics(meter, log,
		telemetry.WithEngagementProvider(telemetry.NewGormEngagementProvider(db.DB)),
	)
	if err != nil {
		return nil, err
	}
	metrics.StartPeriodicCollection(ctx)
	stack.metrics = metrics

	dbMetrics, err := telemetry.NewDBMetrics(meter, log)
	if err != nil {
		return nil, err
	}
	if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics)); err != nil {
		return nil, err
	}

	if cfg.Telemetry.DBTraceEnabled {
		tracingCfg := telemetry.DefaultDBTracingConfig()
		tracingCfg.Enabled = true
		if err := telemetry.NewDBTracingPlugin(tracingCfg, log).RegisterOtelGorm(db.DB); err != nil {
			return nil, err
		}
	}

	if cfg.Telemetry.ProfilingEnabled {
		profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
			Enabled:         true,
			ServerAddress:   cfg.Telemetry.ProfilingEndpoint,
			ApplicationName: cfg.Telemetry.ServiceName,
			ProfileCPU:      true,
		}, log)
		if err != nil {
			return nil, err
		}
		stack.profiler = profiler
	}

	log.Info("Telemetry initialized",
		zap.String("collector", cfg.Telemetry.CollectorEndpoint),
		zap.String("service", cfg.Telemetry.ServiceName),
	)
	return stack, nil
}
