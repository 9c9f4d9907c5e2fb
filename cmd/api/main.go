// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/carterperez-dev/studentshelf/internal/admin"
	"github.com/carterperez-dev/studentshelf/internal/auth"
	"github.com/carterperez-dev/studentshelf/internal/blob"
	"github.com/carterperez-dev/studentshelf/internal/catalog"
	"github.com/carterperez-dev/studentshelf/internal/config"
	"github.com/carterperez-dev/studentshelf/internal/core"
	"github.com/carterperez-dev/studentshelf/internal/credential"
	"github.com/carterperez-dev/studentshelf/internal/geo"
	"github.com/carterperez-dev/studentshelf/internal/health"
	"github.com/carterperez-dev/studentshelf/internal/metrics"
	"github.com/carterperez-dev/studentshelf/internal/middleware"
	"github.com/carterperez-dev/studentshelf/internal/notify"
	"github.com/carterperez-dev/studentshelf/internal/payment"
	"github.com/carterperez-dev/studentshelf/internal/pricing"
	"github.com/carterperez-dev/studentshelf/internal/purchase"
	"github.com/carterperez-dev/studentshelf/internal/scheduler"
	"github.com/carterperez-dev/studentshelf/internal/server"
	"github.com/carterperez-dev/studentshelf/internal/settings"
	"github.com/carterperez-dev/studentshelf/internal/student"
	"github.com/carterperez-dev/studentshelf/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	generateKeys := flag.Bool("generate-keys", false, "write a new ES256 key pair to the configured paths and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	if *generateKeys {
		if err := writeKeys(*configPath); err != nil {
			slog.Error("key generation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func writeKeys(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath); err != nil {
		return err
	}
	slog.Info("key pair written",
		"private_key", cfg.JWT.PrivateKeyPath,
		"public_key", cfg.JWT.PublicKeyPath,
	)
	return nil
}

//nolint:funlen,gocognit // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	tokenManager, err := auth.NewTokenManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("token manager initialized",
		"algorithm", "ES256",
		"key_id", tokenManager.KeyID(),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	notifier, closeNotifier := newNotifier(cfg.Kafka, logger)
	defer closeNotifier()

	blobs, err := newBlobStore(cfg.Cloudinary, logger)
	if err != nil {
		return err
	}

	provider := newPaymentProvider(cfg.Midtrans, logger)

	settingsSvc := settings.NewService(settings.NewRepository(db.DB), redis.Client, logger)
	if err := settingsSvc.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap settings: %w", err)
	}

	userRepo := user.NewRepository(db.DB)
	studentRepo := student.NewRepository(db.DB)

	// Accounts and student records share one email namespace, so each side
	// checks the other before accepting a new address.
	userSvc := user.NewService(userRepo, student.NewEmailIndex(studentRepo), logger)

	studentSvc := student.NewService(student.ServiceConfig{
		Repo:            studentRepo,
		Tx:              student.SQLTxRunner(db.DB),
		Accounts:        userSvc,
		Blobs:           blobs,
		Folder:          cfg.Cloudinary.DocumentFolder,
		Validator:       student.NewDocumentValidator(settingsSvc),
		Notifier:        notifier,
		Metrics:         appMetrics,
		ValidityPeriod:  cfg.Verification.ValidityPeriod,
		ExtensionPeriod: cfg.Verification.ExtensionPeriod,
		Logger:          logger,
	})

	if cfg.Bootstrap.AdminEmail != "" {
		if err := userSvc.EnsureAdmin(
			ctx,
			cfg.Bootstrap.AdminEmail,
			cfg.Bootstrap.AdminPassword,
			cfg.Bootstrap.AdminName,
		); err != nil {
			return fmt.Errorf("bootstrap admin: %w", err)
		}
	}

	catalogSvc := catalog.NewService(catalog.ServiceConfig{
		Repo:     catalog.NewRepository(db.DB),
		Blobs:    blobs,
		Folder:   cfg.Cloudinary.EbookFolder,
		Notifier: notifier,
		Authors:  userSvc,
		Logger:   logger,
	})

	purchaseRepo := purchase.NewRepository(db.DB)
	credentials, err := credential.NewService(cfg.Credential.Secret, purchaseRepo)
	if err != nil {
		return err
	}

	purchaseSvc := purchase.NewService(purchase.ServiceConfig{
		Repo:        purchaseRepo,
		Tx:          purchase.SQLTxRunner(db.DB),
		Catalog:     catalogSvc,
		Buyers:      studentSvc,
		Pricer:      pricing.NewEngine(settingsSvc),
		Credentials: credentials,
		Provider:    provider,
		Notifier:    notifier,
		Blobs:       blobs,
		Metrics:     appMetrics,
		PublicURL:   cfg.App.PublicURL,
		Logger:      logger,
	})

	sweeper := scheduler.NewSweeper(studentSvc, scheduler.Options{
		Leaser:        redis,
		Metrics:       appMetrics,
		Logger:        logger,
		RecordTimeout: cfg.Scheduler.RecordTimeout,
		LeaseTTL:      cfg.Scheduler.LeaseTTL,
	})

	geoSvc := geo.NewService(
		geo.NewCachedLocator(
			geo.NewIPAPIClient(cfg.Geo.Endpoint, cfg.Geo.Timeout),
			redis.Client,
			cfg.Geo.CacheTTL,
		),
		cfg.Geo,
		logger,
	)

	authSvc := auth.NewService(tokenManager, userSvc)

	authHandler := auth.NewHandler(authSvc)
	userHandler := user.NewHandler(userSvc)
	studentHandler := student.NewHandler(studentSvc, sweeper, cfg.Upload.MaxMemory)
	catalogHandler := catalog.NewHandler(catalogSvc, cfg.Upload.MaxMemory, cfg.Upload.MaxEbookMB<<20)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	settingsHandler := settings.NewHandler(settingsSvc)
	geoHandler := geo.NewHandler(geoSvc)

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		Ebooks:     catalogSvc,
		Purchases:  purchaseSvc,
		Students:   studentSvc,
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Trace)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Bucket: "global",
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
			Observer: appMetrics,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.App.Environment == "production"))
	router.Use(middleware.CORS(cfg.CORS))

	sensitive := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Bucket: "sensitive",
		Limit: middleware.PerMinute(
			cfg.RateLimit.SensitiveRequests,
			cfg.RateLimit.SensitiveBurst,
		),
		KeyFunc:  middleware.KeyByClientAndEndpoint,
		FailOpen: true,
		Observer: appMetrics,
	}).Handler

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", tokenManager.JWKSHandler())
	router.Handle("/metrics", metrics.Handler(registry))

	authenticator := middleware.Authenticator(tokenManager)

	router.Route("/v1", func(r chi.Router) {
		geoHandler.RegisterRoutes(r)
		authHandler.RegisterRoutes(r, authenticator, sensitive)
		userHandler.RegisterRoutes(r, authenticator)
		studentHandler.RegisterRoutes(r, sensitive)
		catalogHandler.RegisterRoutes(r)
		purchaseHandler.RegisterRoutes(r, sensitive)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			catalogHandler.RegisterAuthorRoutes(r)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authenticator)
			r.Use(middleware.RequireAdmin)

			adminHandler.RegisterRoutes(r)
			userHandler.RegisterAdminRoutes(r)
			studentHandler.RegisterAdminRoutes(r)
			catalogHandler.RegisterAdminRoutes(r)
			purchaseHandler.RegisterAdminRoutes(r)
			settingsHandler.RegisterAdminRoutes(r)
		})
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched, err = scheduler.New(cfg.Scheduler, sweeper, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		return settingsSvc.Listen(gctx)
	})

	if sched != nil {
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
		)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
			logger.Error("server shutdown error", "error", err)
		}
		return nil
	})

	runErr := g.Wait()

	cleanupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if telemetry != nil {
		if err := telemetry.Shutdown(cleanupCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return runErr
}

func newNotifier(cfg config.KafkaConfig, logger *slog.Logger) (notify.Notifier, func()) {
	if len(cfg.Brokers) == 0 {
		logger.Info("kafka not configured, logging notifications")
		return notify.NewLogNotifier(logger), func() {}
	}

	kn := notify.NewKafkaNotifier(cfg)
	logger.Info("kafka notifier configured", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return kn, func() {
		if err := kn.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
}

func newBlobStore(cfg config.CloudinaryConfig, logger *slog.Logger) (blob.Store, error) {
	if cfg.URL == "" {
		logger.Warn("cloudinary not configured, keeping uploads in memory")
		return blob.NewMemoryStore(), nil
	}

	store, err := blob.NewCloudinaryStore(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	return store, nil
}

func newPaymentProvider(cfg config.MidtransConfig, logger *slog.Logger) payment.Provider {
	if cfg.ServerKey == "" {
		logger.Warn("midtrans not configured, purchases wait for manual confirmation")
		return payment.OfflineProvider{}
	}
	return payment.NewMidtransProvider(cfg)
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
