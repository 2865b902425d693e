// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/storefront/internal/admin"
	"github.com/carterperez-dev/storefront/internal/auth"
	"github.com/carterperez-dev/storefront/internal/config"
	"github.com/carterperez-dev/storefront/internal/core"
	"github.com/carterperez-dev/storefront/internal/health"
	"github.com/carterperez-dev/storefront/internal/identity"
	"github.com/carterperez-dev/storefront/internal/mail"
	"github.com/carterperez-dev/storefront/internal/middleware"
	"github.com/carterperez-dev/storefront/internal/product"
	"github.com/carterperez-dev/storefront/internal/server"
	"github.com/carterperez-dev/storefront/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func runServe(ctx context.Context, configPath string) error {
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

	signer, err := identity.NewTokenSigner(cfg.Tokens)
	if err != nil {
		return err
	}
	logger.Info("action token signer initialized",
		"algorithm", "ES256",
		"key_id", signer.KeyID(),
	)

	mailer := mail.NewSender(cfg.SMTP, logger)
	if !cfg.SMTP.Enabled() {
		logger.Warn("smtp host not set, outgoing mail is only logged")
	}

	userRepo := user.NewRepository(db.DB)
	sessions := identity.NewRedisStore(redis.Client)

	provider := identity.NewProvider(identity.Deps{
		Users:    userRepo,
		Sessions: sessions,
		Ledger:   sessions,
		Signer:   signer,
		Mailer:   mailer,
		Logger:   logger,
		Options:  identity.OptionsFromConfig(cfg),
	})

	userHandler := user.NewHandler(user.NewService(userRepo))
	authHandler := auth.NewHandler(provider, cfg.Session, logger)

	productSvc := product.NewService(
		product.NewRepository(db.DB),
		cfg.Cache.ProductTTL,
		logger,
	)
	productHandler := product.NewHandler(productSvc)

	healthHandler := health.NewHandler(cfg.App.Name,
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Roles:      userRepo,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	if telemetry != nil {
		router.Use(middleware.Tracing)
	}
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Name:  "global",
			Limit: middleware.PerWindow(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
				cfg.RateLimit.Window,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	routes := server.Routes{
		Resolver: provider,
		Auth:     authHandler,
		Users:    userHandler,
		Products: productHandler,
		Admin:    adminHandler,
		EmailLimit: middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Name:  "email",
			Limit: middleware.PerHour(
				cfg.RateLimit.SensitivePerHour,
				cfg.RateLimit.SensitiveBurst,
			),
			KeyFunc:  middleware.KeyByIPAndEndpoint,
			FailOpen: false,
		}).Handler,
	}

	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics)

		metricsHandler, metricsErr := middleware.RegisterMetrics(prometheus.DefaultRegisterer)
		if metricsErr != nil {
			return fmt.Errorf("register metrics: %w", metricsErr)
		}
		routes.Metrics = metricsHandler
		routes.MetricsPath = cfg.Metrics.Path
	}

	srv.Mount(routes)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	provider.Wait()

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
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
	return nil
}
