package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticket-portal/internal/api/http"
	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	portalapp "github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/persistence"
	"github.com/spec-kit/ticket-portal/internal/portalapi"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/session"
	"github.com/spec-kit/ticket-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()
	deps := map[string]handlers.Pinger{}

	var identities repository.IdentityRepository
	switch cfg.Session.Backend {
	case "postgres":
		pg, err := persistence.OpenPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			logger.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer pg.Close()
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		identities = repository.NewPostgresIdentityRepository(pg.Pool)
		deps["postgres"] = pg
	case "redis":
		redis, err := persistence.OpenRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redis.Close()
		identities = repository.NewRedisIdentityRepository(redis.Client, cfg.Redis.TTL())
		deps["redis"] = redis
	case "file":
		identities = repository.NewFileIdentityRepository(cfg.Session.FilePath)
	default:
		identities = repository.NewMemoryIdentityRepository()
	}
	logger.Info("identity storage selected", zap.String("backend", cfg.Session.Backend))

	sealer, err := session.NewSealer(cfg.Session.SealKey)
	if err != nil {
		logger.Fatal("failed to init sealer", zap.Error(err))
	}

	client, err := portalapi.New(cfg.API, logger, portalapi.WithMetrics(metrics))
	if err != nil {
		logger.Fatal("failed to init portal api client", zap.Error(err))
	}

	sessions := portalapp.NewRegistry(portalapp.Dependencies{
		API:        client,
		Repository: identities,
		Sealer:     sealer,
		Tokens:     auth.NewTokenInspector(0),
		Logger:     logger,
		Metrics:    metrics,
	})
	reaperDone := worker.StartSessionReaper(ctx, sessions, cfg.Session.ReapInterval(), cfg.Session.IdleTTL(), logger)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, deps),
		Sessions:          sessions,
		SessionMiddleware: auth.NewSessionMiddleware(cfg.Session),
		Metrics:           metrics,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	<-reaperDone
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
