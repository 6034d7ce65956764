package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/chamado-hq/helpdesk-service/internal/api/http"
	"github.com/chamado-hq/helpdesk-service/internal/api/http/handlers"
	"github.com/chamado-hq/helpdesk-service/internal/auth"
	"github.com/chamado-hq/helpdesk-service/internal/config"
	"github.com/chamado-hq/helpdesk-service/internal/events"
	"github.com/chamado-hq/helpdesk-service/internal/ledger"
	"github.com/chamado-hq/helpdesk-service/internal/lifecycle"
	"github.com/chamado-hq/helpdesk-service/internal/observability"
	"github.com/chamado-hq/helpdesk-service/internal/persistence"
	"github.com/chamado-hq/helpdesk-service/internal/repository"
	"github.com/chamado-hq/helpdesk-service/internal/service"
	"github.com/chamado-hq/helpdesk-service/internal/storage"
	"github.com/chamado-hq/helpdesk-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	store := repository.NewStore(pg.PoolHandle())
	dispatcher := events.NewInMemoryDispatcher()

	signer := storage.NewURLSigner(cfg.Attachments.SigningSecret, "/attachments/blob")
	objects := storage.NewRedisObjectStore(redis.Client, signer)

	engine := lifecycle.NewEngine(lifecycle.Dependencies{
		Store:      store,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	ticketLedger := ledger.NewLedger(ledger.Dependencies{
		Store:        store,
		Objects:      objects,
		Logger:       logger,
		MaxSizeBytes: cfg.Attachments.MaxSizeBytes,
	})

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	authMiddleware := auth.NewAuthMiddleware(tokenManager)

	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{
		BodyLimit: int(cfg.Attachments.MaxSizeBytes) + 1<<20,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis),
		Tickets:        handlers.NewTicketsHandler(engine, ticketLedger),
		Attachments:    handlers.NewAttachmentsHandler(ticketLedger, objects, signer, cfg.Attachments),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
