package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/signstock-backend/api/routes"
	"github.com/angelmondragon/signstock-backend/internal/ledger"
	"github.com/angelmondragon/signstock-backend/internal/signboards"
	"github.com/angelmondragon/signstock-backend/pkg/config"
	"github.com/angelmondragon/signstock-backend/pkg/db"
	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
	"github.com/angelmondragon/signstock-backend/pkg/migrate"
	"github.com/angelmondragon/signstock-backend/pkg/outbox"
	"github.com/angelmondragon/signstock-backend/pkg/redis"
)

const (
	serviceName     = "api"
	shutdownTimeout = 10 * time.Second
)

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	deps := routes.Dependencies{
		Config: cfg,
		Logger: logg,
		DB:     dbClient,
	}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(bootCtx, "error closing redis", err)
			}
		}()
		deps.Redis = redisClient
		deps.IdempotencyStore = redisClient
	} else {
		logg.Warn(bootCtx, "redis not configured, idempotency keys disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	deps.HTTPMetrics = metrics.NewHTTPMetrics(registry)
	deps.Gatherer = registry

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Repository:        ledgerRepo,
		DB:                dbClient,
		Outbox:            emitter,
		Metrics:           metrics.NewLedgerMetrics(registry),
		Logger:            logg,
		MaxAttempts:       cfg.Ledger.MaxAttempts,
		QuickAdjustReason: cfg.Ledger.QuickAdjustReason,
		ResetReason:       cfg.Ledger.ResetReason,
	})
	if err != nil {
		return err
	}
	historySvc, err := ledger.NewHistoryService(ledgerRepo)
	if err != nil {
		return err
	}
	signboardSvc, err := signboards.NewService(signboards.NewRepository(dbClient.DB()), dbClient, ledgerSvc, emitter, logg)
	if err != nil {
		return err
	}
	deps.Ledger = ledgerSvc
	deps.History = historySvc
	deps.Signboards = signboardSvc

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(bootCtx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"db_driver": dbClient.Driver(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-sigCtx.Done():
	}

	logg.Info(ctx, "api server shutting down")
	shutdownCtx, cancel := context.WithTimeout(bootCtx, shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
