package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lucasbravon/swapstay-backend/api/routes"
	"github.com/lucasbravon/swapstay-backend/internal/bookings"
	"github.com/lucasbravon/swapstay-backend/internal/completion"
	"github.com/lucasbravon/swapstay-backend/internal/proposals"
	"github.com/lucasbravon/swapstay-backend/internal/swaps"
	"github.com/lucasbravon/swapstay-backend/pkg/attest"
	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/db"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/metrics"
	"github.com/lucasbravon/swapstay-backend/pkg/migrate"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox"
	"github.com/lucasbravon/swapstay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	ledgerClient, err := attest.NewClient(cfg.Ledger, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger client", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	completionMetrics := metrics.NewCompletionMetrics(registry)

	swapRepo := swaps.NewRepository(dbClient.DB())
	bookingRepo := bookings.NewRepository(dbClient.DB())
	proposalRepo := proposals.NewRepository(dbClient.DB())
	auditRepo := completion.NewAuditRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	validator, err := completion.NewValidationService(dbClient, swapRepo, bookingRepo, proposalRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create validation service", err)
		os.Exit(1)
	}

	txManager, err := completion.NewTransactionManager(
		dbClient, swapRepo, bookingRepo, proposalRepo, logg,
		cfg.Completion.TxMaxAttempts, cfg.Completion.TxRetryBackoff,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction manager", err)
		os.Exit(1)
	}

	rollbackManager, err := completion.NewRollbackManager(
		txManager, ledgerClient, logg, completionMetrics,
		cfg.Ledger.StatusRecheck, cfg.Completion.RestoreAttempts, cfg.Ledger.RetryBackoff,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create rollback manager", err)
		os.Exit(1)
	}

	completionService, err := completion.NewService(
		cfg.Completion,
		dbClient,
		swapRepo,
		bookingRepo,
		proposalRepo,
		auditRepo,
		validator,
		txManager,
		rollbackManager,
		ledgerClient,
		outboxService,
		logg,
		completionMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:            cfg,
			Logger:            logg,
			DB:                dbClient,
			Redis:             redisClient,
			IdempotencyStore:  redisClient,
			CompletionService: completionService,
			MetricsGatherer:   registry,
		}),
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	case <-shutdownCtx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(drainCtx); err != nil {
		logg.Error(ctx, "graceful shutdown failed", err)
		os.Exit(1)
	}
}
