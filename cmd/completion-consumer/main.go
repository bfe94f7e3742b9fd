package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	consumer "github.com/lucasbravon/swapstay-backend/internal/consumers/completion"
	"github.com/lucasbravon/swapstay-backend/pkg/config"
	"github.com/lucasbravon/swapstay-backend/pkg/logger"
	"github.com/lucasbravon/swapstay-backend/pkg/outbox/idempotency"
	"github.com/lucasbravon/swapstay-backend/pkg/pubsub"
	"github.com/lucasbravon/swapstay-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "completion-consumer"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "completion-consumer"

	logg = logger.New(logger.Options{
		ServiceName: "completion-consumer",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

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

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Completion.IdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency manager", err)
		os.Exit(1)
	}

	completionConsumer, err := consumer.NewConsumer(pubsubClient.CompletionSubscription(), manager, nil, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create completion consumer", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "completion-consumer",
	})
	logg.Info(ctx, "starting completion consumer")

	if err := completionConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "completion consumer stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "completion consumer shutting down gracefully")
}
