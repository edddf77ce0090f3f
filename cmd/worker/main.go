package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/idempotency"
	"github.com/kasuwahq/kasuwa-backend/pkg/pubsub"
	"github.com/kasuwahq/kasuwa-backend/pkg/redis"
)

const consumerIdempotencyTTL = 7 * 24 * time.Hour

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "notification-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "notification-worker"

	logg = logger.New(logger.Options{
		ServiceName: "notification-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	manager, err := idempotency.NewManager(redisClient, consumerIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	notificationsRepo := notifications.NewRepository(dbClient.DB())

	ordersConsumer, err := notifications.NewConsumer(notificationsRepo, pubsubClient.OrdersSubscription(), manager, logg)
	requireResource(ctx, logg, "orders consumer", err)

	paymentsConsumer, err := notifications.NewConsumer(notificationsRepo, pubsubClient.PaymentsSubscription(), manager, logg)
	requireResource(ctx, logg, "payments consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"serviceKind": cfg.Service.Kind,
		"env":         cfg.App.Env,
	})
	logg.Info(runCtx, "notification worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error { return ordersConsumer.Run(groupCtx) })
	group.Go(func() error { return paymentsConsumer.Run(groupCtx) })

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "notification worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "notification worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
