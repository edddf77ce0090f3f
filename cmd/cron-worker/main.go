package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kasuwahq/kasuwa-backend/internal/cron"
	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/metrics"
	"github.com/kasuwahq/kasuwa-backend/pkg/migrate"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(lockName(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	outboxRepo := outbox.NewRepository(dbClient.DB())
	emitter := outbox.NewService(outboxRepo, logg)

	escalationJob, err := cron.NewEscalationJob(cron.EscalationJobParams{
		Logger:        logg,
		DB:            dbClient,
		Orders:        ordersRepo,
		Notifications: notificationsRepo,
		Outbox:        emitter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create escalation job", err)
		os.Exit(1)
	}

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  int(cfg.Cron.OutboxRetention.Hours() / 24),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox retention job", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(escalationJob, retentionJob, cleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.EscalationInterval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "metrics server stopped unexpectedly", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "error shutting down metrics server", err)
		}
	}()

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func lockName(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("cron-worker:%s", env)
}
