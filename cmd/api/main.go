package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/kasuwahq/kasuwa-backend/api/routes"
	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/payments"
	"github.com/kasuwahq/kasuwa-backend/internal/products"
	"github.com/kasuwahq/kasuwa-backend/internal/returns"
	"github.com/kasuwahq/kasuwa-backend/internal/wallet"
	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/gateway"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/migrate"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	verifiers := gateway.NewRegistry()
	if flw, err := gateway.NewFlutterwaveClient(cfg.Flutterwave, logg); err != nil {
		logg.Warn(context.Background(), "flutterwave gateway not configured: "+err.Error())
	} else {
		verifiers.Register(enums.PaymentMethodFlutterwave, flw)
	}
	if paystack, err := gateway.NewPaystackClient(cfg.Paystack, logg); err != nil {
		logg.Warn(context.Background(), "paystack gateway not configured: "+err.Error())
	} else {
		verifiers.Register(enums.PaymentMethodPayFast, paystack)
	}

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ordersRepo := orders.NewRepository(dbClient.DB())
	productsRepo := products.NewRepository(dbClient.DB())
	returnsRepo := returns.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(dbClient, ordersRepo, productsRepo, walletService, wallet.NewRepository(dbClient.DB()), verifiers, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	returnsService, err := returns.NewService(dbClient, returnsRepo, ordersRepo, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create returns service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(dbClient, paymentsRepo, ordersRepo, returnsRepo, walletService, emitter, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
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
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			ordersService,
			returnsService,
			paymentsService,
			walletService,
			productsRepo,
			notificationsService,
		),
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
