package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kasuwahq/kasuwa-backend/api/controllers"
	"github.com/kasuwahq/kasuwa-backend/api/middleware"
	"github.com/kasuwahq/kasuwa-backend/internal/notifications"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/payments"
	"github.com/kasuwahq/kasuwa-backend/internal/products"
	"github.com/kasuwahq/kasuwa-backend/internal/returns"
	"github.com/kasuwahq/kasuwa-backend/internal/wallet"
	"github.com/kasuwahq/kasuwa-backend/pkg/config"
	"github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	returnsService returns.Service,
	paymentsService payments.Service,
	walletService wallet.Service,
	productsRepo products.Repository,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.Get("/v1/products/{productId}", controllers.ProductDetail(productsRepo, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.Post("/", controllers.CreateOrder(ordersService, logg))
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/items/{itemId}/tracking", controllers.AdvanceItemTracking(ordersService, logg))
		})
		r.Get("/v1/order-items/{itemId}/timeline", controllers.OrderItemTimeline(ordersService, logg))

		r.Route("/v1/returns", func(r chi.Router) {
			r.Post("/", controllers.CreateReturn(returnsService, logg))
			r.Get("/", controllers.ListReturns(returnsService, logg))
			r.Get("/{returnId}", controllers.ReturnDetail(returnsService, logg))
			r.Post("/{returnId}/tracking", controllers.AdvanceReturnTracking(returnsService, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Post("/payouts", controllers.RequestPayout(paymentsService, logg))
			r.Post("/refunds", controllers.RequestRefund(paymentsService, logg))
			r.Get("/", controllers.ListPayments(paymentsService, logg))
			r.Get("/{paymentId}", controllers.PaymentDetail(paymentsService, logg))
		})

		r.Route("/v1/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})

		r.Route("/v1/seller/products", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ActorRoleSeller), logg))
			r.Post("/", controllers.CreateProduct(productsRepo, logg))
			r.Get("/", controllers.ListSellerProducts(productsRepo, logg))
		})

		r.Route("/v1/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(string(enums.ActorRoleAdmin), logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/ping", controllers.AdminPing())

		r.Route("/v1/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/{orderId}/items/{itemId}/tracking", controllers.AdvanceItemTracking(ordersService, logg))
		})

		r.Route("/v1/returns", func(r chi.Router) {
			r.Get("/", controllers.ListReturns(returnsService, logg))
			r.Post("/{returnId}/decision", controllers.DecideReturn(returnsService, logg))
			r.Post("/{returnId}/tracking", controllers.AdvanceReturnTracking(returnsService, logg))
		})

		r.Route("/v1/payments", func(r chi.Router) {
			r.Get("/", controllers.ListPayments(paymentsService, logg))
			r.Post("/{paymentId}/approve", controllers.ApprovePayment(paymentsService, logg))
			r.Post("/{paymentId}/decline", controllers.DeclinePayment(paymentsService, logg))
		})
	})

	return r
}
