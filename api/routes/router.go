package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lumashop/storefront-backend/api/controllers"
	"github.com/lumashop/storefront-backend/api/middleware"
	"github.com/lumashop/storefront-backend/internal/catalog"
	checkoutsvc "github.com/lumashop/storefront-backend/internal/checkout"
	"github.com/lumashop/storefront-backend/internal/orders"
	"github.com/lumashop/storefront-backend/pkg/config"
	"github.com/lumashop/storefront-backend/pkg/db"
	"github.com/lumashop/storefront-backend/pkg/logger"
	"github.com/lumashop/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	catalogRepo catalog.Repository,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/offers", controllers.ListOffers(catalogRepo, logg))

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.Checkout(checkoutService, logg))
			r.Post("/quote", controllers.CheckoutQuote(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/{orderID}", controllers.GetOrder(ordersService, logg))
		})

		r.Post("/payments/events", controllers.PaymentEvent(ordersService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Patch("/orders/{orderID}/status", controllers.AdminEditOrderStatus(ordersService, logg))
	})

	return r
}
