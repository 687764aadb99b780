package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jordanvales/threadswap-backend/api/controllers"
	webhookcontrollers "github.com/jordanvales/threadswap-backend/api/controllers/webhooks"
	"github.com/jordanvales/threadswap-backend/api/middleware"
	checkoutsvc "github.com/jordanvales/threadswap-backend/internal/checkout"
	"github.com/jordanvales/threadswap-backend/internal/payments"
	"github.com/jordanvales/threadswap-backend/internal/shipping"
	stripewebhook "github.com/jordanvales/threadswap-backend/internal/webhooks/stripe"
	"github.com/jordanvales/threadswap-backend/pkg/config"
	"github.com/jordanvales/threadswap-backend/pkg/db"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/redis"
)

// Deps collects everything the HTTP surface needs.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Payments *payments.Service
	Quotes   *shipping.QuoteService
	Labels   *shipping.LabelService
	Checkout *checkoutsvc.Service

	StripeWebhook         *stripewebhook.Service
	StripeWebhookVerifier *stripewebhook.Verifier
	StripeWebhookGuard    *stripewebhook.IdempotencyGuard
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.DB, deps.Redis, logg))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhook, deps.StripeWebhookVerifier, deps.StripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Post("/payments/intents", controllers.CreatePaymentIntent(deps.Payments, logg))
		r.Post("/shipping/rates", controllers.GetShippingRates(deps.Quotes, logg))
		r.Post("/shipping/labels", controllers.PurchaseShippingLabel(deps.Labels, logg))
		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
	})

	return r
}
