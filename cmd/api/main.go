package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/jordanvales/threadswap-backend/api/routes"
	checkoutsvc "github.com/jordanvales/threadswap-backend/internal/checkout"
	"github.com/jordanvales/threadswap-backend/internal/listings"
	"github.com/jordanvales/threadswap-backend/internal/notifications"
	"github.com/jordanvales/threadswap-backend/internal/orders"
	"github.com/jordanvales/threadswap-backend/internal/payments"
	"github.com/jordanvales/threadswap-backend/internal/settlement"
	"github.com/jordanvales/threadswap-backend/internal/shipping"
	stripewebhook "github.com/jordanvales/threadswap-backend/internal/webhooks/stripe"
	"github.com/jordanvales/threadswap-backend/pkg/config"
	"github.com/jordanvales/threadswap-backend/pkg/db"
	"github.com/jordanvales/threadswap-backend/pkg/logger"
	"github.com/jordanvales/threadswap-backend/pkg/metrics"
	"github.com/jordanvales/threadswap-backend/pkg/migrate"
	"github.com/jordanvales/threadswap-backend/pkg/pubsub"
	"github.com/jordanvales/threadswap-backend/pkg/redis"
	"github.com/jordanvales/threadswap-backend/pkg/shippo"
	"github.com/jordanvales/threadswap-backend/pkg/stripe"
)

const webhookGuardTTL = 24 * time.Hour

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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize stripe", err)
		os.Exit(1)
	}

	shippoClient, err := shippo.NewClient(cfg.Shippo)
	if err != nil {
		logg.Error(context.Background(), "failed to initialize shippo", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	pipelineMetrics := metrics.NewPipelineMetrics(registry)

	listingsRepo, err := listings.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create listings repository", err)
		os.Exit(1)
	}
	ordersRepo, err := orders.NewRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create orders repository", err)
		os.Exit(1)
	}
	customersRepo, err := payments.NewCustomerRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create customers repository", err)
		os.Exit(1)
	}
	shipmentsRepo, err := shipping.NewShipmentRepository(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create shipments repository", err)
		os.Exit(1)
	}

	resolver, err := listings.NewAddressResolver(dbClient.DB(), listingsRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create address resolver", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.ServiceParams{
		Gateway:   payments.NewStripeGateway(),
		Customers: customersRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	quoteSvc, err := shipping.NewQuoteService(shipping.QuoteServiceParams{
		Provider: shippoClient,
		Resolver: resolver,
		Carriers: cfg.Shippo.Carriers,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	labelSvc, err := shipping.NewLabelService(shipping.LabelServiceParams{
		Provider:  shippoClient,
		Shipments: shipmentsRepo,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create label service", err)
		os.Exit(1)
	}

	var notifier settlement.Notifier
	if cfg.PubSub.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to initialize pubsub", err)
			os.Exit(1)
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		publisher, err := notifications.NewPublisher(pubsubClient.NotificationsPublisher(), logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create notifications publisher", err)
			os.Exit(1)
		}
		notifier = publisher
	} else {
		logg.Warn(context.Background(), "pubsub project not configured, sold notifications disabled")
	}

	settlementSvc, err := settlement.NewService(settlement.ServiceParams{
		Tx:       dbClient,
		Listings: listingsRepo,
		Orders:   ordersRepo,
		Notifier: notifier,
		Metrics:  pipelineMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Settler: settlementSvc,
		Metrics: pipelineMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookVerifier, err := stripewebhook.NewVerifier(cfg.App.IsProd(), stripeClient.SigningSecret(), stripeClient.DevSigningSecret())
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook verifier", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, webhookGuardTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	cartStore, err := checkoutsvc.NewCartStore(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}

	checkoutSvc, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Listings: listingsRepo,
		Orders:   ordersRepo,
		Quoter:   quoteSvc,
		Labels:   labelSvc,
		Payments: paymentsSvc,
		Cart:     cartStore,
		Metrics:  pipelineMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
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
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Registry: registry,

			Payments: paymentsSvc,
			Quotes:   quoteSvc,
			Labels:   labelSvc,
			Checkout: checkoutSvc,

			StripeWebhook:         webhookSvc,
			StripeWebhookVerifier: webhookVerifier,
			StripeWebhookGuard:    webhookGuard,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
