package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/librastore/librashop-backend/api/routes"
	"github.com/librastore/librashop-backend/internal/address"
	"github.com/librastore/librashop-backend/internal/cart"
	"github.com/librastore/librashop-backend/internal/catalog"
	checkoutsvc "github.com/librastore/librashop-backend/internal/checkout"
	"github.com/librastore/librashop-backend/internal/contact"
	"github.com/librastore/librashop-backend/internal/coupons"
	"github.com/librastore/librashop-backend/internal/customers"
	"github.com/librastore/librashop-backend/internal/orders"
	stripewebhook "github.com/librastore/librashop-backend/internal/webhooks/stripe"
	"github.com/librastore/librashop-backend/internal/wishlist"
	"github.com/librastore/librashop-backend/pkg/config"
	"github.com/librastore/librashop-backend/pkg/db"
	"github.com/librastore/librashop-backend/pkg/logger"
	"github.com/librastore/librashop-backend/pkg/mail"
	"github.com/librastore/librashop-backend/pkg/metrics"
	"github.com/librastore/librashop-backend/pkg/migrate"
	"github.com/librastore/librashop-backend/pkg/redis"
	"github.com/librastore/librashop-backend/pkg/stripe"
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

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	mailer, err := mail.NewMailer(context.Background(), cfg.Sendgrid, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap mailer", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	gormDB := dbClient.DB()
	customersRepo := customers.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	cartRepo := cart.NewRepository(gormDB)
	couponsRepo := coupons.NewRepository(gormDB)
	addressRepo := address.NewRepository(gormDB)
	ordersRepo := orders.NewRepository(gormDB)
	wishlistRepo := wishlist.NewRepository(gormDB)
	contactRepo := contact.NewRepository(gormDB)

	customersSvc, err := customers.NewService(customers.ServiceParams{Repo: customersRepo})
	requireService(logg, "customers", err)

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{Repo: catalogRepo})
	requireService(logg, "catalog", err)

	cartSvc, err := cart.NewService(cart.ServiceParams{
		CartRepo:          cartRepo,
		Products:          catalogRepo,
		TransactionRunner: dbClient,
	})
	requireService(logg, "cart", err)

	couponsSvc, err := coupons.NewService(coupons.ServiceParams{Repo: couponsRepo})
	requireService(logg, "coupons", err)

	addressSvc, err := address.NewService(address.ServiceParams{Repo: addressRepo})
	requireService(logg, "address", err)

	stateStore, err := checkoutsvc.NewStateStore(redisClient, cfg.Checkout.StateTTL)
	requireService(logg, "checkout state", err)

	stripeSessions := checkoutsvc.NewStripeSessionClient(stripeClient)

	checkoutSvc, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Carts:     cartRepo,
		Coupons:   couponsSvc,
		Addresses: addressRepo,
		State:     stateStore,
		Stripe:    stripeSessions,
		Config:    cfg.Checkout,
		Metrics:   checkoutMetrics,
		StripeEnv: stripeClient.Environment(),
	})
	requireService(logg, "checkout", err)

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		OrderRepo:         ordersRepo,
		CartRepo:          cartRepo,
		Coupons:           couponsRepo,
		Customers:         customersRepo,
		TransactionRunner: dbClient,
		State:             stateStore,
		Mailer:            mailer,
		Metrics:           checkoutMetrics,
		Logger:            logg,
	})
	requireService(logg, "orders", err)

	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlistRepo,
		Products:     catalogRepo,
	})
	requireService(logg, "wishlist", err)

	contactSvc, err := contact.NewService(contact.ServiceParams{
		Repo:    contactRepo,
		Limiter: redisClient,
	})
	requireService(logg, "contact", err)

	webhookSvc, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders:  ordersSvc,
		Metrics: checkoutMetrics,
	})
	requireService(logg, "stripe webhook", err)

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Checkout.WebhookEventTTL, "stripe")
	requireService(logg, "webhook guard", err)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:         cfg,
			Logger:         logg,
			DB:             dbClient,
			Redis:          redisClient,
			Gatherer:       registry,
			Customers:      customersSvc,
			Catalog:        catalogSvc,
			Cart:           cartSvc,
			Coupons:        couponsSvc,
			Addresses:      addressSvc,
			Checkout:       checkoutSvc,
			Orders:         ordersSvc,
			Wishlist:       wishlistSvc,
			Contact:        contactSvc,
			StripeClient:   stripeClient,
			StripeSessions: stripeSessions,
			WebhookService: webhookSvc,
			WebhookGuard:   webhookGuard,
		}),
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stop:
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err != nil {
		logg.Error(context.Background(), "failed to create "+name+" service", err)
		os.Exit(1)
	}
}
