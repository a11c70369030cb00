package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"wexcommerce/internal/auth"
	"wexcommerce/internal/config"
	"wexcommerce/internal/db"
	"wexcommerce/internal/events"
	"wexcommerce/internal/httpserver"
	"wexcommerce/internal/janitor"
	cartrepo "wexcommerce/internal/repository/cart"
	categoryrepo "wexcommerce/internal/repository/category"
	deliverytyperepo "wexcommerce/internal/repository/deliverytype"
	notificationrepo "wexcommerce/internal/repository/notification"
	orderrepo "wexcommerce/internal/repository/order"
	paymenttyperepo "wexcommerce/internal/repository/paymenttype"
	productrepo "wexcommerce/internal/repository/product"
	settingrepo "wexcommerce/internal/repository/setting"
	userrepo "wexcommerce/internal/repository/user"
	cartsvc "wexcommerce/internal/service/cart"
	categorysvc "wexcommerce/internal/service/category"
	checkoutsvc "wexcommerce/internal/service/checkout"
	notificationsvc "wexcommerce/internal/service/notification"
	ordersvc "wexcommerce/internal/service/order"
	"wexcommerce/internal/service/payment"
	productsvc "wexcommerce/internal/service/product"
	settingsvc "wexcommerce/internal/service/setting"
	usersvc "wexcommerce/internal/service/user"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	productRepo := productrepo.NewPostgres(dbpool, logger)
	cartRepo := cartrepo.NewPostgres(dbpool)
	categoryRepo := categoryrepo.NewPostgres(dbpool)
	userRepo := userrepo.NewPostgres(dbpool, logger)
	deliveryTypeRepo := deliverytyperepo.NewPostgres(dbpool)
	paymentTypeRepo := paymenttyperepo.NewPostgres(dbpool)
	settingRepo := settingrepo.NewPostgres(dbpool)
	notificationRepo := notificationrepo.NewPostgres(dbpool, logger)
	orderRepo := orderrepo.NewPostgres(dbpool, logger)

	tokens := auth.NewManager(cfg.JWTSecret, cfg.JWTTTL)
	cartService := cartsvc.New(cartRepo, productRepo)

	var gateways []payment.Gateway
	var stripe *payment.Stripe
	if cfg.StripeSecretKey != "" {
		stripe = payment.NewStripe(payment.NewStripeClient(cfg.StripeSecretKey), cfg.StripeWebhookSecret, logger)
		gateways = append(gateways, stripe)
	} else {
		logger.Printf("stripe: STRIPE_SECRET_KEY not set, gateway disabled")
	}
	if cfg.PayPalClientID != "" {
		gateways = append(gateways, payment.NewPayPal(cfg.PayPalBaseURL, cfg.PayPalClientID, cfg.PayPalClientSecret, logger))
	} else {
		logger.Printf("paypal: PAYPAL_CLIENT_ID not set, gateway disabled")
	}
	paymentGateways := payment.NewGateways(gateways...)

	hub := events.NewHub(cfg.CORSOrigins, logger)
	publishers := events.Fanout{hub}
	if cfg.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue, logger)
		if err != nil {
			logger.Fatalf("connect to amqp: %v", err)
		}
		defer amqpPublisher.Close()
		publishers = append(publishers, amqpPublisher)
	}

	checkoutService := checkoutsvc.New(checkoutsvc.Deps{
		Carts:         cartRepo,
		DeliveryTypes: deliveryTypeRepo,
		PaymentTypes:  paymentTypeRepo,
		Settings:      settingRepo,
		Users:         userRepo,
		Orders:        orderRepo,
		Gateways:      paymentGateways,
		Events:        publishers,
		Logger:        logger,
	}, checkoutsvc.Options{
		SessionExpiry: cfg.PaymentSessionExpiry,
		ExpiryGrace:   cfg.OrderExpiryGrace,
		FrontendURL:   cfg.FrontendURL,
	})

	orderDeps := ordersvc.Deps{
		Orders:   orderRepo,
		Gateways: paymentGateways,
		Settings: settingRepo,
		Events:   publishers,
		Logger:   logger,
	}
	if stripe != nil {
		orderDeps.Webhooks = stripe
	}

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Tokens:          tokens,
		UserSvc:         usersvc.New(userRepo, tokens, cartService, logger),
		ProductSvc:      productsvc.New(productRepo),
		CategorySvc:     categorysvc.New(categoryRepo),
		SettingSvc:      settingsvc.New(deliveryTypeRepo, paymentTypeRepo, settingRepo),
		CartSvc:         cartService,
		CheckoutSvc:     checkoutService,
		OrderSvc:        ordersvc.New(orderDeps),
		NotificationSvc: notificationsvc.New(notificationRepo),
		OrderFeed:       hub,
		CORSOrigins:     cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	sweeper := janitor.New(cfg.JanitorInterval, notificationRepo, logger).
		Register("orders", orderRepo).
		Register("users", userRepo)
	go sweeper.Run(ctx)

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
