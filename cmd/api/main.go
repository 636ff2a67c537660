package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/handler"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
	"github.com/gabegon8910/server-donation-tool/internal/payment/braintree"
	paymentmemory "github.com/gabegon8910/server-donation-tool/internal/payment/memory"
	"github.com/gabegon8910/server-donation-tool/internal/payment/paypal"
	"github.com/gabegon8910/server-donation-tool/internal/redeem"
	"github.com/gabegon8910/server-donation-tool/internal/repository"
	"github.com/gabegon8910/server-donation-tool/internal/server"
	"github.com/gabegon8910/server-donation-tool/internal/service"
)

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(os.Stdout, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h)
}

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Log)

	catalogue, err := config.LoadCatalogue(cfg.PackagesFile)
	if err != nil {
		log.Error("load package catalogue", slog.Any("error", err))
		os.Exit(1)
	}

	db, err := repository.InitSqliteClient(cfg.DatabasePath)
	if err != nil {
		log.Error("init database", slog.Any("error", err))
		os.Exit(1)
	}

	orderRepo := repository.NewOrderRepository(db, catalogue.Resolve)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	planRepo := repository.NewPlanRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	var gateway payment.Gateway
	provider := cfg.PaymentProvider
	switch cfg.PaymentProvider {
	case braintree.ProviderName:
		// Tokens come from Braintree's own vault, keyed by discord id.
		gateway = braintree.NewGateway(&cfg.Braintree, nil)
	default:
		if cfg.Paypal.ClientID == "" && cfg.Environment.Name == "development" {
			// Provider-less dev mode: everything succeeds locally.
			gateway = paymentmemory.NewGateway()
			provider = paymentmemory.ProviderName
			log.Warn("no paypal credentials, using in-memory gateway")
		} else {
			gateway = paypal.NewGateway(&cfg.Paypal, cfg.BaseURL)
		}
	}

	engine := redeem.NewEngine(
		redeem.NewCFToolsClient(&cfg.CFTools),
		redeem.NewDiscordRoleClient(&cfg.Discord),
		orderRepo,
		log,
	)
	events := service.NewLogSink(log)

	donations := service.NewDonations(gateway, orderRepo, engine, events, log)
	subscriptions := service.NewSubscriptions(
		gateway, provider, catalogue,
		planRepo, subscriptionRepo, orderRepo,
		engine, events, log,
	)
	webhooks := service.NewWebhooks(gateway, webhookEventRepo, donations, subscriptions, log)

	// Plans must exist before anyone can subscribe.
	provisionCtx, provisionCancel := context.WithTimeout(context.Background(), time.Minute)
	err = subscriptions.ProvisionPlans(provisionCtx)
	provisionCancel()
	if err != nil {
		log.Error("provision subscription plans", slog.Any("error", err))
		os.Exit(1)
	}

	srv := server.NewServer(
		cfg.SessionSecret,
		handler.NewDonationHandler(donations, catalogue),
		handler.NewSubscriptionHandler(subscriptions, catalogue),
		handler.NewWebhookHandler(webhooks),
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting HTTP server", slog.String("addr", serverAddr))
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Error("HTTP server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}
}
