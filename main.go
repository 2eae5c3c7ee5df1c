package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"storefront-service/handlers"
	"storefront-service/internal/auth"
	"storefront-service/internal/campaigns"
	"storefront-service/internal/consul"
	"storefront-service/internal/email"
	"storefront-service/internal/orders"
	"storefront-service/internal/products"
	"storefront-service/internal/stores"
	"storefront-service/internal/stores/kafka"
	"storefront-service/internal/stores/postgres"
	"storefront-service/migrations"
	"storefront-service/pkg/logkey"

	"github.com/joho/godotenv"
)

const serviceName = "storefront-service"

func main() {
	setupSlog()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	if err := startApp(); err != nil {
		slog.Error("service startup failed", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	logger := slog.New(logHandler)
	slog.SetDefault(logger)
}

func startApp() error {
	keys, err := loadKeys()
	if err != nil {
		return fmt.Errorf("loading jwt keys: %w", err)
	}

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	storesConf, err := stores.NewConf(db)
	if err != nil {
		return err
	}
	campaignsConf, err := campaigns.NewConf(db)
	if err != nil {
		return err
	}
	productsConf, err := products.NewConf(db, variantCeiling())
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(db)
	if err != nil {
		return err
	}

	kafkaConf, err := kafka.NewConf()
	if err != nil {
		// Orders still confirm without the event stream, fulfillment
		// consumers just go quiet.
		slog.Warn("kafka unavailable, continuing without events", slog.String(logkey.ERROR, err.Error()))
		kafkaConf = nil
	} else {
		defer kafkaConf.Close()
	}

	mailer, err := email.NewSMTPMailer()
	if err != nil {
		return fmt.Errorf("configuring mailer: %w", err)
	}

	consulClient, err := consul.NewClient()
	if err != nil {
		return fmt.Errorf("creating consul client: %w", err)
	}

	port, err := consul.ServicePort()
	if err != nil {
		return err
	}
	host := os.Getenv("SERVICE_HOST")
	if host == "" {
		host = "localhost"
	}
	if err := consul.RegisterService(consulClient, serviceName, host, port); err != nil {
		slog.Warn("consul registration failed", slog.String(logkey.ERROR, err.Error()))
	}

	prefix := os.Getenv("SERVICE_ENDPOINT_PREFIX")
	if prefix == "" {
		prefix = "/v1"
	}

	api := http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      handlers.API(prefix, keys, storesConf, campaignsConf, productsConf, ordersConf, kafkaConf, mailer),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting api server", slog.String("Address", api.Addr))
		serverErrors <- api.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown signal received", slog.String("Signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := api.Shutdown(ctx); err != nil {
			if closeErr := api.Close(); closeErr != nil {
				return errors.Join(err, closeErr)
			}
			return err
		}
	}

	return nil
}

func loadKeys() (*auth.Keys, error) {
	privatePath := os.Getenv("JWT_PRIVATE_KEY_FILE")
	if privatePath == "" {
		privatePath = "private.pem"
	}
	publicPath := os.Getenv("JWT_PUBLIC_KEY_FILE")
	if publicPath == "" {
		publicPath = "pubkey.pem"
	}

	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return auth.NewKeys(privatePEM, publicPEM)
}

func variantCeiling() int {
	v := os.Getenv("VARIANT_CEILING")
	if v == "" {
		return products.DefaultVariantCeiling
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		slog.Warn("invalid VARIANT_CEILING, using default", slog.String("Value", v))
		return products.DefaultVariantCeiling
	}
	return n
}
