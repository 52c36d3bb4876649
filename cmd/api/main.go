package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/customers"
	"storefront/internal/messaging"
	"storefront/internal/notify"
	"storefront/internal/orders"
	"storefront/internal/products"
	"storefront/internal/storage"
	"storefront/internal/telemetry"
	"storefront/internal/tenant"
)

const serviceVersion = "0.1.0"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("api server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	metricsHandler, shutdownTelemetry, err := telemetry.Init(ctx, cfg.Service.Name, serviceVersion)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Error("failed to shut down telemetry", "error", err)
		}
	}()

	if err := runtime.Start(runtime.WithMinimumReadMemStatsInterval(time.Second)); err != nil {
		return fmt.Errorf("start runtime metrics: %w", err)
	}

	db, err := telemetry.OpenDB("postgres", cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	authority := auth.NewTokenAuthority(cfg.Auth.SessionSecret, cfg.Auth.VerificationSecret)

	clientRepo := tenant.NewClientRepository(db)
	customerRepo := customers.NewCustomerRepository(db)
	productRepo := products.NewProductRepository(db)
	orderRepo := orders.NewOrderRepository(db)

	deliverer := notify.NewDeliverer(clientRepo, notify.NewSMTPMailer(), logger)

	var dispatcher *notify.Dispatcher
	if len(cfg.Kafka.Brokers) > 0 {
		producer := messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() { _ = producer.Close() }()
		dispatcher = notify.NewDispatcher(producer, deliverer, logger)
		logger.Info("notifications dispatched through kafka", "topic", cfg.Kafka.Topic)
	} else {
		dispatcher = notify.NewDispatcher(nil, deliverer, logger)
		logger.Info("no kafka brokers configured, notifications delivered inline")
	}

	blob := storage.NewBlobClient(cfg.Storage.BaseURL, cfg.Storage.APIKey, nil)

	orderService, err := orders.NewService(orderRepo, productRepo, customerRepo, clientRepo, dispatcher, logger)
	if err != nil {
		return fmt.Errorf("init order service: %w", err)
	}
	customerService := customers.NewService(customerRepo, authority, dispatcher, cfg.Service.PublicURL, logger)
	productService := products.NewService(productRepo, blob, logger)

	orderHandler := orders.NewHandler(orderService, logger)
	customerHandler := customers.NewHandler(customerService, logger)
	productHandler := products.NewHandler(productService, logger)

	mux := http.NewServeMux()

	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, telemetry.WithHTTPRoute(h))
	}
	tenantRoute := func(pattern string, h http.HandlerFunc) {
		route(pattern, authority.RequireTenant(h))
	}

	tenantRoute("GET /orders", orderHandler.HandleList)
	tenantRoute("POST /orders", orderHandler.HandleCreate)
	tenantRoute("GET /orders/{id}", orderHandler.HandleGet)
	tenantRoute("PUT /orders/{id}", orderHandler.HandleUpdateStatus)
	tenantRoute("DELETE /orders/{id}", orderHandler.HandleDelete)
	tenantRoute("GET /orders/get/totalsales", orderHandler.HandleTotalSales)
	tenantRoute("GET /orders/get/count", orderHandler.HandleCount)
	// Payment provider webhook; carries no tenant credential.
	route("POST /orders/update-order-payment", orderHandler.HandleRecordPayment)

	tenantRoute("POST /customers", customerHandler.HandleRegister)
	tenantRoute("POST /customers/registration", customerHandler.HandleRegister)
	tenantRoute("POST /customers/login", customerHandler.HandleLogin)
	tenantRoute("GET /customers", customerHandler.HandleList)
	tenantRoute("GET /customers/{id}", customerHandler.HandleGet)
	tenantRoute("PUT /customers/{id}", customerHandler.HandleUpdate)
	tenantRoute("DELETE /customers/{id}", customerHandler.HandleDelete)
	// Verification link from the email; the token is the credential.
	route("GET /customers/verify", customerHandler.HandleVerify)

	tenantRoute("GET /products", productHandler.HandleList)
	tenantRoute("POST /products", productHandler.HandleCreate)
	tenantRoute("GET /products/{id}", productHandler.HandleGet)
	tenantRoute("PUT /products/{id}", productHandler.HandleUpdate)
	tenantRoute("DELETE /products/{id}", productHandler.HandleDelete)

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Service.Port),
		Handler:           otelhttp.NewHandler(mux, "server"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", "error", err)
		}
	}()

	logger.Info("api server listening", "addr", server.Addr, "service", cfg.Service.Name)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
