package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"storefront/internal/config"
	"storefront/internal/messaging"
	"storefront/internal/notify"
	"storefront/internal/telemetry"
	"storefront/internal/tenant"
	"storefront/internal/worker"
)

const serviceVersion = "0.1.0"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("worker exited", "error", err)
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
	if len(cfg.Kafka.Brokers) == 0 {
		return errors.New("the worker needs kafka brokers configured")
	}

	_, shutdownTelemetry, err := telemetry.Init(ctx, "storefront-worker", serviceVersion)
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

	db, err := telemetry.OpenDB("postgres", cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	// SMTP credentials live in the clients table and are resolved here,
	// per event; they never ride the broker.
	deliverer := notify.NewDeliverer(tenant.NewClientRepository(db), notify.NewSMTPMailer(), logger)
	handler := worker.NewNotificationHandler(deliverer, logger)

	consumer := messaging.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, "storefront-worker")
	defer func() { _ = consumer.Close() }()

	logger.Info("worker consuming", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)

	if err := consumer.Consume(ctx, handler.Handle); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
