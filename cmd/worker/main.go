package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joao-fontenele/orderflow-checkout/internal/config"
	"github.com/joao-fontenele/orderflow-checkout/internal/email"
	"github.com/joao-fontenele/orderflow-checkout/internal/messaging"
	"github.com/joao-fontenele/orderflow-checkout/internal/telemetry"
	"github.com/joao-fontenele/orderflow-checkout/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Worker
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "notification-worker", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	consumer := messaging.NewConsumer(cfg.KafkaBrokers, messaging.NotificationsTopic, cfg.GroupID)
	defer func() { _ = consumer.Close() }()

	client := email.NewClient(email.ClientConfig{
		BaseURL:    cfg.EmailServiceURL,
		Timeout:    cfg.EmailTimeout,
		RetryCount: cfg.EmailRetries,
	})
	handler := worker.NewNotificationHandler(client, logger)

	logger.Info("starting notification worker",
		"brokers", cfg.KafkaBrokers,
		"topic", messaging.NotificationsTopic,
		"group_id", cfg.GroupID,
	)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
