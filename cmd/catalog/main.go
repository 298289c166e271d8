package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/orderflow-checkout/internal/catalog"
	"github.com/joao-fontenele/orderflow-checkout/internal/config"
	"github.com/joao-fontenele/orderflow-checkout/internal/httpmiddleware"
	"github.com/joao-fontenele/orderflow-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Catalog
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "catalog", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("catalog")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	db, err := telemetry.OpenDB(cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database connection", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	handler := catalog.NewHandler(catalog.NewProductRepository(db), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("GET /products/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Chain(mux, httpmiddleware.RequestID(), httpmiddleware.Recovery(logger)),
			"catalog",
			otelhttp.WithSpanNameFormatter(telemetry.SpanName),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting catalog service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
