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

	"github.com/joao-fontenele/orderflow-checkout/internal/config"
	"github.com/joao-fontenele/orderflow-checkout/internal/gateway"
	"github.com/joao-fontenele/orderflow-checkout/internal/httpmiddleware"
	"github.com/joao-fontenele/orderflow-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Gateway
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	httpClient := &http.Client{
		Timeout:   cfg.UpstreamTimeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	ordersProxy := gateway.NewServiceProxy(cfg.OrdersServiceURL, httpClient)
	catalogProxy := gateway.NewServiceProxy(cfg.CatalogServiceURL, httpClient)
	handler := gateway.NewHandler(ordersProxy, catalogProxy, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/user/{userId}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PUT /orders/{id}/status", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /cart/user/{userId}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /cart", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PUT /cart/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("DELETE /cart/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("DELETE /cart/clear/{userId}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /catalog/products", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("GET /catalog/products/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Chain(mux, httpmiddleware.RequestID(), httpmiddleware.Recovery(logger)),
			"gateway",
			otelhttp.WithSpanNameFormatter(telemetry.SpanName),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", cfg.Port)
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
