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
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/orderflow-checkout/internal/cart"
	"github.com/joao-fontenele/orderflow-checkout/internal/catalog"
	"github.com/joao-fontenele/orderflow-checkout/internal/config"
	"github.com/joao-fontenele/orderflow-checkout/internal/email"
	"github.com/joao-fontenele/orderflow-checkout/internal/httpmiddleware"
	"github.com/joao-fontenele/orderflow-checkout/internal/messaging"
	"github.com/joao-fontenele/orderflow-checkout/internal/orders"
	"github.com/joao-fontenele/orderflow-checkout/internal/telemetry"
	"github.com/joao-fontenele/orderflow-checkout/internal/users"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var cfg config.Orders
	if err := config.Load(&cfg); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	policy, err := orders.ParseStockPolicy(cfg.StockPolicy)
	if err != nil {
		logger.Error("invalid stock policy", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	metrics, err := orders.NewMetrics(otel.Meter("orders"))
	if err != nil {
		logger.Error("failed to create metrics", "error", err)
		os.Exit(1)
	}

	opts := []orders.ServiceOption{orders.WithMetrics(metrics)}

	var (
		producer   *messaging.Producer
		dispatcher *orders.Dispatcher
		sender     orders.Sender
	)
	switch {
	case len(cfg.KafkaBrokers) > 0:
		producer = messaging.NewProducer(cfg.KafkaBrokers, messaging.NotificationsTopic)
		sender = producer
		logger.Info("order notifications go to kafka", "brokers", cfg.KafkaBrokers, "topic", messaging.NotificationsTopic)
	case cfg.EmailServiceURL != "":
		sender = email.NewClient(email.ClientConfig{BaseURL: cfg.EmailServiceURL, Timeout: cfg.NotifySendTimeout})
		logger.Info("order notifications go to the email service", "url", cfg.EmailServiceURL)
	default:
		logger.Warn("order notifications disabled: neither KAFKA_BROKERS nor EMAIL_SERVICE_URL is set")
	}

	if sender != nil {
		dispatcher = orders.NewDispatcher(orders.DispatcherConfig{
			Recipient:   cfg.NotifyRecipient,
			QueueSize:   cfg.NotifyQueueSize,
			Workers:     cfg.NotifyWorkers,
			SendTimeout: cfg.NotifySendTimeout,
		}, users.NewUserRepository(db), catalog.NewProductRepository(db), sender, metrics, logger)
		dispatcher.Start(ctx)
		opts = append(opts, orders.WithNotifier(dispatcher))
	}

	service := orders.NewService(orders.NewPostgresStore(db, policy), orders.NewOrderRepository(db), logger, opts...)
	ordersHandler := orders.NewHandler(service, logger)
	cartHandler := cart.NewHandler(cart.NewCartRepository(db), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", telemetry.WithHTTPRoute(ordersHandler.HandlePlace))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(ordersHandler.HandleGet))
	mux.HandleFunc("GET /orders/user/{userId}", telemetry.WithHTTPRoute(ordersHandler.HandleListByUser))
	mux.HandleFunc("PATCH /orders/{id}/status", telemetry.WithHTTPRoute(ordersHandler.HandleUpdateStatus))
	mux.HandleFunc("PUT /orders/{id}/status", telemetry.WithHTTPRoute(ordersHandler.HandleUpdateStatus))
	mux.HandleFunc("GET /cart/user/{userId}", telemetry.WithHTTPRoute(cartHandler.HandleList))
	mux.HandleFunc("POST /cart", telemetry.WithHTTPRoute(cartHandler.HandleAdd))
	mux.HandleFunc("PUT /cart/{id}", telemetry.WithHTTPRoute(cartHandler.HandleUpdate))
	mux.HandleFunc("DELETE /cart/{id}", telemetry.WithHTTPRoute(cartHandler.HandleDelete))
	mux.HandleFunc("DELETE /cart/clear/{userId}", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: otelhttp.NewHandler(
			httpmiddleware.Chain(mux, httpmiddleware.RequestID(), httpmiddleware.Recovery(logger)),
			"orders",
			otelhttp.WithSpanNameFormatter(telemetry.SpanName),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", cfg.Port, "stock_policy", policy)
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
	}

	// Pending confirmations are flushed before the producer goes away.
	if dispatcher != nil {
		dispatcher.Close()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("failed to close producer", "error", err)
		}
	}
}
