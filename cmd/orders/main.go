package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pentabook/bookshop/internal/cart"
	"github.com/pentabook/bookshop/internal/messaging"
	"github.com/pentabook/bookshop/internal/orders"
	"github.com/pentabook/bookshop/internal/payments"
	"github.com/pentabook/bookshop/internal/shipping"
	"github.com/pentabook/bookshop/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB("postgres", postgresURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if _, err := db.Exec("SET search_path TO bookshop"); err != nil {
		logger.Error("failed to set search_path", "error", err)
		os.Exit(1)
	}

	paymentGatewayURL := os.Getenv("PAYMENT_GATEWAY_URL")
	if paymentGatewayURL == "" {
		logger.Error("PAYMENT_GATEWAY_URL environment variable is required")
		os.Exit(1)
	}

	shipmentAPIURL := os.Getenv("SHIPMENT_API_URL")
	if shipmentAPIURL == "" {
		logger.Error("SHIPMENT_API_URL environment variable is required")
		os.Exit(1)
	}

	var producer orders.EventPublisher
	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers != "" {
		p := messaging.NewProducer(strings.Split(kafkaBrokers, ","), messaging.TopicOrderPaid)
		defer func() { _ = p.Close() }()
		producer = p
	} else {
		logger.Warn("KAFKA_BROKERS not set, order paid events will not be published")
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	orderRepo := orders.NewOrderRepository(db)
	shipmentRepo := shipping.NewRepository(db)
	gatewayClient := payments.NewClient(paymentGatewayURL, httpClient)
	shipperClient := shipping.NewClient(shipmentAPIURL, httpClient)
	orderHandler := orders.NewHandler(orderRepo, shipmentRepo, gatewayClient, shipperClient, producer, logger)

	cartRepo := cart.NewRepository(db)
	cartHandler := cart.NewHandler(cartRepo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(orderHandler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(orderHandler.HandleList))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(orderHandler.HandleGet))
	mux.HandleFunc("POST /orders/{id}/pay", telemetry.WithHTTPRoute(orderHandler.HandlePay))
	mux.HandleFunc("POST /orders/{id}/ship", telemetry.WithHTTPRoute(orderHandler.HandleInitiateShipment))
	mux.HandleFunc("GET /shipments", telemetry.WithHTTPRoute(orderHandler.HandleListShipments))
	mux.HandleFunc("POST /shipments/{trackingNo}/resolve", telemetry.WithHTTPRoute(orderHandler.HandleResolveShipment))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("DELETE /cart/items/{bookID}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(cartHandler.HandleClear))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "orders",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
