package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pentabook/bookshop/internal/gateway"
	"github.com/pentabook/bookshop/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	ordersServiceURL := os.Getenv("ORDERS_SERVICE_URL")
	if ordersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL is required")
		os.Exit(1)
	}

	catalogServiceURL := os.Getenv("CATALOG_SERVICE_URL")
	if catalogServiceURL == "" {
		logger.Error("CATALOG_SERVICE_URL is required")
		os.Exit(1)
	}

	accountsServiceURL := os.Getenv("ACCOUNTS_SERVICE_URL")
	if accountsServiceURL == "" {
		logger.Error("ACCOUNTS_SERVICE_URL is required")
		os.Exit(1)
	}

	shipmentAPIURL := os.Getenv("SHIPMENT_API_URL")
	if shipmentAPIURL == "" {
		logger.Error("SHIPMENT_API_URL is required")
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := gateway.NewHandler(
		gateway.NewServiceProxy(ordersServiceURL, httpClient),
		gateway.NewServiceProxy(catalogServiceURL, httpClient),
		gateway.NewServiceProxy(accountsServiceURL, httpClient),
		gateway.NewServiceProxy(shipmentAPIURL, httpClient),
		logger,
	)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{id}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/pay", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{id}/ship", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /shipments", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /shipments/{trackingNo}/resolve", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /cart/items", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /cart", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("DELETE /cart/items/{bookID}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("DELETE /cart", telemetry.WithHTTPRoute(handler.HandleOrders))

	mux.HandleFunc("GET /books", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("GET /books/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("POST /books", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("PUT /books/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("DELETE /books/{id}", telemetry.WithHTTPRoute(handler.HandleCatalog))
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(handler.HandleCatalog))

	mux.HandleFunc("POST /buyers", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("GET /buyers", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("GET /buyers/{id}", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("DELETE /buyers/{id}", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("POST /shops", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("GET /shops", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("GET /shops/{id}", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("POST /shops/{id}/verify", telemetry.WithHTTPRoute(handler.HandleAccounts))
	mux.HandleFunc("DELETE /shops/{id}", telemetry.WithHTTPRoute(handler.HandleAccounts))

	mux.HandleFunc("GET /track_shipment/{trackingNo}", telemetry.WithHTTPRoute(handler.HandleTracking))

	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "gateway",
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
		logger.Info("starting gateway service", "port", port)
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
