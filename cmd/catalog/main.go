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
	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pentabook/bookshop/internal/catalog"
	"github.com/pentabook/bookshop/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "catalog", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("catalog", "0.1.0")
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

	repo := catalog.NewRepository(db)
	handler := catalog.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /books", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("GET /books/{id}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("POST /books", telemetry.WithHTTPRoute(handler.HandleCreate))
	mux.HandleFunc("PUT /books/{id}", telemetry.WithHTTPRoute(handler.HandleUpdate))
	mux.HandleFunc("DELETE /books/{id}", telemetry.WithHTTPRoute(handler.HandleDelete))
	mux.HandleFunc("POST /books/{id}/stock/decrement", telemetry.WithHTTPRoute(handler.HandleDecrementStock))
	mux.HandleFunc("GET /categories", telemetry.WithHTTPRoute(handler.HandleListCategories))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "catalog",
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
		logger.Info("starting catalog service", "port", port)
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
