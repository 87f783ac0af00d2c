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

	"github.com/pentabook/bookshop/internal/accounts"
	"github.com/pentabook/bookshop/internal/telemetry"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

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

	repo := accounts.NewRepository(db)
	handler := accounts.NewHandler(repo, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /buyers", handler.HandleRegisterBuyer)
	mux.HandleFunc("GET /buyers", handler.HandleListBuyers)
	mux.HandleFunc("GET /buyers/{id}", handler.HandleGetBuyer)
	mux.HandleFunc("DELETE /buyers/{id}", handler.HandleDeleteBuyer)
	mux.HandleFunc("POST /shops", handler.HandleRegisterShop)
	mux.HandleFunc("GET /shops", handler.HandleListShops)
	mux.HandleFunc("GET /shops/{id}", handler.HandleGetShop)
	mux.HandleFunc("POST /shops/{id}/verify", handler.HandleVerifyShop)
	mux.HandleFunc("DELETE /shops/{id}", handler.HandleDeleteShop)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting accounts service", "port", port)
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
