package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/splitpot/splitpot/internal/auth"
	"github.com/splitpot/splitpot/internal/httpapi"
	"github.com/splitpot/splitpot/internal/jobs"
	"github.com/splitpot/splitpot/internal/notify"
	"github.com/splitpot/splitpot/internal/rephrase"
	"github.com/splitpot/splitpot/internal/service"
	"github.com/splitpot/splitpot/internal/storage/sqlite"
	"github.com/splitpot/splitpot/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/splitpot.db")
	addr := getEnv("LISTEN_ADDR", ":8080")
	jwtSecret := getEnv("JWT_SECRET", "")
	rephraserURL := getEnv("REPHRASER_URL", "")

	if jwtSecret == "" {
		slog.Error("JWT_SECRET is required")
		os.Exit(1)
	}

	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("storage initialized", "database", dbPath)

	hub := notify.NewHub()
	defer hub.Close()

	jwtManager := auth.NewJWTManager(jwtSecret, 24*time.Hour)
	authenticator := auth.NewPasswordAuthenticator(store)

	groups := service.NewGroupService(store, hub)
	expenses := service.NewExpenseService(store, hub)
	settlements := service.NewSettlementService(store, hub)
	subscriptions := service.NewSubscriptionService(store, hub, expenses)
	categories := service.NewCategoryService(store)
	summaries := service.NewSummaryService(store, rephrase.NewClient(rephraserURL, 3*time.Second))

	cronJobs := jobs.Start(store, hub)
	defer cronJobs.Stop()

	api := httpapi.NewServer(authenticator, jwtManager, hub,
		groups, expenses, settlements, subscriptions, categories, summaries)

	server := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}
