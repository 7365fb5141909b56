package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ringsync/ringsync/internal/server/handlers"
	"github.com/ringsync/ringsync/internal/server/jwt"
	"github.com/ringsync/ringsync/internal/server/middleware"
	"github.com/ringsync/ringsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	addr := flag.String("addr", envOr("RINGSYNC_ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", envOr("RINGSYNC_DB", "ringsync.db"), "path to SQLite database")
	jwtSecret := flag.String("jwt-secret", os.Getenv("RINGSYNC_JWT_SECRET"), "secret for signing device tokens")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "device token lifetime")
	activateRate := flag.Int("activate-rate", 10, "max activation attempts per IP per minute")
	logJSON := flag.Bool("log-json", false, "log in JSON format")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := newLogger(*logJSON)

	if *jwtSecret == "" {
		logger.Error("jwt secret is required (flag -jwt-secret or env RINGSYNC_JWT_SECRET)")
		os.Exit(1)
	}

	if err := run(logger, *addr, *dbPath, *jwtSecret, *tokenTTL, *activateRate); err != nil {
		logger.Error("server failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(logger *slog.Logger, addr, dbPath, jwtSecret string, tokenTTL time.Duration, activateRate int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", slog.Any("error", err))
		}
	}()

	tokens := jwt.NewService(jwtSecret, tokenTTL)

	activateHandler := handlers.NewActivateHandler(logger, store, tokens)
	syncHandler := handlers.NewSyncHandler(logger, store)
	scoreHandler := handlers.NewScoreHandler(logger, store)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	auth := middleware.AuthMiddleware(logger, tokens)

	// Активация - единственный эндпоинт без токена, поэтому только она
	// ограничена по частоте
	rateLimited := middleware.RateLimitMiddleware(activateRate, time.Minute, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/activate", rateLimited(http.HandlerFunc(activateHandler.Activate)))
	mux.Handle("GET /api/v1/sync/trials", auth(http.HandlerFunc(syncHandler.Trials)))
	mux.Handle("GET /api/v1/sync/classes", auth(http.HandlerFunc(syncHandler.Classes)))
	mux.Handle("GET /api/v1/sync/entries", auth(http.HandlerFunc(syncHandler.Entries)))
	mux.Handle("PATCH /api/v1/entries/{id}/score", auth(http.HandlerFunc(scoreHandler.Submit)))
	mux.HandleFunc("GET /api/v1/health", healthHandler.Health)

	// Цепочка: recovery -> logging -> mux
	logging := middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})
	recovery := middleware.RecoveryMiddleware(logger)
	handler := recovery(logging(mux))

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			slog.String("addr", addr),
			slog.String("db", dbPath),
			slog.String("version", Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func newLogger(json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printVersion() {
	fmt.Printf("RingSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
