package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/ringsync/ringsync/internal/client/api"
	"github.com/ringsync/ringsync/internal/client/auth"
	"github.com/ringsync/ringsync/internal/client/bus"
	"github.com/ringsync/ringsync/internal/client/cli"
	"github.com/ringsync/ringsync/internal/client/iocli"
	"github.com/ringsync/ringsync/internal/client/replication"
	"github.com/ringsync/ringsync/internal/client/scoring"
	"github.com/ringsync/ringsync/internal/client/storage"
	"github.com/ringsync/ringsync/internal/client/storage/boltdb"
	clisync "github.com/ringsync/ringsync/internal/client/sync"
	"github.com/ringsync/ringsync/internal/models"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Глобальные флаги
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "ringsync-client.db", "Path to local database")
	keyFile := flag.String("key-file", "", "Path to file containing the license key")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	// Диагностика пишется в stderr, stdout остается для вывода команд
	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	io := iocli.NewStdio()
	ctx := context.Background()

	// recover обрабатывается до открытия базы: сама база может не открываться
	if command == "recover" {
		if err := runRecover(ctx, io, *dbPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	boltStorage, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		if errors.Is(err, storage.ErrStorageUnavailable) {
			fmt.Fprintln(os.Stderr)
			fmt.Fprintln(os.Stderr, "The local database appears to be corrupted.")
			fmt.Fprintln(os.Stderr, "Run 'ringsync recover' to reset it, then re-activate and pull.")
		}
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	apiClient := api.NewClient(*serverURL)
	events := bus.New()

	authService := auth.NewService(apiClient, boltStorage, boltStorage)
	replicationManager := replication.NewManager(apiClient, boltStorage, boltStorage, events, logger)

	engine := clisync.NewEngine(boltStorage, events, logger, clisync.DefaultRetryPolicy())
	engine.RegisterSender(models.MutationSubmitScore, clisync.ScoreSender(apiClient))

	coordinator := scoring.NewCoordinator(boltStorage, boltStorage, apiClient, events, logger, nil)

	// При активной сессии поднимаем фоновые компоненты: engine возвращает
	// брошенные in_flight записи в pending и слушает запросы drain,
	// координатор продвигает optimistic-патчи по итогам доставки
	if session, err := authService.Session(ctx); err == nil {
		if err := engine.Start(ctx, session.TenantID, session.Token); err != nil {
			logger.Warn("failed to start sync engine", "error", err)
		} else {
			defer engine.Close()
		}
		coordinator.Start(session.TenantID)
		defer coordinator.Close()
	}

	c := cli.New(io, authService, replicationManager, engine, coordinator, boltStorage)

	sources := cli.KeySources{FromFile: *keyFile}
	if err := c.Run(ctx, command, sources, args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runRecover пересоздает локальную базу после явного подтверждения.
// Вместе с зеркалом теряются и не доставленные мутации, поэтому
// подтверждение обязательно.
func runRecover(ctx context.Context, io iocli.IO, dbPath string) error {
	if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		io.Println("No local database found, nothing to recover.")
		return nil
	}

	io.Println("This will DELETE the local database:")
	io.Printf("  %s\n", dbPath)
	io.Println()
	io.Println("Any scores not yet delivered to the server will be LOST.")

	answer, err := io.ReadInput("Type 'yes' to continue: ")
	if err != nil {
		return err
	}
	if answer != "yes" {
		io.Println("Aborted.")
		return nil
	}

	store, err := boltdb.Recover(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to recreate database: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	io.Println("Local database recreated.")
	io.Println("Run 'ringsync activate' and 'ringsync pull' to start fresh.")
	return nil
}

func printVersion() {
	fmt.Printf("RingSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
