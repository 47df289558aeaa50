// Package main implements the entry point for the Adsmith API server, which
// turns product briefs into advertising images and keeps a per-user gallery.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/phrazzld/adsmith-api/internal/config"
	"github.com/phrazzld/adsmith-api/internal/platform/logger"
	"github.com/phrazzld/adsmith-api/internal/platform/postgres"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command and exit: "+strings.Join(postgres.MigrationCommands, ", "))
	flag.Parse()

	if err := run(*migrateCmd); err != nil {
		slog.Error("server exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// run loads configuration, prepares the database and either executes a single
// migration command or serves until SIGINT or SIGTERM.
func run(migrateCmd string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, log, err := initializeApp()
	if err != nil {
		return err
	}

	db, err := setupAppDatabase(ctx, cfg.Database, log)
	if err != nil {
		return err
	}

	if migrateCmd != "" {
		defer func() { _ = db.Close() }()
		return postgres.Migrate(ctx, db, migrateCmd, log)
	}

	if err := postgres.Migrate(ctx, db, "up", log); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	app, err := newApplication(ctx, cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	log.Info("server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.String("storage_backend", cfg.Storage.Backend),
		slog.String("ratelimit_backend", cfg.RateLimit.Backend),
		slog.Bool("debug_routes", cfg.Server.DebugRoutes))
	return cfg, log, nil
}
