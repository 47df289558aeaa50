package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/pressly/goose/v3"
)

// MigrationTableName is the goose version table.
const MigrationTableName = "schema_migrations"

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationCommands lists the commands accepted by Migrate.
var MigrationCommands = []string{"up", "down", "reset", "status", "version"}

// slogGooseLogger adapts goose's logger to slog. Fatalf does not exit; the
// error reaches the caller through the goose return value.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...))
}

func (l slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...))
}

// Migrate runs a goose command against the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With(slog.String("component", "migrations"), slog.String("command", command))

	run, err := migrationCommand(command)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("migrations require a database connection")
	}

	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(slogGooseLogger{logger: log})
	goose.SetTableName(MigrationTableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	start := time.Now()
	log.Info("starting migration command")
	if err := run(ctx, db, migrationsDir); err != nil {
		log.Error("migration command failed",
			slog.String("error", err.Error()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return fmt.Errorf("migration command '%s' failed: %w", command, err)
	}
	log.Info("migration command completed",
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return nil
}

type gooseFunc func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error

func migrationCommand(command string) (gooseFunc, error) {
	switch command {
	case "up":
		return goose.UpContext, nil
	case "down":
		return goose.DownContext, nil
	case "reset":
		return goose.ResetContext, nil
	case "status":
		return goose.StatusContext, nil
	case "version":
		return goose.VersionContext, nil
	default:
		return nil, fmt.Errorf("unknown migration command: %s (expected one of %v)", command, MigrationCommands)
	}
}
