package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/card-service/internal/config"
	"github.com/phrazzld/card-service/internal/platform/postgres"
	"github.com/phrazzld/card-service/internal/redact"
	"github.com/pressly/goose/v3"
)

// migrationCommands lists the goose commands the -migrate flag accepts.
var migrationCommands = map[string]bool{
	"up":      true,
	"down":    true,
	"status":  true,
	"version": true,
}

// slogGooseLogger adapts the goose logger interface to use slog
type slogGooseLogger struct {
	logger *slog.Logger
}

// Printf implements goose.Logger.
func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// Fatalf implements goose.Logger. goose calls it on unrecoverable errors; the
// message is logged at error level and the error surfaces through the
// command's return value instead of exiting.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

// runMigrations applies command to the configured database using the
// migrations embedded in the binary.
func runMigrations(cfg *config.Config, command string, verbose bool) error {
	if !migrationCommands[command] {
		return fmt.Errorf("unsupported migration command %q", command)
	}

	migrationLogger := slog.Default().With(
		"correlation_id", uuid.New().String(),
		"component", "migrations",
		"command", command,
	)
	startTime := time.Now()

	db, err := sql.Open("pgx", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %s", redact.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			migrationLogger.Error("Failed to close database connection", "error", err)
		}
	}()

	if err := configureGoose(migrationLogger, verbose); err != nil {
		return err
	}

	if err := executeGooseCommand(db, command); err != nil {
		migrationLogger.Error("Migration failed",
			"error", redact.Error(err),
			"duration_ms", time.Since(startTime).Milliseconds())
		return fmt.Errorf("migration %s failed: %w", command, err)
	}

	migrationLogger.Info("Migration completed",
		"duration_ms", time.Since(startTime).Milliseconds())
	return nil
}

func configureGoose(logger *slog.Logger, verbose bool) error {
	goose.SetLogger(&slogGooseLogger{logger: logger})
	goose.SetVerbose(verbose)
	goose.SetTableName(postgres.MigrationTableName)
	goose.SetBaseFS(postgres.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return nil
}

func executeGooseCommand(db *sql.DB, command string) error {
	switch command {
	case "up":
		return goose.Up(db, postgres.MigrationsDir)
	case "down":
		return goose.Down(db, postgres.MigrationsDir)
	case "status":
		return goose.Status(db, postgres.MigrationsDir)
	case "version":
		return goose.Version(db, postgres.MigrationsDir)
	default:
		return fmt.Errorf("unsupported migration command %q", command)
	}
}
