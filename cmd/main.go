// cmd/main.go is the application entry point.
// It wires together all layers behind a small cobra CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/database"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/repository"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "meetings",
		Short: "Meeting registration API",
		Long: `Meeting registration API.

Participants stage up to five event entries per meeting and commit them
as one registration with a computed cost.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		migrateCmd(),
		tokenCmd(),
		seedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
}

// openStore connects to the configured backend. The returned func releases it.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (repository.Store, func(), error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("connected to postgres", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)
		return repository.NewPostgres(pool), pool.Close, nil
	case config.DriverSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		logger.Info("opened sqlite", "path", cfg.SQLitePath)
		return repository.NewSQLite(db), func() { _ = db.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("STORAGE_DRIVER %q is not supported", cfg.StorageDriver)
	}
}
