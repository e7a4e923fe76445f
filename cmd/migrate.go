package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shivanand-hulikatti/meeting-registration/internal/config"
	"github.com/Shivanand-hulikatti/meeting-registration/internal/database"
)

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:   "migrate [up|down]",
		Short: "Apply or roll back schema migrations",
		Long: `Apply or roll back schema migrations.

Postgres uses the embedded golang-migrate files. SQLite applies its schema
whenever the database is opened, so "up" just opens it.`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			return runMigrate(cmd.Context(), direction, steps)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "migrations to roll back with down")
	return cmd
}

func runMigrate(ctx context.Context, direction string, steps int) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		url := cfg.Postgres.URL("pgx5")
		if direction == "down" {
			if err := database.RollbackPostgres(url, steps); err != nil {
				return err
			}
			logger.Info("migrations rolled back", "steps", steps)
			return nil
		}
		if err := database.MigratePostgres(url); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	case config.DriverSQLite:
		if direction == "down" {
			return fmt.Errorf("sqlite does not support down migrations")
		}
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return err
		}
		logger.Info("sqlite schema applied", "path", cfg.SQLitePath)
		return db.Close()
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", cfg.StorageDriver)
	}
}
