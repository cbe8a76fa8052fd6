package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"xenith/internal/database"
)

func getMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Creates the database if needed and applies the schema",
		Long: `Creates the configured database on the server when it does not exist yet,
then creates or updates all library tables.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadDatabaseConfig()
	if err != nil {
		return err
	}

	if err := database.EnsureDatabase(cmd.Context(), cfg.Database, logger); err != nil {
		logger.Error("database setup failed", "error", err)
		return err
	}

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(db.WithContext(cmd.Context())); err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}
	logger.Info("database migrated", "database", cfg.Database.Name)
	fmt.Fprintln(cmd.OutOrStdout(), "Database migration complete.")
	return nil
}
