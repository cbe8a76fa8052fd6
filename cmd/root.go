package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"xenith/internal/config"
	"xenith/internal/logging"
)

var (
	envFile string
	cfg     *config.Config
	logger  *slog.Logger
	logFile io.Closer
)

func getRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xenith",
		Short: "Xenith library management backend",
		Long: `Xenith keeps the catalog of a library: authors, publishers, books and
their physical copies, patrons with barcode cards, branches and librarians.

Running xenith without a subcommand starts the HTTP server.

Configuration comes from environment variables, optionally preloaded from a
.env file in the working directory. DB_USER, DB_PASSWORD, DB_PORT and DB_NAME
are required for every command that talks to the database.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.NewConfig(envFile)
			l, closer, err := logging.Setup(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to set up logging: %w", err)
			}
			logger, logFile = l, closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logFile != nil {
				return logFile.Close()
			}
			return nil
		},
		RunE: runServe,
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile,
		"dotenv file read before the process environment")

	rootCmd.AddCommand(getServeCmd())
	rootCmd.AddCommand(getMigrateCmd())
	rootCmd.AddCommand(getBarcodeCmd())

	return rootCmd
}

// loadDatabaseConfig fails fast when the connection settings are incomplete.
func loadDatabaseConfig() (*config.Config, error) {
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, err
	}
	return cfg, nil
}
