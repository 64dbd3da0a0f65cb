package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hireflow/internal/config"
	"hireflow/internal/logging"
)

var (
	envFile  string
	logLevel string

	cfg    config.Config
	logger *zap.Logger
)

// rootCmd loads configuration and logging for every subcommand.
var rootCmd = &cobra.Command{
	Use:           "server",
	Short:         "HireFlow recruitment pipeline service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadDotenv(envFiles()...); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
		var err error
		cfg, err = config.Load()
		if err != nil && !errors.Is(err, config.ErrNoDatabaseURL) {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		logger, err = logging.New(cfg.LogLevel, !cfg.Production())
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			logger.Info("DATABASE_URL not set, using the local store", zap.String("path", cfg.LocalStorePath))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func envFiles() []string {
	if envFile == "" {
		return nil
	}
	return []string{envFile}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "env file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
