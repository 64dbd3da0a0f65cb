package main

import (
	"errors"

	"github.com/spf13/cobra"

	pg "hireflow/internal/adapters/postgres"
	"hireflow/internal/domain"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Run Postgres schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for migrations")
		}
		db, err := pg.Connect(cmd.Context(), cfg.DatabaseURL, domain.ParseStagePolicy(cfg.StagePolicy))
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Migrate(cmd.Context(), command)
	},
}
