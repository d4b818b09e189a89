package main

import (
	"fmt"

	"propsearch/internal/config"
	"propsearch/internal/logger"
	"propsearch/internal/repository"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Apply all pending schema migrations to the configured PostgreSQL database and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			log := logger.New(logger.Config{
				Level:       cfg.Logging.Level,
				Format:      cfg.Logging.Format,
				ServiceName: "propsearch",
			})

			version, err := repository.Migrate(cfg.GetPostgreSQLDSN(), log)
			if err != nil {
				return err
			}
			log.Info().Uint("version", version).Msg("database schema up to date")
			return nil
		},
	}
}
