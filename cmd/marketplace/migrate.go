package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davori/marketplace/internal/config"
	"github.com/davori/marketplace/internal/logger"
	"github.com/davori/marketplace/migrations"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Aplica ou desfaz o schema do banco",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(migrations.Up), string(migrations.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if err := migrations.Run(cfg.DatabaseURL, migrations.Direction(args[0]), log); err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			return nil
		},
	}
}
