package main

import (
	"context"
	"fmt"

	"github.com/gartstein/selfservice/internal/selfservice/config"
	"github.com/gartstein/selfservice/internal/selfservice/db"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	var tenants []string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema of tenant databases",
		Long: `Create or update the schema of one or more tenant databases.

Without --tenant every tenant listed under TENANTS in the config is migrated.

Examples:
  selfservice migrate --tenant acme
  selfservice migrate --tenant acme --tenant globex`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger()
			defer syncLogger(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(tenants) == 0 {
				tenants = cfg.Tenants
			}
			if len(tenants) == 0 {
				return fmt.Errorf("no tenant given and TENANTS is empty")
			}
			return migrate(cmd.Context(), cfg, tenants, logger)
		},
	}

	cmd.Flags().StringSliceVar(&tenants, "tenant", nil, "tenant database to migrate (repeatable)")
	return cmd
}

func migrate(ctx context.Context, cfg *config.Config, tenants []string, logger *zap.Logger) error {
	registry, err := newRegistry(cfg, logger)
	if err != nil {
		return err
	}
	defer registry.Close()

	for _, name := range tenants {
		if err := registry.WaitReady(ctx, name, cfg.StartupWait); err != nil {
			return fmt.Errorf("tenant %s not reachable: %w", name, err)
		}
		err := registry.WithTenant(ctx, name, func(repo *db.Repository) error {
			return repo.Migrate(ctx)
		})
		if err != nil {
			return fmt.Errorf("migrate tenant %s: %w", name, err)
		}
		logger.Info("Tenant schema migrated", zap.String("tenant", name))
	}
	return nil
}
