package main

import (
	"fmt"
	"os"

	"github.com/gartstein/selfservice/internal/selfservice/config"
	"github.com/gartstein/selfservice/internal/selfservice/tenant"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var configPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "selfservice",
		Short:         "Employee self-service backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.Path(), "path to the YAML config file")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedCmd())
	rootCmd.AddCommand(relayCmd())
	rootCmd.AddCommand(hashPasswordCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// initLogger initializes a Zap production logger.
func initLogger() *zap.Logger {
	logger, err := zap.NewProduction()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func syncLogger(logger *zap.Logger) {
	// stderr cannot be synced on some platforms; nothing to report then.
	_ = logger.Sync()
}

func newRegistry(cfg *config.Config, logger *zap.Logger) (*tenant.Registry, error) {
	return tenant.NewRegistry(tenant.Config{
		Driver:          cfg.TenantDriver,
		DSNTemplate:     cfg.TenantDSNTemplate,
		Allowed:         cfg.Tenants,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
		PingTimeout:     cfg.PingTimeout,
	}, logger)
}
