package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gartstein/selfservice/internal/selfservice/config"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/notify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func relayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Deliver queued manager emails over SMTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger()
			defer syncLogger(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if len(cfg.KafkaBrokers) == 0 || cfg.SMTPHost == "" {
				return fmt.Errorf("relay requires KAFKA_BROKERS and SMTP_HOST")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			consumer := events.NewConsumer(cfg.KafkaBrokers, cfg.RelayGroupID, cfg.Topic, logger)
			defer consumer.Close()
			consumer.RegisterHandler(notify.RelayHandler(notify.NewSMTPSender(smtpConfig(cfg)), logger))

			logger.Info("Mail relay started", zap.String("topic", cfg.Topic), zap.String("group", cfg.RelayGroupID))
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("Mail relay stopped")
			return nil
		},
	}
}
