package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/selfservice/internal/selfservice/blob"
	"github.com/gartstein/selfservice/internal/selfservice/config"
	"github.com/gartstein/selfservice/internal/selfservice/controller"
	"github.com/gartstein/selfservice/internal/selfservice/events"
	"github.com/gartstein/selfservice/internal/selfservice/handlers"
	"github.com/gartstein/selfservice/internal/selfservice/notify"
	"github.com/gartstein/selfservice/internal/selfservice/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := initLogger()
			defer syncLogger(logger)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize tenant registry: %w", err)
	}
	defer registry.Close()

	for _, name := range cfg.Tenants {
		if err := registry.WaitReady(ctx, name, cfg.StartupWait); err != nil {
			return fmt.Errorf("tenant %s not reachable: %w", name, err)
		}
		logger.Info("Tenant database ready", zap.String("tenant", name))
	}

	blobs, err := blob.NewFileStore(cfg.BlobDir, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}

	deps := controller.Dependencies{
		Tenants: registry,
		Blobs:   blobs,
	}

	var producer *events.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err = connectProducer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer producer.Close()
		deps.Producer = producer
	}

	deps.Notifier, err = newNotifier(cfg, producer, logger)
	if err != nil {
		return err
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer client.Close()
		deps.Limiter = ratelimit.NewRedisLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindowDur, "selfservice:login:", logger)
	}

	svc := controller.NewSelfService(deps, controller.Config{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenLifetime,
	}, logger)

	routes, err := handlers.NewSelfServiceHandler(svc, logger, cfg.MaxUploadBytes).Routes(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("failed to build routes: %w", err)
	}

	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger,
		grpc.ChainUnaryInterceptor(handlers.UnaryLogging(logger), handlers.UnaryRecover(logger)))
	server.SetShutdownGrace(cfg.ShutdownGrace)
	server.RegisterHTTPHandler(routes)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()
	server.SetServing(true)

	return waitForShutdown(server, errCh, logger)
}

// connectProducer retries the broker dial until StartupWait elapses.
func connectProducer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*events.Producer, error) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = cfg.StartupWait

	var producer *events.Producer
	err := backoff.RetryNotify(func() error {
		var err error
		producer, err = events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
		return err
	}, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		logger.Warn("Kafka not reachable, retrying", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	return producer, nil
}

func newNotifier(cfg *config.Config, producer *events.Producer, logger *zap.Logger) (controller.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierKafka:
		if producer == nil {
			return nil, fmt.Errorf("notifier %q requires KAFKA_BROKERS", cfg.Notifier)
		}
		return notify.NewEventNotifier(producer), nil
	case config.NotifierSMTP:
		return notify.NewSMTPSender(smtpConfig(cfg)), nil
	default:
		return notify.NewLogNotifier(logger), nil
	}
}

func smtpConfig(cfg *config.Config) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	}
}

// waitForShutdown blocks until an interrupt, SIGTERM or a server failure, then shuts down servers.
func waitForShutdown(server *handlers.Server, errCh <-chan error, logger *zap.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			server.Stop()
			return err
		}
	}

	server.Stop()
	logger.Info("Servers stopped properly")
	return nil
}
