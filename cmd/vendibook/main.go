package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"vendibook/internal/infra/broker/kafka"
	"vendibook/internal/infra/config"
	"vendibook/internal/infra/db/postgres"
	ginserver "vendibook/internal/infra/http/gin"
	"vendibook/internal/infra/obs"
	"vendibook/internal/infra/outbox"
	"vendibook/internal/infra/security"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vendibook",
		Short:        "Food truck and vendor space rental booking service",
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newRelayCmd(), newTokenCmd())
	return root
}

// setup loads configuration and a logger for every subcommand.
func setup() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newServeCmd() *cobra.Command {
	var withRelay bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return serve(ctx, cfg, logger, withRelay)
		},
	}
	cmd.Flags().BoolVar(&withRelay, "relay", true, "relay outbox events to Kafka when KAFKA_BROKERS is set")
	return cmd
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, withRelay bool) error {
	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.Close(closeCtx); err != nil {
			logger.Warn("storage close failed", "error", err)
		}
	}()

	if n, err := loadListingFixtures(ctx, app.storage.factory, cfg.ListingsFixtures, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingsFixtures)
	} else if n > 0 {
		logger.Info("listing fixtures loaded", "count", n)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		return nil
	})
	if withRelay && cfg.RelayEnabled() {
		g.Go(func() error {
			return runRelay(gctx, cfg, app.storage.relay, logger)
		})
	}
	err = g.Wait()
	logger.Info("HTTP server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or roll back the PostgreSQL schema",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if cfg.PostgresDSN == "" {
				return fmt.Errorf("%w: POSTGRES_DSN", config.ErrMissingValue)
			}
			action := strings.ToLower(args[0])
			if action != "up" && action != "down" {
				return fmt.Errorf("unknown migration direction %q", args[0])
			}
			if err := postgres.Migrate(cfg.PostgresDSN, action); err != nil {
				return err
			}
			logger.Info("migration applied", "direction", action)
			return nil
		},
	}
	return cmd
}

func newRelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "relay",
		Short: "Relay committed outbox events to Kafka",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			if !cfg.RelayEnabled() {
				return fmt.Errorf("%w: KAFKA_BROKERS", config.ErrMissingValue)
			}
			if cfg.StorageDriver == config.DriverMemory {
				return errors.New("relay needs a shared outbox; set STORAGE_DRIVER to mongo or postgres")
			}
			ctx, stop := signalContext(cmd.Context())
			defer stop()
			store, err := openStorage(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()
			err = runRelay(ctx, cfg, store.relay, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}

func runRelay(ctx context.Context, cfg config.Config, store outbox.Store, logger *slog.Logger) error {
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, "vendibook-relay")
	if err != nil {
		return err
	}
	defer func() {
		if err := producer.Close(); err != nil {
			logger.Warn("kafka producer close failed", "error", err)
		}
	}()
	worker := &outbox.Worker{
		Store:       store,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	logger.Info("outbox relay started", "brokers", cfg.KafkaBrokers, "interval", cfg.OutboxPollInterval)
	return worker.Run(ctx)
}

func newTokenCmd() *cobra.Command {
	var (
		user  string
		roles []string
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			tokens, err := security.NewTokenService(cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := tokens.Issue(user, roles, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "user id the token is issued for")
	cmd.Flags().StringSliceVar(&roles, "role", nil, "role granted to the user (repeatable)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
