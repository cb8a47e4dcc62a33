package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-crm-graphql/internal/config"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
	"github.com/ariefcatur/go-crm-graphql/internal/postgres"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
	"github.com/ariefcatur/go-crm-graphql/internal/stockwatch"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile string
	cmd := &cobra.Command{
		Use:          "crm-stockwatch",
		Short:        "Flag low-stock products from order events",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(envFile)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger := cfg.NewLogger().With("component", "stockwatch")
	slog.SetDefault(logger)

	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}
	if cfg.RedisAddr == "" {
		return fmt.Errorf("REDIS_ADDR is required")
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &stockwatch.Service{
		Products:    &postgres.Store{DB: db},
		Redis:       rdb,
		Alerts:      &redisx.LowStock{RDB: rdb},
		Threshold:   cfg.LowStockThreshold,
		ServiceName: cfg.ServiceName + "-stockwatch",
	}

	cons := kafkax.NewConsumer(brokers, cfg.StockwatchGroup, cfg.OrderTopic, cfg.StockwatchWorkers)
	done := make(chan error, 1)
	go func() {
		logger.Info("consumer started", "group", cfg.StockwatchGroup, "topic", cfg.OrderTopic, "workers", cfg.StockwatchWorkers)
		done <- cons.Start(ctx, svc.HandleOrderEvent)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
		logger.Info("shutting down consumer...")
		cancel()
		return <-done
	case err := <-done:
		if err != nil {
			return fmt.Errorf("consumer exit: %w", err)
		}
		return nil
	}
}
