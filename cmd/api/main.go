package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariefcatur/go-crm-graphql/internal/auth"
	"github.com/ariefcatur/go-crm-graphql/internal/config"
	"github.com/ariefcatur/go-crm-graphql/internal/crm"
	"github.com/ariefcatur/go-crm-graphql/internal/graph"
	"github.com/ariefcatur/go-crm-graphql/internal/httpx"
	kafkax "github.com/ariefcatur/go-crm-graphql/internal/kafka"
	"github.com/ariefcatur/go-crm-graphql/internal/memstore"
	"github.com/ariefcatur/go-crm-graphql/internal/postgres"
	"github.com/ariefcatur/go-crm-graphql/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var envFile, addr string
	cmd := &cobra.Command{
		Use:          "crm-api",
		Short:        "CRM GraphQL API",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load(envFile)
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			return run(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVar(&envFile, "env-file", ".env", "optional dotenv file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	return cmd
}

func run(parent context.Context, cfg config.Config) error {
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	tokens, err := auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET: %w", err)
	}
	svc := &crm.Service{Tokens: tokens, Logger: logger}
	ready := map[string]httpx.Check{}

	// Store
	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on exit")
		svc.Store = memstore.New()
	default:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			return err
		}
		svc.Store = &postgres.Store{DB: db}
		ready["postgres"] = db.Ping
	}

	// Redis (optional)
	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		svc.Idempotency = &redisx.Orders{RDB: rdb}
		svc.Alerts = &redisx.LowStock{RDB: rdb}
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Kafka producer (optional)
	var prod *kafkax.Producer
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		prod = kafkax.NewProducer(brokers, cfg.OrderTopic, 1024)
		prod.Start(ctx)
		svc.Events = &kafkax.Emitter{Producer: prod, Service: cfg.ServiceName}
		ready["kafka"] = func(ctx context.Context) error { return kafkax.Ping(ctx, brokers) }
	}

	schema, err := graph.NewSchema(svc)
	if err != nil {
		return err
	}
	router := httpx.NewRouter(httpx.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		Ready:          ready,
		CheckTimeout:   cfg.ReadyTimeout,
	})
	gh := &httpx.GraphQLHandler{Schema: schema, Verifier: tokens}
	gh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	}
	logger.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	if prod != nil {
		prod.Close()      // stop accepting, flush the inbox
		prod.WaitClosed() // drain
	}
	return nil
}
