package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/settlewise/internal/auth"
	"github.com/mmynk/settlewise/internal/config"
	"github.com/mmynk/settlewise/internal/idempotency"
	"github.com/mmynk/settlewise/internal/settlement"
	"github.com/mmynk/settlewise/pkg/logging"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Connect API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logging.SetupWith(logging.ParseLevel(cfg.LogLevel), logging.ParseFormat(cfg.LogFormat))
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "driver", cfg.DBDriver)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []settlement.Option{settlement.WithMetrics(settlement.NewMetrics(registry))}
	if redisClient := dialRedis(ctx, cfg); redisClient != nil {
		defer redisClient.Close()
		opts = append(opts, settlement.WithReplayCache(idempotency.NewRedisCache(redisClient, cfg.IdempotencyTTL)))
	}

	handler := newRouter(routerDeps{
		cfg:        cfg,
		store:      store,
		finalizer:  settlement.NewFinalizer(store, opts...),
		jwtManager: auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL),
		registry:   registry,
	})

	server := &http.Server{
		Addr: cfg.AppAddr,
		// h2c serves HTTP/2 without TLS, which Connect and gRPC clients need.
		Handler:      h2c.NewHandler(handler, &http2.Server{}),
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.AppAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// dialRedis returns nil when the replay cache is disabled or unreachable.
// Finalization stays correct without it.
func dialRedis(ctx context.Context, cfg *config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	client, err := idempotency.Dial(ctx, cfg.RedisAddr)
	if err != nil {
		slog.Warn("Replay cache disabled", "redis_addr", cfg.RedisAddr, "error", err)
		return nil
	}
	slog.Info("Replay cache enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.IdempotencyTTL)
	return client
}
