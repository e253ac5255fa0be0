package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/iwvelando/financing-simulator/internal/cache"
	"github.com/iwvelando/financing-simulator/internal/server"
	"github.com/iwvelando/financing-simulator/internal/simulation"
	"github.com/iwvelando/financing-simulator/pkg/constants"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
	redisPingTimeout  = 2 * time.Second
)

type serveOptions struct {
	configLocation string
	address        string
	maxUploadSize  string
	logLevel       string
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configLocation, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	cmd.Flags().StringVar(&opts.address, "address", "", "listen address override")
	cmd.Flags().StringVar(&opts.maxUploadSize, "max-upload-size", "", "maximum upload size override, e.g. 512K")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	return cmd
}

// serverDependencies holds the collaborators built from the server config.
type serverDependencies struct {
	cache   simulation.Cache
	limiter server.Limiter
	closers []func()
}

func (d *serverDependencies) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDependencies(ctx context.Context, logger *zap.Logger, cfg *server.Config) (*serverDependencies, error) {
	deps := &serverDependencies{}

	var client *redis.Client
	if cfg.Cache.RedisURL != "" {
		store, err := cache.NewRedis(cfg.Cache.RedisURL, cfg.Cache.TTLDuration())
		if err != nil {
			return nil, err
		}
		client = store.Client()
		deps.closers = append(deps.closers, func() { _ = store.Close() })

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := client.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis is unreachable, cache lookups will miss and rate limiting will fail open",
				zap.String("op", "main.buildDependencies"),
				zap.Error(err),
			)
		}
		cancel()

		if cfg.Cache.Enabled() {
			deps.cache = store
		}
	} else if cfg.Cache.Enabled() {
		deps.cache = cache.NewMemory(cfg.Cache.TTLDuration())
	}

	if cfg.RateLimit.Enabled() {
		if client != nil {
			deps.limiter = server.NewRedisLimiter(client, cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration())
		} else {
			limiter := server.NewMemoryLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.WindowDuration())
			deps.limiter = limiter
			deps.closers = append(deps.closers, limiter.Stop)
		}
	}

	return deps, nil
}

func runServe(ctx context.Context, opts *serveOptions) error {
	cfg, err := server.LoadConfig(opts.configLocation)
	if err != nil {
		return fmt.Errorf("failed to load server configuration at %s: %w", opts.configLocation, err)
	}
	if opts.address != "" {
		cfg.Address = opts.address
	}
	if opts.maxUploadSize != "" {
		size, err := server.ParseSize(opts.maxUploadSize)
		if err != nil {
			return err
		}
		cfg.SetUploadSizeBytes(size)
	}

	logger, err := initializeLogger(cfg.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	deps, err := buildDependencies(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to initialize server dependencies",
			zap.String("op", "main.runServe"),
			zap.Error(err),
		)
		return err
	}
	defer deps.close()

	handler := server.NewHandler(logger, server.Options{
		MaxUploadSize: cfg.UploadSizeBytes(),
		Version:       version,
		Limiter:       deps.limiter,
		Cache:         deps.cache,
		Tax:           cfg.Tax.TaxPolicy(),
		TrustProxy:    cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main.runServe"),
			zap.String("address", cfg.Address),
			zap.Int64("maxUploadSize", cfg.UploadSizeBytes()),
			zap.Bool("cache", deps.cache != nil),
			zap.Bool("rateLimit", deps.limiter != nil),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed",
				zap.String("op", "main.runServe"),
				zap.Error(err),
			)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server",
		zap.String("op", "main.runServe"),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return nil
}
