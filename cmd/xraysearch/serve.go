package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/xraysearch/internal/db/redis"
	"github.com/kailas-cloud/xraysearch/internal/metrics"
	"github.com/kailas-cloud/xraysearch/internal/repository/respcache"
	chiTransport "github.com/kailas-cloud/xraysearch/internal/transport/chi"
	healthuc "github.com/kailas-cloud/xraysearch/internal/usecase/health"
	recorduc "github.com/kailas-cloud/xraysearch/internal/usecase/record"
	searchuc "github.com/kailas-cloud/xraysearch/internal/usecase/search"
	"github.com/kailas-cloud/xraysearch/internal/version"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP shell with search sessions and record endpoints",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			rt, err := loadRuntime(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = rt.logger.Sync() }()
			return serve(ctx, rt)
		},
	}
}

func serve(ctx context.Context, rt *runtimeEnv) error {
	cfg, logger := rt.cfg, rt.logger

	logger.Info("Starting xraysearch shell",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", rt.env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("catalog", cfg.Catalog.BaseURL),
		zap.Bool("cache", cfg.Cache.Enabled),
	)

	metrics.Register()

	cat, err := rt.catalog()
	if err != nil {
		return err
	}

	// Searches and dropdown lists go through the cache when it is enabled.
	var (
		structured  searchuc.StructuredSearcher = cat
		options     recorduc.OptionsSource      = cat
		invalidator recorduc.Invalidator
		cachePinger healthuc.Pinger
	)
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return fmt.Errorf("create cache store: %w", err)
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))

		cache := respcache.New(store, cfg.Cache.TTL(), cfg.Cache.KeyPrefix, metrics.CacheTotal, logger)
		structured = cache.Structured(cat)
		options = cache.Options(cat)
		invalidator = cache
		cachePinger = store
	}

	registry := chiTransport.NewRegistry(func(loc searchuc.LocationWriter) *searchuc.Orchestrator {
		return searchuc.New(cat, structured, searchuc.NewLocationSync(loc, logger),
			searchuc.WithTimeout(cfg.Catalog.SearchTimeout()),
			searchuc.WithLogger(logger),
		)
	}, logger)
	defer registry.Close()

	recordSvc := recorduc.New(cat, options, invalidator)
	healthSvc := healthuc.New(cat, cachePinger)

	server := chiTransport.NewServer(registry, recordSvc, healthSvc, logger)
	routerOpts := chiTransport.RouterOptions{}
	if cfg.Metrics.IsEnabled() {
		routerOpts.MetricsPath = cfg.Metrics.Path
	}

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, routerOpts),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	idle := time.Duration(cfg.HTTP.SessionIdleSec) * time.Second
	go registry.RunSweeper(ctx, idle, idle/4)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}
