package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}

	startCtx := context.Background()
	factory := backend.NewFactory(logger)
	result, err := factory.CreateStore(startCtx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", applog.FieldError, err, "backend", cfg.Backend)
		os.Exit(1)
	}

	opts := []services.Option{services.WithLogger(logger)}
	if pub := factory.CreatePublisher(startCtx, backendCfg); pub != nil {
		opts = append(opts, services.WithPublisher(pub))
	}
	tracker, err := services.NewTracker(startCtx, result.Store, opts...)
	if err != nil {
		logger.Error("Failed to load ledger", applog.FieldError, err)
		os.Exit(1)
	}
	if _, err := tracker.EnsureDefaultAccounts(startCtx); err != nil {
		logger.Error("Failed to seed default accounts", applog.FieldError, err)
		os.Exit(1)
	}

	caches := services.NewReportCaches(cfg.CacheSize, cfg.CacheTTL)
	reports := services.NewReports(tracker, caches)
	cacheManager := cache.NewManager(logger)
	for _, c := range caches.Cleaners() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cfg.CacheTTL)

	srv := apphttp.NewServer(":"+cfg.Port, tracker, reports,
		apphttp.WithLogger(logger),
		apphttp.WithRateLimit(cfg.RateLimit),
		apphttp.WithCaches(caches))

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		cacheManager.Stop()
		if err := tracker.Close(); err != nil {
			logger.Error("Failed to close ledger", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	if result.Watcher != nil {
		g.Go(func() error {
			return result.Watcher.Watch(gctx, tracker.Reload)
		})
	}
	g.Go(func() error {
		logger.Info("Starting fintrack server",
			"port", cfg.Port,
			"backend", cfg.Backend,
			"events", cfg.AMQPURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
