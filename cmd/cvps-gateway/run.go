package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/latitude36/cvps-gateway/internal/auth"
	"github.com/latitude36/cvps-gateway/internal/cache"
	"github.com/latitude36/cvps-gateway/internal/catalog"
	"github.com/latitude36/cvps-gateway/internal/config"
	"github.com/latitude36/cvps-gateway/internal/ratelimit"
	"github.com/latitude36/cvps-gateway/internal/server"
	"github.com/latitude36/cvps-gateway/internal/storage/sqlite"
	"github.com/latitude36/cvps-gateway/internal/telemetry"
	"github.com/latitude36/cvps-gateway/internal/upstream"
	"github.com/latitude36/cvps-gateway/internal/worker"
)

// refreshQueueSize bounds pending stale-refresh jobs; overflow is dropped.
const refreshQueueSize = 256

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting cvps-gateway", "version", version, "addr", cfg.Server.Addr)

	// Open stats database
	store, err := sqlite.New(cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	// Response cache + single-flight fetch group
	var (
		fetch   *cache.FetchGroup
		cstore  *cache.Store
		refresh chan cache.RefreshJob
	)
	if cfg.Cache.Enabled {
		cstore, err = cache.NewStore(cfg.Cache.MaxSize)
		if err != nil {
			return err
		}
		refresh = make(chan cache.RefreshJob, refreshQueueSize)
		fetch = cache.NewFetchGroup(cstore, refresh)
	}
	policy := cache.NewPolicy(cfg.Cache.DefaultTTL, cfg.Cache.ResourceTTL, cfg.Cache.NegativeTTL)

	// Telemetry
	promReg := prometheus.NewRegistry()
	var metrics *telemetry.Metrics
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metrics = telemetry.NewMetrics(promReg)
		metricsHandler = promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})
	}

	// Upstream CMS client
	cms := upstream.New(cfg.Upstream, slog.Default(), metrics)

	// Wire services
	credAuth, err := auth.NewCredentialAuth(cfg.Credentials)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewRegistry()
	engine := catalog.NewEngine()

	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(context.Background(),
			cfg.Telemetry.Tracing.Endpoint, cfg.Telemetry.Tracing.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				slog.Warn("tracer shutdown", "error", err)
			}
		}()
	}

	// Background workers
	recorder := worker.NewStatsRecorder(store, metrics)
	workers := []worker.Worker{recorder}
	if refresh != nil {
		workers = append(workers, worker.NewRefreshWorker(refresh, cstore))
	}
	workers = append(workers,
		worker.NewLimiterJanitor(limiter, cfg.RateLimits.IdleEviction, 5*time.Minute))
	runner := worker.NewRunner(workers...)

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	workerErr := make(chan error, 1)
	go func() {
		workerErr <- runner.Run(workerCtx)
	}()

	// Create HTTP server
	handler := server.New(server.Deps{
		Auth:        credAuth,
		CMS:         cms,
		Engine:      engine,
		Fetch:       fetch,
		Policy:      policy,
		RateLimiter: limiter,
		Limits: ratelimit.Limits{
			Capacity:     cfg.RateLimits.Capacity,
			RefillPerMin: cfg.RateLimits.RefillPerMin,
		},
		Stats:          recorder,
		StatStore:      store,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
		MaxPerPage:     cfg.Cache.MaxPerPage,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("cvps-gateway ready", "addr", cfg.Server.Addr)

	// Wait for signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case err := <-errCh:
		stopWorkers()
		<-workerErr
		return err
	}

	// Shutdown: stop accepting requests, then drain workers.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	stopWorkers()
	if err := <-workerErr; err != nil && !errors.Is(err, context.Canceled) {
		slog.Warn("worker shutdown", "error", err)
	}

	slog.Info("cvps-gateway stopped")
	return nil
}
