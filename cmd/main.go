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

	"github.com/shopspring/decimal"

	"github.com/okian/fasal/internal/adapters/http/api"
	"github.com/okian/fasal/internal/adapters/repository"
	app "github.com/okian/fasal/internal/app"
	"github.com/okian/fasal/internal/config"
	"github.com/okian/fasal/internal/domain/loan"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/pkg/logger"
	"github.com/okian/fasal/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger format depends on the config, so report on stderr.
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.InitWithFormat(cfg.LogFormat); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run serves the API until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	svc, err := newService(ctx, cfg, log)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			_ = svc.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(ctx, "service shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// newService builds the service and its components from cfg.
func newService(ctx context.Context, cfg *config.Config, log logger.Logger) (*app.Service, error) {
	engineOpts := []scoring.Option{scoring.WithLogger(log.Named("engine"))}
	if cfg.UseModel && cfg.ModelPath != "" {
		model := scoring.NewLazyModelScorer(cfg.ModelPath)
		if err := model.Load(); err != nil {
			log.Warn(ctx, "model unavailable at startup; scores will use the deterministic path",
				logger.String("model_path", cfg.ModelPath), logger.Error(err))
		} else {
			log.Info(ctx, "model loaded", logger.String("model_path", cfg.ModelPath))
		}
		engineOpts = append(engineOpts, scoring.WithModel(model))
	}

	var history repository.HistoryStore
	if cfg.HistoryDB != "" {
		store, err := repository.OpenSQLStore(ctx, cfg.HistoryDB)
		if err != nil {
			return nil, err
		}
		history = store
		log.Info(ctx, "using sqlite history", logger.String("path", cfg.HistoryDB))
	} else {
		history = repository.NewMemoryStore(
			repository.WithMaxFarmers(cfg.HistoryCacheSize),
			repository.WithPerFarmer(cfg.HistoryPerFarmer),
		)
		log.Info(ctx, "using in-memory history")
	}

	return app.New(
		app.WithLogger(log),
		app.WithEngine(scoring.NewEngine(engineOpts...)),
		app.WithCalculator(loan.NewCalculator(
			loan.WithMinEligibleScore(cfg.MinEligibleScore),
			loan.WithBaseLimit(decimal.NewFromInt(cfg.BaseLoanLimit)),
		)),
		app.WithHistory(history),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithJobRetention(cfg.JobRetention),
		app.WithMaxHistoryLimit(cfg.MaxHistoryLimit),
		app.WithBatchMaxItems(cfg.BatchMaxItems),
	), nil
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queue_length"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if workers, ok := stats["worker_count"].(int); ok {
		metrics.UpdateWorkerCount(workers)
	}
}
