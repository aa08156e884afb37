// Command lendkit-worker runs the audit retention sweep on a cron schedule
// and exposes health and Prometheus metrics over HTTP.
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

	"github.com/fernandezvara/dbkit"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/sfeir-open-source/lendkit"
	"github.com/sfeir-open-source/lendkit/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := NewLogger(cfg)

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, logger *slog.Logger) error {
	db, err := dbkit.New(dbkit.Config{URL: cfg.DatabaseURL})
	if err != nil {
		return err
	}
	defer db.Close()

	store := lendkit.NewBunStore(db)
	if err := store.ConfigurePool(cfg.Pool()); err != nil {
		return err
	}
	result, err := db.Migrate(ctx, store.Migrations())
	if err != nil {
		return err
	}
	for _, m := range result.Applied {
		logger.Info("applied migration", slog.String("id", m.ID))
	}

	audit := lendkit.NewAuditTrail(store,
		lendkit.WithLogger(logger),
		lendkit.WithRetention(cfg.AuditRetention),
	)
	metrics := jobs.NewMetrics(nil)
	cleanup := jobs.NewAuditCleanupJob(audit, logger, metrics)

	task, err := jobs.NewAuditCleanupTask(jobs.TriggerCron)
	if err != nil {
		return err
	}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.Concurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditCleanup, Handler: cleanup.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.CleanupCron, Task: task, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	jobs.NewHandler(store, nil, logger).MountRoutes(r)
	srv := &http.Server{Addr: cfg.MetricsAddr, Handler: r, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("lendkit worker starting",
		slog.String("cron", cfg.CleanupCron),
		slog.Duration("retention", audit.Retention()),
		slog.String("metrics_addr", cfg.MetricsAddr),
	)
	return worker.Run(ctx)
}
