package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/rasyiqi-code/Counting-sub001/internal/app"
	jobmetrics "github.com/rasyiqi-code/Counting-sub001/internal/jobs"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/cache"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
	"github.com/rasyiqi-code/Counting-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Depreciation postings invalidate cached reports the API server reads.
	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := jobmetrics.NewMetrics(nil)
	services := app.NewServices(cfg, logger, pool, redisClient, nil)

	depreciationJob := jobs.NewDepreciationRunJob(services.Assets, logger, metrics)
	integrityJob := jobs.NewBalanceIntegrityJob(services.Accounts, services.Reports, logger, metrics)

	tenants, err := cfg.Tenants()
	if err != nil {
		logger.Error("worker tenants", slog.Any("error", err))
		os.Exit(1)
	}
	var cron []jobs.CronRegistration
	for _, tenantID := range tenants {
		depreciationTask, err := jobs.NewDepreciationRunTask(jobs.DepreciationRunPayload{TenantID: tenantID})
		if err != nil {
			logger.Error("build depreciation task", slog.Any("error", err))
			os.Exit(1)
		}
		integrityTask, err := jobs.NewIntegrityTask(tenantID)
		if err != nil {
			logger.Error("build integrity task", slog.Any("error", err))
			os.Exit(1)
		}
		cron = append(cron,
			jobs.CronRegistration{Spec: cfg.DepreciationCron, Task: depreciationTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			jobs.CronRegistration{Spec: cfg.IntegrityCron, Task: integrityTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   cfg.Queue(),
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDepreciationRun, Handler: depreciationJob.Handle},
			{Type: jobs.TaskBalanceIntegrity, Handler: integrityJob.Handle},
		},
		Cron: cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker", slog.Int("tenants", len(tenants)), slog.Int("concurrency", cfg.WorkerConcurrency))
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
