package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/accounts"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/journals"
	"github.com/rasyiqi-code/Counting-sub001/internal/accounting/reports"
	"github.com/rasyiqi-code/Counting-sub001/internal/app"
	"github.com/rasyiqi-code/Counting-sub001/internal/assets"
	closehttp "github.com/rasyiqi-code/Counting-sub001/internal/close/http"
	"github.com/rasyiqi-code/Counting-sub001/internal/observability"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/cache"
	"github.com/rasyiqi-code/Counting-sub001/internal/platform/db"
	"github.com/rasyiqi-code/Counting-sub001/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("report cache disabled", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	services := app.NewServices(cfg, logger, dbpool, redisClient, metrics)

	inspector := asynq.NewInspector(cfg.Queue())
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("asynq inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AccountsHandler: accounts.NewHandler(logger, services.Accounts),
		JournalsHandler: journals.NewHandler(logger, services.Journals),
		ReportsHandler:  reports.NewHandler(logger, services.Reports),
		AssetsHandler:   assets.NewHandler(logger, services.Assets),
		CloseHandler:    closehttp.NewHandler(logger, services.Close),
		JobHandler:      jobs.NewHandler(inspector, logger),
		Database:        dbpool,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("currency", cfg.Currency))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
