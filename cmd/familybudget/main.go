package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"familybudget/internal/cache"
	"familybudget/internal/cli"
	"familybudget/internal/config"
	apphttp "familybudget/internal/http"
	"familybudget/internal/log"
	"familybudget/internal/services"
	"familybudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)

	budgets := services.NewBudgetService(res.Repository, services.BudgetServiceConfig{
		Concurrency: cfg.AlertConcurrency,
		Location:    cfg.Location(),
		SnapshotTTL: cfg.SnapshotCacheTTL,
	}, logger)
	expenses := services.NewExpenseService(res.Repository, budgets, res.ChangePublisher(), logger)
	notifications := services.NewNotificationService(res.Repository, logger)

	caches := cache.NewManager(logger)
	caches.Register(budgets.SnapshotCache())
	if cfg.SnapshotCacheTTL > 0 {
		caches.StartCleanup(cfg.SnapshotCacheTTL)
	}

	deps := apphttp.Deps{Expenses: expenses, Budgets: budgets, Notifications: notifications}
	if p, ok := res.Repository.(apphttp.Pinger); ok {
		deps.Ready = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps, cfg.RateLimitPerMinute, logger)

	// Without a broker no alert-worker process sees this data, so the
	// periodic sweep and status export run here.
	var sweeper *worker.AlertWorker
	if res.AMQP == nil {
		sweeper = worker.NewAlertWorker(budgets, res.Reporter, worker.Config{SweepInterval: cfg.AlertSweepInterval}, logger)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if sweeper != nil {
			if err := sweeper.Stop(ctx); err != nil {
				logger.Error("Alert sweep shutdown error", log.FieldError, err)
			}
		}
		caches.Stop()
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if sweeper != nil {
		if err := sweeper.Start(ctx); err != nil {
			logger.Error("Failed to start alert sweep", log.FieldError, err)
			os.Exit(1)
		}
	}

	logger.Info("Starting familybudget server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"alerts", alertMode(cfg),
		"timezone", cfg.BudgetTimezone)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

func alertMode(cfg *config.Config) string {
	if cfg.AMQPURL == "" {
		return "inline"
	}
	return "queued"
}
