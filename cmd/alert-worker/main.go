package main

import (
	"context"
	"errors"
	"os"
	"time"

	"familybudget/internal/backend"
	"familybudget/internal/cli"
	"familybudget/internal/log"
	"familybudget/internal/services"
	"familybudget/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting alert-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if backend.BackendType(cfg.DataBackend) != backend.SQLiteBackend {
		// A memory repository lives in one process; the worker would only
		// ever see its own empty copy.
		logger.Warn("alert-worker needs a shared database, memory backend sees no server data",
			"backend", cfg.DataBackend)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)

	// Alerts are always evaluated against fresh data here, so no snapshot TTL.
	budgets := services.NewBudgetService(res.Repository, services.BudgetServiceConfig{
		Concurrency: cfg.AlertConcurrency,
		Location:    cfg.Location(),
	}, logger)
	w := worker.NewAlertWorker(budgets, res.Reporter, worker.Config{SweepInterval: cfg.AlertSweepInterval}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := w.Stop(ctx); err != nil {
			logger.Error("Alert worker shutdown error", log.FieldError, err)
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("Failed to start alert worker", log.FieldError, err)
		os.Exit(1)
	}

	if res.AMQP != nil {
		go func() {
			err := res.AMQP.Consume(ctx, w.HandleExpenseChanged)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Message consumption failed", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("No AMQP_URL configured, relying on periodic sweeps only")
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Alert worker stopped")
}
