package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"familybudget/internal/amqp"
	"familybudget/internal/log"
	"familybudget/internal/services"
	"familybudget/internal/sheets"
)

// AlertEvaluator is the part of services.BudgetService the worker drives.
type AlertEvaluator interface {
	EvaluateAndRaiseAlerts(ctx context.Context, familyID string, now time.Time) (services.AlertReport, error)
	EvaluateAllFamilies(ctx context.Context, now time.Time) (services.SweepReport, error)
}

// Config holds configuration for the alert worker
type Config struct {
	// SweepInterval is how often every family is re-evaluated (default: 15m)
	SweepInterval time.Duration
}

// AlertWorker raises budget alerts for expense change messages and sweeps
// all families periodically so period boundaries are noticed without new
// expenses.
type AlertWorker struct {
	alerts   AlertEvaluator
	reporter sheets.StatusReporter
	config   Config
	logger   *log.Logger
	now      func() time.Time

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewAlertWorker creates the worker. reporter may be nil when status export is disabled.
func NewAlertWorker(alerts AlertEvaluator, reporter sheets.StatusReporter, config Config, logger *log.Logger) *AlertWorker {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 15 * time.Minute
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &AlertWorker{
		alerts:   alerts,
		reporter: reporter,
		config:   config,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
	}
}

// HandleExpenseChanged evaluates the family named in msg. Returning an error
// makes the consumer requeue the message, so per-budget failures are only
// logged: retrying cannot fix a corrupt budget.
func (w *AlertWorker) HandleExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
	w.logger.DebugContext(ctx, "Processing expense change",
		log.FieldMessageID, msg.ID.String(),
		log.FieldFamilyID, msg.FamilyID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldOperation, string(msg.Op))

	report, err := w.alerts.EvaluateAndRaiseAlerts(ctx, msg.FamilyID, w.now())
	if err != nil {
		return fmt.Errorf("evaluate family %s: %w", msg.FamilyID, err)
	}
	if len(report.Errors) > 0 {
		w.logger.WarnContext(ctx, "Some budgets could not be evaluated",
			log.FieldFamilyID, msg.FamilyID,
			"budget_errors", len(report.Errors))
	}
	return nil
}

// Sweep evaluates every family once and exports the resulting statuses.
func (w *AlertWorker) Sweep(ctx context.Context) error {
	at := w.now()
	sweep, err := w.alerts.EvaluateAllFamilies(ctx, at)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	var errs []error
	for family, ferr := range sweep.Failed {
		errs = append(errs, fmt.Errorf("family %s: %w", family, ferr))
	}
	if w.reporter != nil && len(sweep.Statuses) > 0 {
		if err := w.reporter.ReportStatuses(ctx, at, sweep.Statuses); err != nil {
			errs = append(errs, fmt.Errorf("export statuses: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Start begins the sweep loop. Returns an error if already running.
func (w *AlertWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("alert worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Alert worker started",
		"sweep_interval", w.config.SweepInterval,
		"export_enabled", w.reporter != nil)
	return nil
}

// Stop gracefully stops the sweep loop and waits for the current sweep.
func (w *AlertWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		w.logger.InfoContext(ctx, "Alert worker stopped gracefully")
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Alert worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
	return nil
}

// IsRunning returns whether the sweep loop is currently running
func (w *AlertWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *AlertWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	// Sweep immediately on startup to catch boundaries crossed while down
	w.runSweep(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

func (w *AlertWorker) runSweep(ctx context.Context) {
	if err := w.Sweep(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "Alert sweep failed",
			log.FieldOperation, log.OpSweep,
			log.FieldError, err)
	}
}
