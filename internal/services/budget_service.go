package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"familybudget/internal/budget"
	"familybudget/internal/cache"
	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/storage"
)

// BudgetServiceConfig tunes evaluation. Zero values pick defaults.
type BudgetServiceConfig struct {
	// Concurrency bounds how many budgets are evaluated in parallel.
	Concurrency int
	// Location is the timezone reference instants are bucketed in.
	Location *time.Location
	// SnapshotTTL is how long a family's expense snapshot may be reused for
	// status reads. Zero disables the cache.
	SnapshotTTL  time.Duration
	SnapshotSize int
}

// BudgetService evaluates budgets and raises threshold alerts.
type BudgetService struct {
	repo        storage.Repository
	snapshots   *snapshotCache
	locks       *keyedMutex
	concurrency int
	loc         *time.Location
	logger      *log.Logger
	events      *log.StructuredLogger
}

// AlertReport is the outcome of one alert evaluation pass over a family.
type AlertReport struct {
	FamilyID string
	Statuses []core.BudgetStatus
	Raised   []core.NotificationIntent
	Errors   []BudgetError
}

// SweepReport aggregates AlertReports across families.
type SweepReport struct {
	Families int
	Raised   []core.NotificationIntent
	Statuses []core.BudgetStatus
	Errors   []BudgetError
	// Failed lists families whose budgets or members could not be loaded.
	Failed map[string]error
}

func NewBudgetService(repo storage.Repository, cfg BudgetServiceConfig, logger *log.Logger) *BudgetService {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 4
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.SnapshotSize < 1 {
		cfg.SnapshotSize = 256
	}
	if logger == nil {
		logger = log.Discard()
	}
	lru := cache.NewLRUCache[familySnapshot](cfg.SnapshotSize, cfg.SnapshotTTL)
	return &BudgetService{
		repo:        repo,
		snapshots:   newSnapshotCache(repo, lru),
		locks:       newKeyedMutex(),
		concurrency: cfg.Concurrency,
		loc:         cfg.Location,
		logger:      logger.WithComponent(log.ComponentBudget),
		events:      log.NewStructuredLogger(logger),
	}
}

// SnapshotCache exposes the expense snapshot cache for registration with a cache.Manager.
func (s *BudgetService) SnapshotCache() cache.Cleaner {
	return s.snapshots.lru
}

// InvalidateSnapshot drops the cached expense snapshot of a family.
func (s *BudgetService) InvalidateSnapshot(familyID string) {
	s.snapshots.Invalidate(familyID)
}

// reference converts now to the configured budget timezone.
func (s *BudgetService) reference(now time.Time) time.Time {
	return now.In(s.loc)
}

func (s *BudgetService) CreateBudget(ctx context.Context, b core.Budget, now time.Time) (core.Budget, error) {
	b.Name = strings.TrimSpace(b.Name)
	if b.StartDate.IsEmpty() && b.Period.IsValid() {
		// Default anchor is the start of the current period
		p, err := budget.Resolve(b.Period, core.DateOf(s.reference(now)), s.reference(now))
		if err != nil {
			return core.Budget{}, validationError(err)
		}
		b.StartDate = p.Start
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, validationError(err)
	}

	created, err := s.repo.CreateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	s.rememberMember(ctx, created.FamilyID, created.CreatedBy)

	s.logger.InfoContext(ctx, "Budget created",
		log.FieldFamilyID, created.FamilyID,
		log.FieldBudgetID, created.ID,
		log.FieldBudgetName, created.Name,
		log.FieldAmountCents, created.Amount.Cents,
		"period", string(created.Period))
	return created, nil
}

// UpdateBudget applies the set fields of u to a stored budget. Alert history
// of the current period is kept, so a raised limit does not re-alert until the
// new limit is crossed at a higher class.
func (s *BudgetService) UpdateBudget(ctx context.Context, familyID string, id int64, u core.BudgetUpdate) (core.Budget, error) {
	existing, err := s.repo.GetBudget(ctx, familyID, id)
	if err != nil {
		return core.Budget{}, err
	}
	b := u.Apply(existing)
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return core.Budget{}, validationError(err)
	}

	updated, err := s.repo.UpdateBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget updated", log.FieldFamilyID, familyID, log.FieldBudgetID, id)
	return updated, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, familyID string, id int64) error {
	if err := s.repo.DeleteBudget(ctx, familyID, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Budget deleted", log.FieldFamilyID, familyID, log.FieldBudgetID, id)
	return nil
}

func (s *BudgetService) GetBudget(ctx context.Context, familyID string, id int64) (core.Budget, error) {
	return s.repo.GetBudget(ctx, familyID, id)
}

func (s *BudgetService) ListBudgets(ctx context.Context, familyID string) ([]core.Budget, error) {
	return s.repo.ListBudgets(ctx, familyID)
}

// GetStatus evaluates one budget against the family's current expenses.
func (s *BudgetService) GetStatus(ctx context.Context, familyID string, budgetID int64, now time.Time) (core.BudgetStatus, error) {
	b, err := s.repo.GetBudget(ctx, familyID, budgetID)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	ref := s.reference(now)
	p, err := budget.Resolve(b.Period, b.StartDate, ref)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("%w: budget %d: %w", budget.ErrInvalidBudget, b.ID, err)
	}
	expenses, err := s.snapshots.Load(ctx, familyID, p, false)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("load expenses: %w", err)
	}
	return budget.Evaluate(b, expenses, ref)
}

// ListStatuses evaluates every budget of a family in creation order. A budget
// that fails to evaluate is reported in the error slice and skipped.
func (s *BudgetService) ListStatuses(ctx context.Context, familyID string, now time.Time) ([]core.BudgetStatus, []BudgetError, error) {
	budgets, err := s.repo.ListBudgets(ctx, familyID)
	if err != nil {
		return nil, nil, fmt.Errorf("list budgets: %w", err)
	}
	ref := s.reference(now)
	expenses, err := s.loadFor(ctx, familyID, budgets, ref, false)
	if err != nil {
		return nil, nil, err
	}

	statuses := make([]core.BudgetStatus, 0, len(budgets))
	var failures []BudgetError
	for _, b := range budgets {
		status, err := budget.Evaluate(b, expenses, ref)
		if err != nil {
			failures = append(failures, s.budgetError(ctx, b, err))
			continue
		}
		statuses = append(statuses, status)
	}
	return statuses, failures, nil
}

// loadFor reads the family's expenses over the union of the budgets' current periods.
func (s *BudgetService) loadFor(ctx context.Context, familyID string, budgets []core.Budget, ref time.Time, fresh bool) ([]core.Expense, error) {
	window, ok := unionWindow(budgets, ref)
	if !ok {
		return nil, nil
	}
	expenses, err := s.snapshots.Load(ctx, familyID, window, fresh)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	return expenses, nil
}

// unionWindow spans every resolvable budget period. Budgets whose period cannot
// be resolved are skipped here and reported by Evaluate.
func unionWindow(budgets []core.Budget, ref time.Time) (core.Period, bool) {
	var window core.Period
	found := false
	for _, b := range budgets {
		p, err := budget.Resolve(b.Period, b.StartDate, ref)
		if err != nil {
			continue
		}
		if !found {
			window, found = p, true
			continue
		}
		if p.Start.Before(window.Start.Time) {
			window.Start = p.Start
		}
		if p.End.After(window.End.Time) {
			window.End = p.End
		}
	}
	return window, found
}

// EvaluateAndRaiseAlerts evaluates every budget of the family and persists a
// notification for each threshold crossing not alerted before in the period.
// Budgets are evaluated in parallel; decide-then-persist is serialised per
// budget period in-process and guarded by the storage-level unique record
// across processes. Safe to call repeatedly and concurrently.
func (s *BudgetService) EvaluateAndRaiseAlerts(ctx context.Context, familyID string, now time.Time) (AlertReport, error) {
	report := AlertReport{FamilyID: familyID}

	budgets, err := s.repo.ListBudgets(ctx, familyID)
	if err != nil {
		return report, fmt.Errorf("list budgets: %w", err)
	}
	if len(budgets) == 0 {
		return report, nil
	}
	recipients, err := s.recipients(ctx, familyID, budgets)
	if err != nil {
		return report, err
	}
	ref := s.reference(now)
	expenses, err := s.loadFor(ctx, familyID, budgets, ref, true)
	if err != nil {
		return report, err
	}

	type outcome struct {
		status *core.BudgetStatus
		raised *core.NotificationIntent
		err    *BudgetError
	}
	outcomes := make([]outcome, len(budgets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, b := range budgets {
		i, b := i, b
		g.Go(func() error {
			status, intent, raised, err := s.evaluateOne(gctx, b, expenses, ref, recipients)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				be := s.budgetError(gctx, b, err)
				outcomes[i].err = &be
				return nil
			}
			outcomes[i].status = &status
			if raised {
				outcomes[i].raised = &intent
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	for _, o := range outcomes {
		if o.status != nil {
			report.Statuses = append(report.Statuses, *o.status)
		}
		if o.raised != nil {
			report.Raised = append(report.Raised, *o.raised)
		}
		if o.err != nil {
			report.Errors = append(report.Errors, *o.err)
		}
	}
	return report, nil
}

func (s *BudgetService) evaluateOne(ctx context.Context, b core.Budget, expenses []core.Expense, ref time.Time, recipients []string) (core.BudgetStatus, core.NotificationIntent, bool, error) {
	status, err := budget.Evaluate(b, expenses, ref)
	if err != nil {
		return core.BudgetStatus{}, core.NotificationIntent{}, false, err
	}

	unlock := s.locks.Lock(strconv.FormatInt(b.ID, 10) + ":" + status.Period.Start.String())
	defer unlock()

	prior, err := s.repo.PriorAlerts(ctx, b.ID, status.Period.Start)
	if err != nil {
		return status, core.NotificationIntent{}, false, fmt.Errorf("prior alerts: %w", err)
	}
	intent, ok := budget.Decide(status, prior)
	if !ok {
		return status, core.NotificationIntent{}, false, nil
	}

	created, err := s.repo.RecordAlert(ctx, intent, recipients)
	if err != nil {
		return status, core.NotificationIntent{}, false, fmt.Errorf("record alert: %w", err)
	}
	if !created {
		// another process recorded the crossing first
		return status, core.NotificationIntent{}, false, nil
	}
	s.events.LogAlertRaised(ctx, intent, len(recipients))
	return status, intent, true, nil
}

// recipients returns the family's members. A family with no known members
// notifies the creators of its budgets instead.
func (s *BudgetService) recipients(ctx context.Context, familyID string, budgets []core.Budget) ([]string, error) {
	members, err := s.repo.ListMembers(ctx, familyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if len(members) > 0 {
		return members, nil
	}
	seen := make(map[string]struct{})
	for _, b := range budgets {
		if b.CreatedBy == "" {
			continue
		}
		if _, ok := seen[b.CreatedBy]; !ok {
			seen[b.CreatedBy] = struct{}{}
			members = append(members, b.CreatedBy)
		}
	}
	return members, nil
}

// EvaluateAllFamilies runs EvaluateAndRaiseAlerts for every family that owns a
// budget, so period boundary crossings are noticed without new expenses.
func (s *BudgetService) EvaluateAllFamilies(ctx context.Context, now time.Time) (SweepReport, error) {
	families, err := s.repo.ListFamilies(ctx)
	if err != nil {
		return SweepReport{}, fmt.Errorf("list families: %w", err)
	}

	sweep := SweepReport{Families: len(families), Failed: make(map[string]error)}
	for _, familyID := range families {
		if err := ctx.Err(); err != nil {
			return sweep, err
		}
		report, err := s.EvaluateAndRaiseAlerts(ctx, familyID, now)
		if err != nil {
			if ctx.Err() != nil {
				return sweep, ctx.Err()
			}
			sweep.Failed[familyID] = err
			s.logger.ErrorContext(ctx, "Family alert evaluation failed",
				log.FieldFamilyID, familyID, log.FieldError, err)
			continue
		}
		sweep.Raised = append(sweep.Raised, report.Raised...)
		sweep.Statuses = append(sweep.Statuses, report.Statuses...)
		sweep.Errors = append(sweep.Errors, report.Errors...)
	}

	s.logger.InfoContext(ctx, "Alert sweep completed",
		log.FieldOperation, log.OpSweep,
		"families", sweep.Families,
		"raised", len(sweep.Raised),
		"budget_errors", len(sweep.Errors),
		"failed_families", len(sweep.Failed))
	return sweep, nil
}

// budgetError logs and wraps a per-budget failure. A cross-family expense in
// a family snapshot means storage broke its scoping contract.
func (s *BudgetService) budgetError(ctx context.Context, b core.Budget, err error) BudgetError {
	errorType := log.ErrorTypeInternal
	switch {
	case errors.Is(err, budget.ErrCrossFamily):
		errorType = log.ErrorTypeContract
	case errors.Is(err, budget.ErrInvalidBudget):
		errorType = log.ErrorTypeValidation
	}
	s.logger.ErrorContext(ctx, "Budget evaluation failed",
		log.FieldFamilyID, b.FamilyID,
		log.FieldBudgetID, b.ID,
		log.FieldErrorType, errorType,
		log.FieldError, err)
	return BudgetError{BudgetID: b.ID, BudgetName: b.Name, Err: err}
}

// rememberMember records an acting user in the family directory. Failures only
// degrade recipient lists so they are logged, not returned.
func (s *BudgetService) rememberMember(ctx context.Context, familyID, userID string) {
	if userID == "" {
		return
	}
	if err := s.repo.AddMember(ctx, familyID, userID); err != nil {
		s.logger.WarnContext(ctx, "Failed to record family member",
			log.FieldFamilyID, familyID, log.FieldUserID, userID, log.FieldError, err)
	}
}
