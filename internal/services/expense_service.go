package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"familybudget/internal/amqp"
	"familybudget/internal/core"
	"familybudget/internal/log"
	"familybudget/internal/storage"
)

// DefaultCurrency is applied to expenses created without one.
const DefaultCurrency = "USD"

// ChangePublisher announces expense mutations to the alert worker.
type ChangePublisher interface {
	PublishExpenseChanged(ctx context.Context, msg *amqp.ExpenseChangedMessage) error
}

// ExpenseService orchestrates expense operations across storage, the
// snapshot cache and alert evaluation.
type ExpenseService struct {
	repo      storage.Repository
	budgets   *BudgetService
	publisher ChangePublisher
	logger    *log.Logger
	now       func() time.Time
}

// NewExpenseService wires the service. With a nil publisher, alerts are
// evaluated inline after every mutation instead of by the worker.
func NewExpenseService(repo storage.Repository, budgets *BudgetService, publisher ChangePublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ExpenseService{
		repo:      repo,
		budgets:   budgets,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentExpense),
		now:       time.Now,
	}
}

func normalizeExpense(e core.Expense) core.Expense {
	e.Description = strings.TrimSpace(e.Description)
	e.Merchant = strings.TrimSpace(e.Merchant)
	e.Category = strings.TrimSpace(e.Category)
	e.Currency = strings.ToUpper(strings.TrimSpace(e.Currency))
	if e.Currency == "" {
		e.Currency = DefaultCurrency
	}
	if e.Beneficiary == "" {
		e.Beneficiary = core.WholeFamily
	}
	if e.PaymentMethod == "" {
		e.PaymentMethod = core.PaymentOther
	}
	return e
}

// CreateExpense saves an expense and triggers alert evaluation for its family.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e = normalizeExpense(e)
	if err := e.Validate(); err != nil {
		return core.Expense{}, validationError(err)
	}

	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	if created.CreatedBy != "" {
		if err := s.repo.AddMember(ctx, created.FamilyID, created.CreatedBy); err != nil {
			s.logger.WarnContext(ctx, "Failed to record family member",
				log.FieldFamilyID, created.FamilyID, log.FieldUserID, created.CreatedBy, log.FieldError, err)
		}
	}

	s.logger.InfoContext(ctx, "Expense created",
		log.FieldFamilyID, created.FamilyID,
		log.FieldExpenseID, created.ID,
		log.FieldAmountCents, created.Amount.Cents)
	s.changed(ctx, created.FamilyID, created.ID, amqp.OpCreated)
	return created, nil
}

// UpdateExpense applies the set fields of u to a stored expense. Fields left
// unset keep their stored value; creation defaults are not re-applied.
func (s *ExpenseService) UpdateExpense(ctx context.Context, familyID string, id int64, u core.ExpenseUpdate) (core.Expense, error) {
	existing, err := s.repo.GetExpense(ctx, familyID, id)
	if err != nil {
		return core.Expense{}, err
	}
	e := normalizeExpense(u.Apply(existing))
	if err := e.Validate(); err != nil {
		return core.Expense{}, validationError(err)
	}

	updated, err := s.repo.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense updated", log.FieldFamilyID, familyID, log.FieldExpenseID, id)
	s.changed(ctx, updated.FamilyID, updated.ID, amqp.OpUpdated)
	return updated, nil
}

func (s *ExpenseService) DeleteExpense(ctx context.Context, familyID string, id int64) error {
	if err := s.repo.DeleteExpense(ctx, familyID, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	s.logger.InfoContext(ctx, "Expense deleted", log.FieldFamilyID, familyID, log.FieldExpenseID, id)
	s.changed(ctx, familyID, id, amqp.OpDeleted)
	return nil
}

func (s *ExpenseService) GetExpense(ctx context.Context, familyID string, id int64) (core.Expense, error) {
	return s.repo.GetExpense(ctx, familyID, id)
}

func (s *ExpenseService) ListExpenses(ctx context.Context, familyID string, f core.ExpenseFilter) (core.ExpensePage, error) {
	f = f.Normalized()
	if !f.StartDate.IsEmpty() && !f.EndDate.IsEmpty() && f.EndDate.Before(f.StartDate.Time) {
		return core.ExpensePage{}, validationError(fmt.Errorf("end date %s before start date %s", f.EndDate, f.StartDate))
	}
	return s.repo.ListExpenses(ctx, familyID, f)
}

// Summary totals a family's expenses over the inclusive range [start, end].
// Empty bounds default to the current calendar month.
func (s *ExpenseService) Summary(ctx context.Context, familyID string, start, end core.Date) (core.ExpenseSummary, error) {
	now := s.now()
	if start.IsEmpty() {
		today := core.DateOf(now.In(s.budgets.loc))
		start = core.NewDate(today.Year(), int(today.Month()), 1)
	}
	if end.IsEmpty() {
		end = core.NewDate(start.Year(), int(start.Month())+1, 0)
	}
	if end.Before(start.Time) {
		return core.ExpenseSummary{}, validationError(fmt.Errorf("end date %s before start date %s", end, start))
	}

	expenses, err := s.repo.ExpensesBetween(ctx, familyID, start, end.AddDays(1))
	if err != nil {
		return core.ExpenseSummary{}, fmt.Errorf("load expenses: %w", err)
	}
	return core.Summarize(expenses, start, end, now)
}

// changed invalidates cached snapshots and hands the family to alert
// evaluation. Nothing here fails the mutation, which is already stored.
func (s *ExpenseService) changed(ctx context.Context, familyID string, expenseID int64, op amqp.ChangeOp) {
	s.budgets.InvalidateSnapshot(familyID)

	if s.publisher == nil {
		report, err := s.budgets.EvaluateAndRaiseAlerts(ctx, familyID, s.now())
		if err != nil {
			s.logger.ErrorContext(ctx, "Inline alert evaluation failed",
				log.FieldFamilyID, familyID, log.FieldOperation, log.OpEvaluate, log.FieldError, err)
			return
		}
		if len(report.Raised) > 0 {
			s.logger.DebugContext(ctx, "Inline alert evaluation raised alerts",
				log.FieldFamilyID, familyID, "raised", len(report.Raised))
		}
		return
	}

	msg := amqp.NewExpenseChangedMessage(familyID, expenseID, op)
	if err := s.publisher.PublishExpenseChanged(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish expense change",
			log.FieldFamilyID, familyID,
			log.FieldExpenseID, expenseID,
			log.FieldMessageID, msg.ID.String(),
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}
