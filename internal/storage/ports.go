package storage

import (
	"context"
	"errors"

	"familybudget/internal/core"
)

var (
	// ErrNotFound is returned when a record does not exist or is not visible to the caller's family.
	ErrNotFound = errors.New("not found")
)

// Ports implemented by the sqlite and memory backends.
type (
	ExpenseStore interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		DeleteExpense(ctx context.Context, familyID string, id int64) error
		GetExpense(ctx context.Context, familyID string, id int64) (core.Expense, error)
		// ListExpenses returns one page of a family's expenses, newest first.
		ListExpenses(ctx context.Context, familyID string, f core.ExpenseFilter) (core.ExpensePage, error)
		// ExpensesBetween returns every expense of the family dated in [start, end).
		ExpensesBetween(ctx context.Context, familyID string, start, end core.Date) ([]core.Expense, error)
	}

	BudgetStore interface {
		CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, familyID string, id int64) error
		GetBudget(ctx context.Context, familyID string, id int64) (core.Budget, error)
		// ListBudgets returns a family's budgets in creation order.
		ListBudgets(ctx context.Context, familyID string) ([]core.Budget, error)
	}

	// FamilyDirectory is the read side of family membership.
	FamilyDirectory interface {
		// ListFamilies returns the ids of every family that owns at least one budget.
		ListFamilies(ctx context.Context) ([]string, error)
		ListMembers(ctx context.Context, familyID string) ([]string, error)
		AddMember(ctx context.Context, familyID, userID string) error
	}

	AlertStore interface {
		// PriorAlerts returns the threshold classes already raised for a budget period.
		PriorAlerts(ctx context.Context, budgetID int64, periodStart core.Date) ([]core.ThresholdClass, error)
		// RecordAlert atomically records the alert and one notification per recipient.
		// It returns false without writing anything when the same or a higher class
		// was already recorded for the period.
		RecordAlert(ctx context.Context, intent core.NotificationIntent, recipients []string) (bool, error)
	}

	NotificationStore interface {
		ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]core.Notification, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkRead(ctx context.Context, userID string, id int64) error
		MarkAllRead(ctx context.Context, userID string) (int, error)
	}

	Repository interface {
		ExpenseStore
		BudgetStore
		FamilyDirectory
		AlertStore
		NotificationStore
		Close() error
	}
)
