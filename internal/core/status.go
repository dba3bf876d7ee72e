package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const (
	ThresholdNone ThresholdClass = iota
	ThresholdWarning
	ThresholdExceeded
)

const (
	NotificationBudgetWarning  NotificationType = "budget_warning"
	NotificationBudgetExceeded NotificationType = "budget_exceeded"
)

type (
	// ThresholdClass orders how far spend has progressed against a limit.
	ThresholdClass int

	NotificationType string

	// Period is a resolved [Start, End) window of calendar dates.
	Period struct {
		Start Date
		End   Date
	}

	BudgetStatus struct {
		Budget         Budget
		Period         Period
		Spent          Money
		Remaining      Money
		PercentageUsed decimal.Decimal
		IsOverBudget   bool
	}

	// NotificationIntent is the decision to notify a family about one
	// threshold crossing. Persisting and delivering it is up to the caller.
	NotificationIntent struct {
		FamilyID    string
		BudgetID    int64
		BudgetName  string
		PeriodStart Date
		Class       ThresholdClass
		Type        NotificationType
		DedupKey    string
		Title       string
		Message     string
	}

	Notification struct {
		ID        int64
		FamilyID  string
		UserID    string
		Type      NotificationType
		Title     string
		Message   string
		BudgetID  int64
		DedupKey  string
		Read      bool
		CreatedAt time.Time
	}
)

// Contains reports whether d falls in [Start, End).
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start.Time) && d.Before(p.End.Time)
}

func (p Period) String() string {
	return p.Start.String() + "/" + p.End.String()
}

func (c ThresholdClass) String() string {
	switch c {
	case ThresholdNone:
		return "none"
	case ThresholdWarning:
		return "warning"
	case ThresholdExceeded:
		return "exceeded"
	default:
		return fmt.Sprintf("ThresholdClass(%d)", int(c))
	}
}

// ParseThresholdClass is the inverse of ThresholdClass.String.
func ParseThresholdClass(s string) (ThresholdClass, error) {
	switch s {
	case "none":
		return ThresholdNone, nil
	case "warning":
		return ThresholdWarning, nil
	case "exceeded":
		return ThresholdExceeded, nil
	default:
		return ThresholdNone, fmt.Errorf("unknown threshold class %q", s)
	}
}

// NotificationType maps a raised class to the notification it produces.
func (c ThresholdClass) NotificationType() NotificationType {
	if c == ThresholdExceeded {
		return NotificationBudgetExceeded
	}
	return NotificationBudgetWarning
}

// DedupKey identifies one threshold crossing of one budget in one period.
func DedupKey(budgetID int64, periodStart Date, class ThresholdClass) string {
	return fmt.Sprintf("%d:%s:%s", budgetID, periodStart, class)
}
