package sheets

import (
	"context"
	"time"

	"familybudget/internal/core"
)

// Ports for outbound adapters.
type (
	// StatusReporter exports evaluated budget statuses to an external report.
	StatusReporter interface {
		ReportStatuses(ctx context.Context, at time.Time, statuses []core.BudgetStatus) error
	}
)

// Header names the report columns in the order StatusRow fills them.
var Header = []string{
	"Reported At", "Family", "Budget", "Period Start", "Period End",
	"Spent", "Amount", "Remaining", "Percentage Used", "Over Budget",
}

// StatusRow renders one status as report cells. Period End is the last day
// inside the period, not the exclusive bound.
func StatusRow(at time.Time, s core.BudgetStatus) []string {
	over := "FALSE"
	if s.IsOverBudget {
		over = "TRUE"
	}
	return []string{
		at.UTC().Format(time.RFC3339),
		s.Budget.FamilyID,
		s.Budget.Name,
		s.Period.Start.String(),
		s.Period.End.AddDays(-1).String(),
		s.Spent.String(),
		s.Budget.Amount.String(),
		s.Remaining.String(),
		s.PercentageUsed.StringFixed(2),
		over,
	}
}
