package budget

import (
	"fmt"
	"math/big"

	"familybudget/internal/core"
)

// WarningPercent is the share of the limit at which a warning is raised.
const WarningPercent = 80

// Classify returns the highest threshold class implied by status.
//
// The warning line is compared on the exact ratio, not on the rounded
// percentage, so 79.996% stays below it.
func Classify(status core.BudgetStatus) core.ThresholdClass {
	if status.IsOverBudget {
		return core.ThresholdExceeded
	}
	// spent*100 >= amount*80, in big.Int so large budgets cannot overflow.
	lhs := new(big.Int).Mul(big.NewInt(status.Spent.Cents), big.NewInt(100))
	rhs := new(big.Int).Mul(big.NewInt(status.Budget.Amount.Cents), big.NewInt(WarningPercent))
	if status.Spent.Cents > 0 && lhs.Cmp(rhs) >= 0 {
		return core.ThresholdWarning
	}
	return core.ThresholdNone
}

// Decide inspects status against the classes already raised for the same
// (budget, period) and returns an intent when a strictly higher class has
// been reached. Read state of earlier notifications does not matter, and a
// nil prior set is treated as empty.
//
// Classes are monotonic within a period: once exceeded has fired, nothing
// else fires until the next period even if spend drops and rises again.
func Decide(status core.BudgetStatus, prior []core.ThresholdClass) (core.NotificationIntent, bool) {
	highest := core.ThresholdNone
	for _, c := range prior {
		if c > highest {
			highest = c
		}
	}
	class := Classify(status)
	if class <= highest {
		return core.NotificationIntent{}, false
	}

	b := status.Budget
	intent := core.NotificationIntent{
		FamilyID:    b.FamilyID,
		BudgetID:    b.ID,
		BudgetName:  b.Name,
		PeriodStart: status.Period.Start,
		Class:       class,
		Type:        class.NotificationType(),
		DedupKey:    core.DedupKey(b.ID, status.Period.Start, class),
	}
	pct := status.PercentageUsed.StringFixed(1)
	if class == core.ThresholdExceeded {
		intent.Title = "Budget Exceeded: " + b.Name
		intent.Message = fmt.Sprintf("You've spent $%s of your $%s budget (%s%%)", status.Spent, b.Amount, pct)
	} else {
		intent.Title = "Budget Warning: " + b.Name
		intent.Message = fmt.Sprintf("You've used %s%% of your $%s budget", pct, b.Amount)
	}
	return intent, true
}
