package budget

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"familybudget/internal/core"
)

// PercentagePlaces is the number of decimals kept in BudgetStatus.PercentageUsed.
const PercentagePlaces = 2

var hundred = decimal.NewFromInt(100)

// Evaluate computes the status of b for the period containing ref.
//
// Budgets are validated on creation; a non-positive amount or an unknown
// period kind reaching this point is reported as ErrInvalidBudget instead of
// producing a meaningless percentage.
func Evaluate(b core.Budget, expenses []core.Expense, ref time.Time) (core.BudgetStatus, error) {
	if b.Amount.Cents <= 0 {
		return core.BudgetStatus{}, fmt.Errorf("%w: budget %d has amount %s", ErrInvalidBudget, b.ID, b.Amount)
	}
	period, err := Resolve(b.Period, b.StartDate, ref)
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("%w: budget %d: %w", ErrInvalidBudget, b.ID, err)
	}
	spent, err := Aggregate(expenses, b, period)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	return core.BudgetStatus{
		Budget:         b,
		Period:         period,
		Spent:          spent,
		Remaining:      b.Amount.Sub(spent),
		PercentageUsed: Percentage(spent, b.Amount),
		IsOverBudget:   spent.Cents > b.Amount.Cents,
	}, nil
}

// Percentage returns spent/limit*100 rounded half-up to PercentagePlaces.
// limit must be positive.
func Percentage(spent, limit core.Money) decimal.Decimal {
	return decimal.NewFromInt(spent.Cents).
		Mul(hundred).
		DivRound(decimal.NewFromInt(limit.Cents), PercentagePlaces)
}
