package budget

import (
	"fmt"

	"familybudget/internal/core"
)

// Aggregate sums the amounts of every expense dated inside p that matches b.
//
// Amounts are integer minor units, so the total is exact and independent of
// input order. An empty or nil slice yields zero.
func Aggregate(expenses []core.Expense, b core.Budget, p core.Period) (core.Money, error) {
	var total core.Money
	for _, e := range expenses {
		ok, err := Matches(e, b)
		if err != nil {
			return core.Money{}, err
		}
		if !ok || !p.Contains(e.Date) {
			continue
		}
		if total, err = total.Add(e.Amount); err != nil {
			return core.Money{}, fmt.Errorf("aggregate budget %d: %w", b.ID, err)
		}
	}
	return total, nil
}
