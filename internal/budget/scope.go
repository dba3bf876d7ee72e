package budget

import (
	"fmt"

	"familybudget/internal/core"
)

// Matches reports whether e falls within b's category and beneficiary scope.
//
// A whole-family budget only sees whole-family expenses and a member budget
// only sees that member's expenses: the two scopes are disjoint.
func Matches(e core.Expense, b core.Budget) (bool, error) {
	if e.FamilyID != b.FamilyID {
		return false, fmt.Errorf("%w: expense %d (family %q), budget %d (family %q)",
			ErrCrossFamily, e.ID, e.FamilyID, b.ID, b.FamilyID)
	}
	if category, ok := b.CategoryFilter(); ok && e.Category != category {
		return false, nil
	}
	if beneficiary, ok := b.BeneficiaryFilter(); ok && e.Beneficiary != beneficiary {
		return false, nil
	}
	return true, nil
}
