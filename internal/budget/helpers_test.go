package budget

import "familybudget/internal/core"

const testFamily = "fam-1"

func strPtr(s string) *string { return &s }

func benPtr(b core.Beneficiary) *core.Beneficiary { return &b }

func expense(id int64, cents int64, date core.Date, category string, beneficiary core.Beneficiary) core.Expense {
	return core.Expense{
		ID:            id,
		FamilyID:      testFamily,
		Amount:        core.Money{Cents: cents},
		Currency:      "USD",
		Date:          date,
		Description:   category,
		PaymentMethod: core.PaymentCredit,
		Category:      category,
		Beneficiary:   beneficiary,
	}
}

func groceriesBudget() core.Budget {
	return core.Budget{
		ID:        1,
		FamilyID:  testFamily,
		Name:      "Groceries",
		Amount:    core.Money{Cents: 50000},
		Period:    core.Monthly,
		Category:  strPtr("groceries"),
		StartDate: core.NewDate(2025, 1, 1),
	}
}
