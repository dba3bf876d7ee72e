package core

import "testing"

func ptr[T any](v T) *T { return &v }

func TestExpenseUpdateKeepsUnsetFields(t *testing.T) {
	stored := sampleExpense(2500, NewDate(2025, 3, 10), "groceries", "alice", PaymentDebit)
	stored.Tags = []string{"weekly"}

	cases := []struct {
		name  string
		u     ExpenseUpdate
		check func(t *testing.T, got Expense)
	}{
		{"empty update", ExpenseUpdate{}, func(t *testing.T, got Expense) {
			if got.Beneficiary != "alice" || got.Category != "groceries" || got.Amount.Cents != 2500 || len(got.Tags) != 1 {
				t.Fatalf("got %+v, want stored expense unchanged", got)
			}
		}},
		{"amount only", ExpenseUpdate{Amount: &Money{Cents: 4000}}, func(t *testing.T, got Expense) {
			if got.Amount.Cents != 4000 || got.Beneficiary != "alice" || got.PaymentMethod != PaymentDebit {
				t.Fatalf("got %+v", got)
			}
		}},
		{"beneficiary to family", ExpenseUpdate{Beneficiary: ptr(WholeFamily)}, func(t *testing.T, got Expense) {
			if got.Beneficiary != WholeFamily {
				t.Fatalf("beneficiary = %q, want family", got.Beneficiary)
			}
		}},
		{"clear tags", ExpenseUpdate{Tags: &[]string{}}, func(t *testing.T, got Expense) {
			if len(got.Tags) != 0 {
				t.Fatalf("tags = %v, want none", got.Tags)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, tc.u.Apply(stored))
		})
	}
}

func TestBudgetUpdateFilters(t *testing.T) {
	stored := Budget{
		FamilyID:    "fam",
		Name:        "Kids groceries",
		Amount:      Money{Cents: 20000},
		Period:      Monthly,
		Category:    ptr("groceries"),
		Beneficiary: ptr(Beneficiary("kid-1")),
		StartDate:   NewDate(2025, 1, 1),
	}

	cases := []struct {
		name            string
		u               BudgetUpdate
		wantCategory    string
		wantBeneficiary string
	}{
		{"omitted filters kept", BudgetUpdate{Amount: &Money{Cents: 30000}}, "groceries", "kid-1"},
		{"category replaced", BudgetUpdate{Category: ptr("school")}, "school", "kid-1"},
		{"empty clears", BudgetUpdate{Category: ptr(""), Beneficiary: ptr(Beneficiary(""))}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.u.Apply(stored)
			cat, _ := got.CategoryFilter()
			ben, _ := got.BeneficiaryFilter()
			if cat != tc.wantCategory || string(ben) != tc.wantBeneficiary {
				t.Fatalf("filters = %q/%q, want %q/%q", cat, ben, tc.wantCategory, tc.wantBeneficiary)
			}
			if *stored.Category != "groceries" {
				t.Fatal("Apply mutated the stored budget")
			}
		})
	}
}
