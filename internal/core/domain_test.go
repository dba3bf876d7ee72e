package core

import (
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateOfUsesOwnLocation(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	// 2025-03-31 20:00 UTC is already April 1st in UTC+10
	ref := time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC).In(loc)
	if got := DateOf(ref); !got.Equal(NewDate(2025, 4, 1).Time) {
		t.Fatalf("DateOf = %s, want 2025-04-01", got)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-02-28")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.String() != "2025-02-28" {
		t.Fatalf("got %s", d)
	}
	if _, err := ParseDate("28/02/2025"); err == nil {
		t.Fatalf("expected error for bad layout")
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
}

func goodExpense() Expense {
	return Expense{
		FamilyID:      "fam-1",
		Amount:        Money{Cents: 100},
		Currency:      "USD",
		Date:          NewDate(2025, 1, 1),
		Description:   "ok",
		PaymentMethod: PaymentCredit,
		Category:      "groceries",
		Beneficiary:   WholeFamily,
	}
}

func TestExpenseValidate(t *testing.T) {
	if err := goodExpense().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []func(*Expense){
		func(e *Expense) { e.FamilyID = "" },
		func(e *Expense) { e.Date = Date{} },
		func(e *Expense) { e.Amount = Money{} },
		func(e *Expense) { e.Currency = "US" },
		func(e *Expense) { e.Description = " " },
		func(e *Expense) { e.PaymentMethod = "cheque" },
		func(e *Expense) { e.Category = "" },
		func(e *Expense) { e.Beneficiary = "" },
	}
	for i, mutate := range bads {
		e := goodExpense()
		mutate(&e)
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBudgetValidate(t *testing.T) {
	cat := "groceries"
	empty := ""
	good := Budget{
		FamilyID:  "fam-1",
		Name:      "Groceries",
		Amount:    Money{Cents: 50000},
		Period:    Monthly,
		Category:  &cat,
		StartDate: NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Budget)
	}{
		{"zero amount", func(b *Budget) { b.Amount = Money{} }},
		{"negative amount", func(b *Budget) { b.Amount = Money{Cents: -1} }},
		{"unknown period", func(b *Budget) { b.Period = "yearly" }},
		{"empty name", func(b *Budget) { b.Name = "" }},
		{"empty category filter", func(b *Budget) { b.Category = &empty }},
		{"missing family", func(b *Budget) { b.FamilyID = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := good
			tt.mutate(&b)
			if err := b.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestPeriodContains(t *testing.T) {
	p := Period{Start: NewDate(2025, 3, 1), End: NewDate(2025, 4, 1)}
	if !p.Contains(NewDate(2025, 3, 1)) {
		t.Errorf("start must be inclusive")
	}
	if !p.Contains(NewDate(2025, 3, 31)) {
		t.Errorf("last day must be inside")
	}
	if p.Contains(NewDate(2025, 4, 1)) {
		t.Errorf("end must be exclusive")
	}
	if p.Contains(NewDate(2025, 2, 28)) {
		t.Errorf("day before start must be outside")
	}
}

func TestThresholdClassRoundTrip(t *testing.T) {
	for _, c := range []ThresholdClass{ThresholdNone, ThresholdWarning, ThresholdExceeded} {
		got, err := ParseThresholdClass(c.String())
		if err != nil || got != c {
			t.Fatalf("ParseThresholdClass(%q) = %v, %v", c.String(), got, err)
		}
	}
	if _, err := ParseThresholdClass("critical"); err == nil {
		t.Fatalf("expected error for unknown class")
	}
}

func TestDedupKey(t *testing.T) {
	got := DedupKey(42, NewDate(2025, 3, 1), ThresholdExceeded)
	if got != "42:2025-03-01:exceeded" {
		t.Fatalf("DedupKey = %q", got)
	}
}
