package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"familybudget/internal/amqp"
	"familybudget/internal/core"
	"familybudget/internal/storage"
)

type fakePublisher struct{}

func (fakePublisher) PublishExpenseChanged(context.Context, *amqp.ExpenseChangedMessage) error {
	return nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	err  error
	msgs []*amqp.ExpenseChangedMessage
}

func (p *recordingPublisher) PublishExpenseChanged(_ context.Context, msg *amqp.ExpenseChangedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestCreateExpenseDefaults(t *testing.T) {
	f := newFixture(t, fakePublisher{})
	e, err := f.expenses.CreateExpense(context.Background(), core.Expense{
		FamilyID:    family,
		Amount:      core.Money{Cents: 1250},
		Date:        core.NewDate(2025, 3, 4),
		Description: "  Milk ",
		Category:    "groceries",
		Currency:    "eur",
		CreatedBy:   "bob",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}
	if e.Description != "Milk" || e.Currency != "EUR" || e.Beneficiary != core.WholeFamily || e.PaymentMethod != core.PaymentOther {
		t.Errorf("expense not normalized: %+v", e)
	}
	members, _ := f.repo.ListMembers(context.Background(), family)
	if len(members) != 1 || members[0] != "bob" {
		t.Errorf("members = %v, want [bob]", members)
	}
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name    string
		expense core.Expense
	}{
		{"no family", core.Expense{Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 3, 1), Description: "x", Category: "c"}},
		{"zero amount", core.Expense{FamilyID: family, Date: core.NewDate(2025, 3, 1), Description: "x", Category: "c"}},
		{"no date", core.Expense{FamilyID: family, Amount: core.Money{Cents: 1}, Description: "x", Category: "c"}},
		{"no category", core.Expense{FamilyID: family, Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 3, 1), Description: "x"}},
		{"bad payment", core.Expense{FamilyID: family, Amount: core.Money{Cents: 1}, Date: core.NewDate(2025, 3, 1), Description: "x", Category: "c", PaymentMethod: "barter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, fakePublisher{})
			if _, err := f.expenses.CreateExpense(context.Background(), tt.expense); !errors.Is(err, ErrValidation) {
				t.Errorf("error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestMutationsPublishChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	f := newFixture(t, pub)
	f.groceries(t)

	e := f.addExpense(t, 45000, core.NewDate(2025, 3, 3), "groceries")
	if _, err := f.expenses.UpdateExpense(ctx, family, e.ID, core.ExpenseUpdate{Amount: &core.Money{Cents: 46000}}); err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if err := f.expenses.DeleteExpense(ctx, family, e.ID); err != nil {
		t.Fatalf("DeleteExpense() error = %v", err)
	}

	want := []amqp.ChangeOp{amqp.OpCreated, amqp.OpUpdated, amqp.OpDeleted}
	if len(pub.msgs) != len(want) {
		t.Fatalf("published %d messages, want %d", len(pub.msgs), len(want))
	}
	for i, op := range want {
		if pub.msgs[i].Op != op || pub.msgs[i].FamilyID != family || pub.msgs[i].ExpenseID != e.ID {
			t.Errorf("message %d = %+v, want op %s", i, pub.msgs[i], op)
		}
	}
	// With a publisher the worker raises alerts, not the request.
	if got := f.notifications(t, "alice"); len(got) != 0 {
		t.Errorf("request path raised %d notifications", len(got))
	}
}

func TestUpdateExpenseKeepsOmittedFields(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakePublisher{})
	e, err := f.expenses.CreateExpense(ctx, core.Expense{
		FamilyID:      family,
		Amount:        core.Money{Cents: 3000},
		Currency:      "eur",
		Date:          core.NewDate(2025, 3, 3),
		Description:   "Swimming lesson",
		PaymentMethod: core.PaymentCash,
		Category:      "sports",
		Beneficiary:   "alice",
		CreatedBy:     "alice",
	})
	if err != nil {
		t.Fatalf("CreateExpense() error = %v", err)
	}

	updated, err := f.expenses.UpdateExpense(ctx, family, e.ID, core.ExpenseUpdate{Amount: &core.Money{Cents: 3500}})
	if err != nil {
		t.Fatalf("UpdateExpense() error = %v", err)
	}
	if updated.Amount.Cents != 3500 {
		t.Errorf("amount = %s, want 35.00", updated.Amount)
	}
	if updated.Beneficiary != "alice" || updated.Category != "sports" || updated.Currency != "EUR" || updated.PaymentMethod != core.PaymentCash {
		t.Errorf("omitted fields changed: %+v", updated)
	}

	empty := ""
	if _, err := f.expenses.UpdateExpense(ctx, family, e.ID, core.ExpenseUpdate{Description: &empty}); !errors.Is(err, ErrValidation) {
		t.Errorf("blank description error = %v, want ErrValidation", err)
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	f := newFixture(t, pub)
	e := f.addExpense(t, 1000, core.NewDate(2025, 3, 3), "groceries")

	got, err := f.expenses.GetExpense(context.Background(), family, e.ID)
	if err != nil {
		t.Fatalf("expense should be stored despite publish failure: %v", err)
	}
	if got.Amount.Cents != 1000 {
		t.Errorf("amount = %s", got.Amount)
	}
}

func TestExpenseCrossFamilyAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, fakePublisher{})
	e := f.addExpense(t, 1000, core.NewDate(2025, 3, 3), "groceries")

	if _, err := f.expenses.GetExpense(ctx, "other", e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("get error = %v, want ErrNotFound", err)
	}
	if err := f.expenses.DeleteExpense(ctx, "other", e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("delete error = %v, want ErrNotFound", err)
	}
	if _, err := f.expenses.UpdateExpense(ctx, "other", e.ID, core.ExpenseUpdate{Amount: &core.Money{Cents: 1}}); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("update error = %v, want ErrNotFound", err)
	}
}

func TestListExpensesRejectsInvertedRange(t *testing.T) {
	f := newFixture(t, fakePublisher{})
	_, err := f.expenses.ListExpenses(context.Background(), family, core.ExpenseFilter{
		StartDate: core.NewDate(2025, 3, 10),
		EndDate:   core.NewDate(2025, 3, 1),
	})
	if !errors.Is(err, ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestSummaryDefaultsToCurrentMonth(t *testing.T) {
	f := newFixture(t, fakePublisher{})
	f.addExpense(t, 1000, core.NewDate(2025, 2, 28), "groceries")
	f.addExpense(t, 2000, core.NewDate(2025, 3, 1), "groceries")
	f.addExpense(t, 3000, core.NewDate(2025, 3, 31), "dining")

	summary, err := f.expenses.Summary(context.Background(), family, core.Date{}, core.Date{})
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	if summary.PeriodStart.String() != "2025-03-01" || summary.PeriodEnd.String() != "2025-03-31" {
		t.Errorf("range = %s..%s", summary.PeriodStart, summary.PeriodEnd)
	}
	if summary.Total.Cents != 5000 || summary.ExpenseCount != 2 {
		t.Errorf("total = %s count = %d, want 50.00 and 2", summary.Total, summary.ExpenseCount)
	}
	if summary.ByCategory["dining"].Cents != 3000 {
		t.Errorf("dining = %s", summary.ByCategory["dining"])
	}
}
