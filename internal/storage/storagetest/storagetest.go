// Package storagetest holds the behaviour every storage.Repository backend must share.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"familybudget/internal/core"
	"familybudget/internal/storage"
)

// Factory returns a fresh, empty repository.
type Factory func(t *testing.T) storage.Repository

// Run exercises a repository implementation.
func Run(t *testing.T, newRepo Factory) {
	t.Run("ExpenseCRUD", func(t *testing.T) { testExpenseCRUD(t, newRepo(t)) })
	t.Run("ListExpenses", func(t *testing.T) { testListExpenses(t, newRepo(t)) })
	t.Run("ExpensesBetween", func(t *testing.T) { testExpensesBetween(t, newRepo(t)) })
	t.Run("BudgetCRUD", func(t *testing.T) { testBudgetCRUD(t, newRepo(t)) })
	t.Run("Members", func(t *testing.T) { testMembers(t, newRepo(t)) })
	t.Run("RecordAlert", func(t *testing.T) { testRecordAlert(t, newRepo(t)) })
	t.Run("RecordAlertConcurrent", func(t *testing.T) { testRecordAlertConcurrent(t, newRepo(t)) })
	t.Run("Notifications", func(t *testing.T) { testNotifications(t, newRepo(t)) })
}

func Expense(family string, cents int64, date core.Date, category string) core.Expense {
	return core.Expense{
		FamilyID:      family,
		Amount:        core.Money{Cents: cents},
		Currency:      "USD",
		Date:          date,
		Description:   "Groceries run",
		Merchant:      "Corner Market",
		PaymentMethod: core.PaymentDebit,
		Category:      category,
		Beneficiary:   core.WholeFamily,
		Tags:          []string{"weekly"},
		CreatedBy:     "alice",
	}
}

func Budget(family, name string, cents int64, category *string) core.Budget {
	return core.Budget{
		FamilyID:  family,
		Name:      name,
		Amount:    core.Money{Cents: cents},
		Period:    core.Monthly,
		Category:  category,
		StartDate: core.NewDate(2025, 1, 1),
		CreatedBy: "alice",
	}
}

func testExpenseCRUD(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	created, err := repo.CreateExpense(ctx, Expense("fam-a", 1250, core.NewDate(2025, 3, 4), "groceries"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == 0 || created.CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamps, got %+v", created)
	}

	got, err := repo.GetExpense(ctx, "fam-a", created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount.Cents != 1250 || got.Date.String() != "2025-03-04" || len(got.Tags) != 1 {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	if _, err := repo.GetExpense(ctx, "fam-b", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("other family must not see the expense, got %v", err)
	}

	got.Amount = core.Money{Cents: 9900}
	got.Category = "dining"
	updated, err := repo.UpdateExpense(ctx, got)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 9900 || updated.Category != "dining" {
		t.Fatalf("update not applied: %+v", updated)
	}

	if err := repo.DeleteExpense(ctx, "fam-b", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("cross-family delete must be not found, got %v", err)
	}
	if err := repo.DeleteExpense(ctx, "fam-a", created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetExpense(ctx, "fam-a", created.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func testListExpenses(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for day := 1; day <= 5; day++ {
		if _, err := repo.CreateExpense(ctx, Expense("fam-a", int64(day*100), core.NewDate(2025, 3, day), "groceries")); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := repo.CreateExpense(ctx, Expense("fam-a", 700, core.NewDate(2025, 3, 6), "transport")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateExpense(ctx, Expense("fam-b", 700, core.NewDate(2025, 3, 6), "groceries")); err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := repo.ListExpenses(ctx, "fam-a", core.ExpenseFilter{Category: "groceries", PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 5 || len(page.Expenses) != 2 || !page.HasMore {
		t.Fatalf("unexpected first page: total=%d len=%d more=%v", page.Total, len(page.Expenses), page.HasMore)
	}
	if page.Expenses[0].Date.String() != "2025-03-05" {
		t.Fatalf("expected newest first, got %s", page.Expenses[0].Date)
	}

	last, err := repo.ListExpenses(ctx, "fam-a", core.ExpenseFilter{Category: "groceries", PageSize: 2, Page: 3})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(last.Expenses) != 1 || last.HasMore {
		t.Fatalf("unexpected last page: len=%d more=%v", len(last.Expenses), last.HasMore)
	}

	far, err := repo.ListExpenses(ctx, "fam-a", core.ExpenseFilter{Category: "groceries", PageSize: 20, Page: 1 << 62})
	if err != nil {
		t.Fatalf("list far page: %v", err)
	}
	if len(far.Expenses) != 0 || far.HasMore || far.Total != 5 || far.Page != core.MaxPage {
		t.Fatalf("unexpected far page: page=%d total=%d len=%d more=%v", far.Page, far.Total, len(far.Expenses), far.HasMore)
	}

	ranged, err := repo.ListExpenses(ctx, "fam-a", core.ExpenseFilter{
		StartDate: core.NewDate(2025, 3, 2),
		EndDate:   core.NewDate(2025, 3, 4),
		MinCents:  300,
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if ranged.Total != 2 {
		t.Fatalf("expected 2 expenses in inclusive range with min 300, got %d", ranged.Total)
	}
}

func testExpensesBetween(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	dates := []core.Date{core.NewDate(2025, 2, 28), core.NewDate(2025, 3, 1), core.NewDate(2025, 3, 31), core.NewDate(2025, 4, 1)}
	for _, d := range dates {
		if _, err := repo.CreateExpense(ctx, Expense("fam-a", 100, d, "groceries")); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	got, err := repo.ExpensesBetween(ctx, "fam-a", core.NewDate(2025, 3, 1), core.NewDate(2025, 4, 1))
	if err != nil {
		t.Fatalf("between: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected start-inclusive end-exclusive window to hold 2 expenses, got %d", len(got))
	}
}

func testBudgetCRUD(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	groceries := "groceries"
	first, err := repo.CreateBudget(ctx, Budget("fam-a", "Groceries", 50000, &groceries))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := repo.CreateBudget(ctx, Budget("fam-a", "Everything", 200000, nil))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := repo.CreateBudget(ctx, Budget("fam-b", "Other", 100, nil)); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := repo.ListBudgets(ctx, "fam-a")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != first.ID || list[1].ID != second.ID {
		t.Fatalf("expected creation order, got %+v", list)
	}
	if c, ok := list[0].CategoryFilter(); !ok || c != "groceries" {
		t.Fatalf("category filter lost: %v %v", c, ok)
	}
	if _, ok := list[1].CategoryFilter(); ok {
		t.Fatal("nil category must stay nil")
	}

	second.Amount = core.Money{Cents: 150000}
	updated, err := repo.UpdateBudget(ctx, second)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount.Cents != 150000 {
		t.Fatalf("update not applied: %+v", updated)
	}

	families, err := repo.ListFamilies(ctx)
	if err != nil {
		t.Fatalf("families: %v", err)
	}
	if len(families) != 2 || families[0] != "fam-a" || families[1] != "fam-b" {
		t.Fatalf("unexpected families %v", families)
	}

	if err := repo.DeleteBudget(ctx, "fam-a", first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetBudget(ctx, "fam-a", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func testMembers(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for _, u := range []string{"bob", "alice", "bob"} {
		if err := repo.AddMember(ctx, "fam-a", u); err != nil {
			t.Fatalf("add member: %v", err)
		}
	}
	members, err := repo.ListMembers(ctx, "fam-a")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("unexpected members %v", members)
	}
}

func intent(budgetID int64, class core.ThresholdClass) core.NotificationIntent {
	start := core.NewDate(2025, 3, 1)
	return core.NotificationIntent{
		FamilyID:    "fam-a",
		BudgetID:    budgetID,
		BudgetName:  "Groceries",
		PeriodStart: start,
		Class:       class,
		Type:        class.NotificationType(),
		DedupKey:    core.DedupKey(budgetID, start, class),
		Title:       "Budget " + class.String(),
		Message:     "message",
	}
}

func testRecordAlert(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	recipients := []string{"alice", "bob"}

	ok, err := repo.RecordAlert(ctx, intent(7, core.ThresholdWarning), recipients)
	if err != nil || !ok {
		t.Fatalf("first warning should be recorded: ok=%v err=%v", ok, err)
	}
	ok, err = repo.RecordAlert(ctx, intent(7, core.ThresholdWarning), recipients)
	if err != nil || ok {
		t.Fatalf("duplicate warning must be rejected: ok=%v err=%v", ok, err)
	}
	ok, err = repo.RecordAlert(ctx, intent(7, core.ThresholdExceeded), recipients)
	if err != nil || !ok {
		t.Fatalf("exceeded after warning should be recorded: ok=%v err=%v", ok, err)
	}

	// a late warning after exceeded is below the highest class and must be dropped
	ok, err = repo.RecordAlert(ctx, intent(8, core.ThresholdExceeded), recipients)
	if err != nil || !ok {
		t.Fatalf("exceeded for budget 8: ok=%v err=%v", ok, err)
	}
	ok, err = repo.RecordAlert(ctx, intent(8, core.ThresholdWarning), recipients)
	if err != nil || ok {
		t.Fatalf("warning after exceeded must be rejected: ok=%v err=%v", ok, err)
	}

	prior, err := repo.PriorAlerts(ctx, 7, core.NewDate(2025, 3, 1))
	if err != nil {
		t.Fatalf("prior: %v", err)
	}
	if len(prior) != 2 || prior[0] != core.ThresholdWarning || prior[1] != core.ThresholdExceeded {
		t.Fatalf("unexpected prior classes %v", prior)
	}
	if other, _ := repo.PriorAlerts(ctx, 7, core.NewDate(2025, 4, 1)); len(other) != 0 {
		t.Fatalf("next period must start clean, got %v", other)
	}

	count, err := repo.UnreadCount(ctx, "bob")
	if err != nil {
		t.Fatalf("unread: %v", err)
	}
	if count != 3 {
		t.Fatalf("bob should have 3 notifications, got %d", count)
	}
}

func testRecordAlertConcurrent(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	const writers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.RecordAlert(ctx, intent(9, core.ThresholdExceeded), []string{"alice"})
			if err != nil {
				t.Errorf("record: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 {
		t.Fatalf("expected exactly one writer to win, got %d", created)
	}
	if n, _ := repo.UnreadCount(ctx, "alice"); n != 1 {
		t.Fatalf("expected one notification, got %d", n)
	}
}

func testNotifications(t *testing.T, repo storage.Repository) {
	ctx := context.Background()
	for id := int64(1); id <= 3; id++ {
		if _, err := repo.RecordAlert(ctx, intent(id, core.ThresholdWarning), []string{"alice"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := repo.ListNotifications(ctx, "alice", false, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].BudgetID != 3 {
		t.Fatalf("expected newest first, got %+v", all)
	}

	if err := repo.MarkRead(ctx, "alice", all[0].ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := repo.MarkRead(ctx, "bob", all[1].ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("other users cannot mark alice's notifications, got %v", err)
	}

	unread, err := repo.ListNotifications(ctx, "alice", true, 10)
	if err != nil {
		t.Fatalf("list unread: %v", err)
	}
	if len(unread) != 2 {
		t.Fatalf("expected 2 unread, got %d", len(unread))
	}

	limited, _ := repo.ListNotifications(ctx, "alice", false, 1)
	if len(limited) != 1 {
		t.Fatalf("limit not applied, got %d", len(limited))
	}

	n, err := repo.MarkAllRead(ctx, "alice")
	if err != nil || n != 2 {
		t.Fatalf("mark all read: n=%d err=%v", n, err)
	}
	if c, _ := repo.UnreadCount(ctx, "alice"); c != 0 {
		t.Fatalf("expected no unread, got %d", c)
	}
}
