package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/services"
	"familybudget/internal/storage/memory"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, requestsPerMinute int, ready Pinger) *Server {
	t.Helper()
	repo := memory.New()
	budgets := services.NewBudgetService(repo, services.BudgetServiceConfig{}, nil)
	s := NewServer(":0", Deps{
		Expenses:      services.NewExpenseService(repo, budgets, nil, nil),
		Budgets:       budgets,
		Notifications: services.NewNotificationService(repo, nil),
		Ready:         ready,
	}, requestsPerMinute, nil)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func do(t *testing.T, s *Server, method, path, family, user string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if family != "" {
		req.Header.Set(headerFamilyID, family)
	}
	if user != "" {
		req.Header.Set(headerUserID, user)
	}
	rec := httptest.NewRecorder()
	s.Handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func today() string {
	return core.DateOf(time.Now().UTC()).String()
}

func TestHealthAndReadiness(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		ready  Pinger
		status int
	}{
		{"health", "/healthz", nil, http.StatusOK},
		{"ready without pinger", "/readyz", nil, http.StatusOK},
		{"ready", "/readyz", stubPinger{}, http.StatusOK},
		{"not ready", "/readyz", stubPinger{err: errors.New("database is locked")}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, 100, tt.ready)
			rec := do(t, s, http.MethodGet, tt.path, "", "", nil)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
			}
		})
	}
}

func TestRequiresIdentity(t *testing.T) {
	s := newTestServer(t, 100, nil)
	tests := []struct {
		name, family, user string
	}{
		{"no headers", "", ""},
		{"family only", "fam-1", ""},
		{"user only", "", "alice"},
		{"blank family", "  ", "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, "/budgets", tt.family, tt.user, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t, 100, nil)
	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown expense", http.MethodGet, "/expenses/42", nil, http.StatusNotFound},
		{"unknown budget status", http.MethodGet, "/budgets/42/status", nil, http.StatusNotFound},
		{"bad id", http.MethodGet, "/expenses/abc", nil, http.StatusBadRequest},
		{"malformed json", http.MethodPost, "/expenses", "{not json", http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/budgets", `{"name":"x","amount":"1","period":"monthly","color":"red"}`, http.StatusBadRequest},
		{"bad amount", http.MethodPost, "/expenses", expenseRequest{Amount: "ten", Date: today(), Description: "x", Category: "food"}, http.StatusUnprocessableEntity},
		{"missing description", http.MethodPost, "/expenses", expenseRequest{Amount: "10", Date: today(), Category: "food"}, http.StatusUnprocessableEntity},
		{"bad period", http.MethodPost, "/budgets", budgetRequest{Name: "Food", Amount: "100", Period: "yearly"}, http.StatusUnprocessableEntity},
		{"bad date", http.MethodGet, "/expenses?start_date=2025-13-01", nil, http.StatusBadRequest},
		{"inverted range", http.MethodGet, "/expenses?start_date=2025-03-10&end_date=2025-03-01", nil, http.StatusUnprocessableEntity},
		{"limit out of range", http.MethodGet, "/notifications?limit=500", nil, http.StatusUnprocessableEntity},
		{"unknown notification", http.MethodPut, "/notifications/7/read", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.path, "fam-1", "alice", tt.body)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
		})
	}
}

func TestExpenseLifecycle(t *testing.T) {
	s := newTestServer(t, 100, nil)

	rec := do(t, s, http.MethodPost, "/expenses", "fam-1", "alice", expenseRequest{
		Amount: "12,50", Date: today(), Description: "Bread", Category: "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decode[expenseResponse](t, rec)
	if created.AmountCents != 1250 || created.Amount != "12.50" {
		t.Errorf("amount = %s (%d cents), want 12.50", created.Amount, created.AmountCents)
	}
	if created.Currency != services.DefaultCurrency || created.Beneficiary != string(core.WholeFamily) || created.CreatedBy != "alice" {
		t.Errorf("defaults not applied: %+v", created)
	}
	path := "/expenses/" + strconv.FormatInt(created.ID, 10)

	if rec := do(t, s, http.MethodGet, path, "fam-2", "mallory", nil); rec.Code != http.StatusNotFound {
		t.Errorf("other family get status = %d, want 404", rec.Code)
	}

	rec = do(t, s, http.MethodPut, path, "fam-1", "bob", map[string]any{
		"amount": "20", "description": "Bread and milk",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	if updated := decode[expenseResponse](t, rec); updated.AmountCents != 2000 || updated.CreatedBy != "alice" {
		t.Errorf("updated = %+v, want 2000 cents created by alice", updated)
	}

	rec = do(t, s, http.MethodGet, "/expenses?category=groceries", "fam-1", "alice", nil)
	page := decode[expensePageResponse](t, rec)
	if page.Total != 1 || len(page.Expenses) != 1 {
		t.Errorf("list total = %d, len = %d, want 1", page.Total, len(page.Expenses))
	}

	rec = do(t, s, http.MethodGet, "/expenses/summary", "fam-1", "alice", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	if sum := decode[summaryResponse](t, rec); sum.Total != "20.00" || sum.ByCategory["groceries"] != "20.00" {
		t.Errorf("summary = %+v", sum)
	}

	if rec := do(t, s, http.MethodDelete, path, "fam-1", "alice", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, path, "fam-1", "alice", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestExpenseRaisesAlertOnce(t *testing.T) {
	s := newTestServer(t, 100, nil)

	rec := do(t, s, http.MethodPost, "/budgets", "fam-1", "alice", map[string]any{
		"name": "Groceries", "amount": "100.00", "period": "monthly", "category": "groceries",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget status = %d, body %s", rec.Code, rec.Body.String())
	}
	b := decode[budgetResponse](t, rec)
	if b.StartDate == "" || b.Category == nil || *b.Category != "groceries" || b.Beneficiary != nil {
		t.Fatalf("budget = %+v", b)
	}

	for _, amount := range []string{"50", "35"} {
		rec := do(t, s, http.MethodPost, "/expenses", "fam-1", "bob", expenseRequest{
			Amount: amount, Date: today(), Description: "Market", Category: "groceries",
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("create expense status = %d, body %s", rec.Code, rec.Body.String())
		}
	}

	rec = do(t, s, http.MethodGet, "/budgets/"+strconv.FormatInt(b.ID, 10)+"/status", "fam-1", "alice", nil)
	status := decode[statusResponse](t, rec)
	if status.SpentCents != 8500 || status.Remaining != "15.00" || status.PercentageUsed != "85.00" || status.IsOverBudget {
		t.Errorf("status = %+v", status)
	}

	for _, user := range []string{"alice", "bob"} {
		rec := do(t, s, http.MethodGet, "/notifications", "fam-1", user, nil)
		list := decode[[]notificationResponse](t, rec)
		if len(list) != 1 || list[0].Type != string(core.NotificationBudgetWarning) || list[0].BudgetID != b.ID {
			t.Errorf("%s notifications = %+v, want one warning", user, list)
		}
	}

	// Re-checking without new spend raises nothing.
	rec = do(t, s, http.MethodPost, "/budgets/alerts/check", "fam-1", "alice", nil)
	check := decode[alertCheckResponse](t, rec)
	if check.Evaluated != 1 || len(check.Raised) != 0 || len(check.Errors) != 0 {
		t.Errorf("check = %+v, want 1 evaluated and nothing raised", check)
	}

	rec = do(t, s, http.MethodGet, "/budgets", "fam-1", "alice", nil)
	if list := decode[budgetListResponse](t, rec); len(list.Budgets) != 1 || list.Budgets[0].SpentCents != 8500 {
		t.Errorf("budget list = %+v", list)
	}
}

func TestNotificationReadFlow(t *testing.T) {
	s := newTestServer(t, 100, nil)

	do(t, s, http.MethodPost, "/budgets", "fam-1", "alice", budgetRequest{Name: "All", Amount: "10", Period: "weekly"})
	do(t, s, http.MethodPost, "/expenses", "fam-1", "alice", expenseRequest{
		Amount: "25", Date: today(), Description: "Dinner", Category: "restaurants",
	})

	rec := do(t, s, http.MethodGet, "/notifications/unread-count", "fam-1", "alice", nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 1 {
		t.Fatalf("unread count = %d, want 1", got)
	}

	rec = do(t, s, http.MethodGet, "/notifications?unread=true&limit=5", "fam-1", "alice", nil)
	list := decode[[]notificationResponse](t, rec)
	if len(list) != 1 || list[0].Type != string(core.NotificationBudgetExceeded) {
		t.Fatalf("notifications = %+v, want one exceeded alert", list)
	}

	if rec := do(t, s, http.MethodPut, "/notifications/"+strconv.FormatInt(list[0].ID, 10)+"/read", "fam-1", "bob", nil); rec.Code != http.StatusNotFound {
		t.Errorf("mark other member's notification status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodPut, "/notifications/"+strconv.FormatInt(list[0].ID, 10)+"/read", "fam-1", "alice", nil); rec.Code != http.StatusNoContent {
		t.Errorf("mark read status = %d, want 204", rec.Code)
	}

	rec = do(t, s, http.MethodPut, "/notifications/read-all", "fam-1", "alice", nil)
	if got := decode[map[string]int](t, rec)["marked"]; got != 0 {
		t.Errorf("read-all marked = %d, want 0", got)
	}
	rec = do(t, s, http.MethodGet, "/notifications/unread-count", "fam-1", "alice", nil)
	if got := decode[map[string]int](t, rec)["count"]; got != 0 {
		t.Errorf("unread count after read = %d, want 0", got)
	}
}

func TestBudgetUpdateAndDelete(t *testing.T) {
	s := newTestServer(t, 100, nil)

	rec := do(t, s, http.MethodPost, "/budgets", "fam-1", "alice", budgetRequest{
		Name: "Kids", Amount: "200", Period: "Monthly", StartDate: "2025-01-01", Beneficiary: strPtr("kid-1"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	b := decode[budgetResponse](t, rec)
	path := "/budgets/" + strconv.FormatInt(b.ID, 10)

	rec = do(t, s, http.MethodPut, path, "fam-1", "bob", map[string]any{"amount": "300"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	updated := decode[budgetResponse](t, rec)
	if updated.AmountCents != 30000 || updated.StartDate != "2025-01-01" || updated.CreatedBy != "alice" ||
		updated.Beneficiary == nil || *updated.Beneficiary != "kid-1" || updated.Period != "monthly" {
		t.Errorf("updated = %+v", updated)
	}

	if rec := do(t, s, http.MethodDelete, path, "fam-2", "mallory", nil); rec.Code != http.StatusNotFound {
		t.Errorf("other family delete status = %d, want 404", rec.Code)
	}
	if rec := do(t, s, http.MethodDelete, path, "fam-1", "alice", nil); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, path, "fam-1", "alice", nil); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestUpdateKeepsOmittedFields(t *testing.T) {
	s := newTestServer(t, 100, nil)

	rec := do(t, s, http.MethodPost, "/expenses", "fam-1", "alice", expenseRequest{
		Amount: "30", Date: today(), Description: "Swim lessons", Category: "sports",
		Beneficiary: "alice", PaymentMethod: "cash", Tags: []string{"kids"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d, body %s", rec.Code, rec.Body.String())
	}
	e := decode[expenseResponse](t, rec)
	rec = do(t, s, http.MethodPost, "/budgets", "fam-1", "alice", budgetRequest{
		Name: "Food", Amount: "100", Period: "monthly", Category: strPtr("groceries"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create budget status = %d, body %s", rec.Code, rec.Body.String())
	}
	b := decode[budgetResponse](t, rec)
	expensePath := "/expenses/" + strconv.FormatInt(e.ID, 10)
	budgetPath := "/budgets/" + strconv.FormatInt(b.ID, 10)

	cases := []struct {
		name  string
		path  string
		body  any
		check func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{"expense amount only", expensePath, map[string]any{"amount": "35"}, func(t *testing.T, rec *httptest.ResponseRecorder) {
			got := decode[expenseResponse](t, rec)
			if got.AmountCents != 3500 || got.Beneficiary != "alice" || got.Category != "sports" ||
				got.PaymentMethod != "cash" || len(got.Tags) != 1 || got.Date != e.Date {
				t.Errorf("expense = %+v, want omitted fields kept", got)
			}
		}},
		{"expense null beneficiary", expensePath, `{"beneficiary":null,"merchant":"Pool"}`, func(t *testing.T, rec *httptest.ResponseRecorder) {
			got := decode[expenseResponse](t, rec)
			if got.Beneficiary != "alice" || got.Merchant != "Pool" {
				t.Errorf("expense = %+v, want beneficiary alice and merchant Pool", got)
			}
		}},
		{"budget amount only", budgetPath, map[string]any{"amount": "150"}, func(t *testing.T, rec *httptest.ResponseRecorder) {
			got := decode[budgetResponse](t, rec)
			if got.AmountCents != 15000 || got.Category == nil || *got.Category != "groceries" || got.Name != "Food" {
				t.Errorf("budget = %+v, want category groceries kept", got)
			}
		}},
		{"budget empty category clears", budgetPath, map[string]any{"category": ""}, func(t *testing.T, rec *httptest.ResponseRecorder) {
			got := decode[budgetResponse](t, rec)
			if got.Category != nil || got.AmountCents != 15000 {
				t.Errorf("budget = %+v, want no category and amount kept", got)
			}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPut, tc.path, "fam-1", "bob", tc.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
			}
			tc.check(t, rec)
		})
	}
}

func TestRateLimitPerMember(t *testing.T) {
	s := newTestServer(t, 2, nil)
	check := "/budgets/alerts/check"

	for i := 0; i < 2; i++ {
		if rec := do(t, s, http.MethodPost, check, "fam-1", "alice", nil); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i, rec.Code)
		}
	}
	rec := do(t, s, http.MethodPost, check, "fam-1", "alice", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if rec := do(t, s, http.MethodGet, "/budgets", "fam-1", "alice", nil); rec.Code != http.StatusOK {
		t.Errorf("read request status = %d, want 200", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, check, "fam-1", "bob", nil); rec.Code != http.StatusOK {
		t.Errorf("other member status = %d, want 200", rec.Code)
	}
	if got := s.RateLimitMetrics().Rejected; got != 1 {
		t.Errorf("rejected = %d, want 1", got)
	}
}

func strPtr(s string) *string { return &s }
