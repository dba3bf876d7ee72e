package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"familybudget/internal/core"
)

func (r expenseRequest) toExpense() (core.Expense, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := parseOptionalDate("date", r.Date)
	if err != nil {
		return core.Expense{}, err
	}
	return core.Expense{
		Amount:        amount,
		Currency:      r.Currency,
		Date:          date,
		Description:   r.Description,
		Merchant:      r.Merchant,
		PaymentMethod: core.PaymentMethod(r.PaymentMethod),
		Category:      r.Category,
		Beneficiary:   core.Beneficiary(r.Beneficiary),
		Tags:          r.Tags,
	}, nil
}

func (r expenseUpdateRequest) toUpdate() (core.ExpenseUpdate, error) {
	u := core.ExpenseUpdate{
		Currency:    r.Currency,
		Description: r.Description,
		Merchant:    r.Merchant,
		Category:    r.Category,
		Tags:        r.Tags,
	}
	if r.Amount != nil {
		amount, err := parseAmount("amount", *r.Amount)
		if err != nil {
			return u, err
		}
		u.Amount = &amount
	}
	if r.Date != nil {
		date, err := core.ParseDate(*r.Date)
		if err != nil {
			return u, badRequest("date: %v", err)
		}
		u.Date = &date
	}
	if r.PaymentMethod != nil {
		pm := core.PaymentMethod(*r.PaymentMethod)
		u.PaymentMethod = &pm
	}
	if r.Beneficiary != nil {
		ben := core.Beneficiary(strings.TrimSpace(*r.Beneficiary))
		u.Beneficiary = &ben
	}
	return u, nil
}

// expenseFilter reads listing filters from the query string.
func expenseFilter(q url.Values) (core.ExpenseFilter, error) {
	var f core.ExpenseFilter
	var err error
	if f.StartDate, err = parseOptionalDate("start_date", q.Get("start_date")); err != nil {
		return f, err
	}
	if f.EndDate, err = parseOptionalDate("end_date", q.Get("end_date")); err != nil {
		return f, err
	}
	f.Category = strings.TrimSpace(q.Get("category"))
	f.Beneficiary = core.Beneficiary(strings.TrimSpace(q.Get("beneficiary")))
	f.Payment = core.PaymentMethod(strings.TrimSpace(q.Get("payment_method")))
	f.Search = strings.TrimSpace(q.Get("q"))

	for _, bound := range []struct {
		name string
		dst  *int64
	}{{"min_amount", &f.MinCents}, {"max_amount", &f.MaxCents}} {
		raw := q.Get(bound.name)
		if raw == "" {
			continue
		}
		cents, err := core.ParseDecimalToCents(raw)
		if err != nil {
			return f, badRequest("%s: %v", bound.name, err)
		}
		*bound.dst = cents
	}

	if f.Page, err = optionalInt(q, "page"); err != nil {
		return f, err
	}
	if f.PageSize, err = optionalInt(q, "page_size"); err != nil {
		return f, err
	}
	return f, nil
}

func optionalInt(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	f, err := expenseFilter(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	page, err := s.deps.Expenses.ListExpenses(r.Context(), familyID(r.Context()), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	resp := expensePageResponse{
		Expenses: make([]expenseResponse, 0, len(page.Expenses)),
		Total:    page.Total,
		Page:     page.Page,
		PageSize: page.PageSize,
		HasMore:  page.HasMore,
	}
	for _, e := range page.Expenses {
		resp.Expenses = append(resp.Expenses, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	e, err := req.toExpense()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	e.FamilyID = familyID(r.Context())
	e.CreatedBy = userID(r.Context())

	created, err := s.deps.Expenses.CreateExpense(r.Context(), e)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	e, err := s.deps.Expenses.GetExpense(r.Context(), familyID(r.Context()), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(e))
}

// handleUpdateExpense applies a partial update; omitted fields are kept.
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req expenseUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.deps.Expenses.UpdateExpense(r.Context(), familyID(r.Context()), id, u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Expenses.DeleteExpense(r.Context(), familyID(r.Context()), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpenseSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseOptionalDate("start_date", q.Get("start_date"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	end, err := parseOptionalDate("end_date", q.Get("end_date"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	summary, err := s.deps.Expenses.Summary(r.Context(), familyID(r.Context()), start, end)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}
