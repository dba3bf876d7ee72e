package http

import (
	"net/http"
	"strings"

	"familybudget/internal/core"
)

// toBudget converts the request. An empty category or beneficiary is the same
// as omitting it: the budget tracks everything on that axis.
func (r budgetRequest) toBudget() (core.Budget, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return core.Budget{}, err
	}
	start, err := parseOptionalDate("start_date", r.StartDate)
	if err != nil {
		return core.Budget{}, err
	}
	b := core.Budget{
		Name:      r.Name,
		Amount:    amount,
		Period:    core.PeriodKind(strings.ToLower(strings.TrimSpace(r.Period))),
		StartDate: start,
	}
	if r.Category != nil {
		if c := strings.TrimSpace(*r.Category); c != "" {
			b.Category = &c
		}
	}
	if r.Beneficiary != nil {
		if v := strings.TrimSpace(*r.Beneficiary); v != "" {
			ben := core.Beneficiary(v)
			b.Beneficiary = &ben
		}
	}
	return b, nil
}

func (r budgetUpdateRequest) toUpdate() (core.BudgetUpdate, error) {
	var u core.BudgetUpdate
	u.Name = r.Name
	if r.Amount != nil {
		amount, err := parseAmount("amount", *r.Amount)
		if err != nil {
			return u, err
		}
		u.Amount = &amount
	}
	if r.Period != nil {
		kind := core.PeriodKind(strings.ToLower(strings.TrimSpace(*r.Period)))
		u.Period = &kind
	}
	if r.Category != nil {
		c := strings.TrimSpace(*r.Category)
		u.Category = &c
	}
	if r.Beneficiary != nil {
		ben := core.Beneficiary(strings.TrimSpace(*r.Beneficiary))
		u.Beneficiary = &ben
	}
	if r.StartDate != nil {
		start, err := core.ParseDate(*r.StartDate)
		if err != nil {
			return u, badRequest("start_date: %v", err)
		}
		u.StartDate = &start
	}
	return u, nil
}

// handleListBudgets returns every budget with its current status. Budgets that
// could not be evaluated are listed under errors instead.
func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	statuses, failures, err := s.deps.Budgets.ListStatuses(r.Context(), familyID(r.Context()), s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := budgetListResponse{
		Budgets: make([]statusResponse, 0, len(statuses)),
		Errors:  toBudgetErrors(failures),
	}
	for _, st := range statuses {
		resp.Budgets = append(resp.Budgets, toStatusResponse(st))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := req.toBudget()
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	b.FamilyID = familyID(r.Context())
	b.CreatedBy = userID(r.Context())

	created, err := s.deps.Budgets.CreateBudget(r.Context(), b, s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.deps.Budgets.GetBudget(r.Context(), familyID(r.Context()), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

// handleUpdateBudget applies a partial update; omitted fields are kept.
func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req budgetUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	u, err := req.toUpdate()
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.deps.Budgets.UpdateBudget(r.Context(), familyID(r.Context()), id, u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.deps.Budgets.DeleteBudget(r.Context(), familyID(r.Context()), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	status, err := s.deps.Budgets.GetStatus(r.Context(), familyID(r.Context()), id, s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

// handleCheckAlerts runs alert evaluation for the caller's family on demand.
func (s *Server) handleCheckAlerts(w http.ResponseWriter, r *http.Request) {
	report, err := s.deps.Budgets.EvaluateAndRaiseAlerts(r.Context(), familyID(r.Context()), s.now())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	resp := alertCheckResponse{
		Evaluated: len(report.Statuses),
		Raised:    make([]alertResponse, 0, len(report.Raised)),
		Errors:    toBudgetErrors(report.Errors),
	}
	for _, intent := range report.Raised {
		resp.Raised = append(resp.Raised, toAlertResponse(intent))
	}
	writeJSON(w, http.StatusOK, resp)
}
