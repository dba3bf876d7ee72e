package http

import (
	"time"

	"familybudget/internal/core"
	"familybudget/internal/services"
)

// Request and response bodies. Amounts travel as decimal strings ("12.50")
// in requests and as both decimal strings and integer cents in responses.

type expenseRequest struct {
	Amount        string   `json:"amount"`
	Currency      string   `json:"currency"`
	Date          string   `json:"date"`
	Description   string   `json:"description"`
	Merchant      string   `json:"merchant"`
	PaymentMethod string   `json:"payment_method"`
	Category      string   `json:"category"`
	Beneficiary   string   `json:"beneficiary"`
	Tags          []string `json:"tags"`
}

// expenseUpdateRequest is a partial update: omitted or null fields keep
// their stored value.
type expenseUpdateRequest struct {
	Amount        *string   `json:"amount"`
	Currency      *string   `json:"currency"`
	Date          *string   `json:"date"`
	Description   *string   `json:"description"`
	Merchant      *string   `json:"merchant"`
	PaymentMethod *string   `json:"payment_method"`
	Category      *string   `json:"category"`
	Beneficiary   *string   `json:"beneficiary"`
	Tags          *[]string `json:"tags"`
}

type expenseResponse struct {
	ID            int64     `json:"id"`
	Amount        string    `json:"amount"`
	AmountCents   int64     `json:"amount_cents"`
	Currency      string    `json:"currency"`
	Date          string    `json:"date"`
	Description   string    `json:"description"`
	Merchant      string    `json:"merchant,omitempty"`
	PaymentMethod string    `json:"payment_method"`
	Category      string    `json:"category"`
	Beneficiary   string    `json:"beneficiary"`
	Tags          []string  `json:"tags"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type expensePageResponse struct {
	Expenses []expenseResponse `json:"expenses"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	HasMore  bool              `json:"has_more"`
}

type summaryResponse struct {
	Total         string            `json:"total"`
	ByCategory    map[string]string `json:"by_category"`
	ByBeneficiary map[string]string `json:"by_beneficiary"`
	ByPayment     map[string]string `json:"by_payment_method"`
	ExpenseCount  int               `json:"expense_count"`
	PeriodStart   string            `json:"period_start"`
	PeriodEnd     string            `json:"period_end"`
	GeneratedAt   time.Time         `json:"generated_at"`
}

type budgetRequest struct {
	Name        string  `json:"name"`
	Amount      string  `json:"amount"`
	Period      string  `json:"period"`
	Category    *string `json:"category"`
	Beneficiary *string `json:"beneficiary"`
	StartDate   string  `json:"start_date"`
}

// budgetUpdateRequest is a partial update. An empty category or beneficiary
// removes that filter; an omitted one keeps it.
type budgetUpdateRequest struct {
	Name        *string `json:"name"`
	Amount      *string `json:"amount"`
	Period      *string `json:"period"`
	Category    *string `json:"category"`
	Beneficiary *string `json:"beneficiary"`
	StartDate   *string `json:"start_date"`
}

type budgetResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	AmountCents int64     `json:"amount_cents"`
	Period      string    `json:"period"`
	Category    *string   `json:"category"`
	Beneficiary *string   `json:"beneficiary"`
	StartDate   string    `json:"start_date"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// statusResponse reports a budget's current period; period_end is exclusive.
type statusResponse struct {
	Budget         budgetResponse `json:"budget"`
	PeriodStart    string         `json:"period_start"`
	PeriodEnd      string         `json:"period_end"`
	Spent          string         `json:"spent"`
	SpentCents     int64          `json:"spent_cents"`
	Remaining      string         `json:"remaining"`
	RemainingCents int64          `json:"remaining_cents"`
	PercentageUsed string         `json:"percentage_used"`
	IsOverBudget   bool           `json:"is_over_budget"`
}

type budgetErrorResponse struct {
	BudgetID   int64  `json:"budget_id"`
	BudgetName string `json:"budget_name"`
	Error      string `json:"error"`
}

type budgetListResponse struct {
	Budgets []statusResponse      `json:"budgets"`
	Errors  []budgetErrorResponse `json:"errors"`
}

type alertResponse struct {
	BudgetID    int64  `json:"budget_id"`
	BudgetName  string `json:"budget_name"`
	PeriodStart string `json:"period_start"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
}

type alertCheckResponse struct {
	Evaluated int                   `json:"evaluated"`
	Raised    []alertResponse       `json:"raised"`
	Errors    []budgetErrorResponse `json:"errors"`
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	BudgetID  int64     `json:"budget_id"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	return expenseResponse{
		ID:            e.ID,
		Amount:        e.Amount.String(),
		AmountCents:   e.Amount.Cents,
		Currency:      e.Currency,
		Date:          e.Date.String(),
		Description:   e.Description,
		Merchant:      e.Merchant,
		PaymentMethod: string(e.PaymentMethod),
		Category:      e.Category,
		Beneficiary:   string(e.Beneficiary),
		Tags:          tags,
		CreatedBy:     e.CreatedBy,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func moneyMap[K ~string](in map[K]core.Money) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[string(k)] = v.String()
	}
	return out
}

func toSummaryResponse(s core.ExpenseSummary) summaryResponse {
	return summaryResponse{
		Total:         s.Total.String(),
		ByCategory:    moneyMap(s.ByCategory),
		ByBeneficiary: moneyMap(s.ByBeneficiary),
		ByPayment:     moneyMap(s.ByPayment),
		ExpenseCount:  s.ExpenseCount,
		PeriodStart:   s.PeriodStart.String(),
		PeriodEnd:     s.PeriodEnd.String(),
		GeneratedAt:   s.GeneratedAt,
	}
}

func toBudgetResponse(b core.Budget) budgetResponse {
	var beneficiary *string
	if ben, ok := b.BeneficiaryFilter(); ok {
		s := string(ben)
		beneficiary = &s
	}
	return budgetResponse{
		ID:          b.ID,
		Name:        b.Name,
		Amount:      b.Amount.String(),
		AmountCents: b.Amount.Cents,
		Period:      string(b.Period),
		Category:    b.Category,
		Beneficiary: beneficiary,
		StartDate:   b.StartDate.String(),
		CreatedBy:   b.CreatedBy,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func toStatusResponse(s core.BudgetStatus) statusResponse {
	return statusResponse{
		Budget:         toBudgetResponse(s.Budget),
		PeriodStart:    s.Period.Start.String(),
		PeriodEnd:      s.Period.End.String(),
		Spent:          s.Spent.String(),
		SpentCents:     s.Spent.Cents,
		Remaining:      s.Remaining.String(),
		RemainingCents: s.Remaining.Cents,
		PercentageUsed: s.PercentageUsed.StringFixed(2),
		IsOverBudget:   s.IsOverBudget,
	}
}

func toBudgetErrors(errs []services.BudgetError) []budgetErrorResponse {
	out := make([]budgetErrorResponse, 0, len(errs))
	for _, e := range errs {
		out = append(out, budgetErrorResponse{BudgetID: e.BudgetID, BudgetName: e.BudgetName, Error: "budget could not be evaluated"})
	}
	return out
}

func toAlertResponse(i core.NotificationIntent) alertResponse {
	return alertResponse{
		BudgetID:    i.BudgetID,
		BudgetName:  i.BudgetName,
		PeriodStart: i.PeriodStart.String(),
		Type:        string(i.Type),
		Title:       i.Title,
		Message:     i.Message,
	}
}

func toNotificationResponse(n core.Notification) notificationResponse {
	return notificationResponse{
		ID:        n.ID,
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		BudgetID:  n.BudgetID,
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
}
