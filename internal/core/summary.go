package core

import (
	"strings"
	"time"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
	// MaxPage keeps (Page-1)*PageSize far from int overflow.
	MaxPage         = 1_000_000
)

// ExpenseFilter narrows an expense listing. Zero values mean "no filter".
type ExpenseFilter struct {
	StartDate   Date
	EndDate     Date // inclusive
	Category    string
	Beneficiary Beneficiary
	Payment     PaymentMethod
	MinCents    int64
	MaxCents    int64
	Search      string
	Page        int
	PageSize    int
}

// ExpensePage is one page of a filtered expense listing.
type ExpensePage struct {
	Expenses []Expense
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// ExpenseSummary aggregates a family's expenses over an inclusive date range.
type ExpenseSummary struct {
	Total         Money
	ByCategory    map[string]Money
	ByBeneficiary map[Beneficiary]Money
	ByPayment     map[PaymentMethod]Money
	ExpenseCount  int
	PeriodStart   Date
	PeriodEnd     Date
	GeneratedAt   time.Time
}

// Normalized returns f with page defaults applied: page is clamped to
// [1, MaxPage] and the page size to [1, MaxPageSize].
func (f ExpenseFilter) Normalized() ExpenseFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		f.Page = MaxPage
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	return f
}

// Offset is the number of rows skipped before the current page. It is
// computed on the normalized filter, so it is never negative.
func (f ExpenseFilter) Offset() int {
	n := f.Normalized()
	return (n.Page - 1) * n.PageSize
}

// Match reports whether e passes every filter set on f.
// Search is a case-insensitive substring match on description and merchant.
func (f ExpenseFilter) Match(e Expense) bool {
	if !f.StartDate.IsEmpty() && e.Date.Before(f.StartDate.Time) {
		return false
	}
	if !f.EndDate.IsEmpty() && e.Date.After(f.EndDate.Time) {
		return false
	}
	if f.Category != "" && e.Category != f.Category {
		return false
	}
	if f.Beneficiary != "" && e.Beneficiary != f.Beneficiary {
		return false
	}
	if f.Payment != "" && e.PaymentMethod != f.Payment {
		return false
	}
	if f.MinCents > 0 && e.Amount.Cents < f.MinCents {
		return false
	}
	if f.MaxCents > 0 && e.Amount.Cents > f.MaxCents {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		if !strings.Contains(strings.ToLower(e.Description), q) &&
			!strings.Contains(strings.ToLower(e.Merchant), q) {
			return false
		}
	}
	return true
}

// Summarize totals expenses by category, beneficiary and payment method.
func Summarize(expenses []Expense, start, end Date, now time.Time) (ExpenseSummary, error) {
	s := ExpenseSummary{
		ByCategory:    make(map[string]Money),
		ByBeneficiary: make(map[Beneficiary]Money),
		ByPayment:     make(map[PaymentMethod]Money),
		PeriodStart:   start,
		PeriodEnd:     end,
		GeneratedAt:   now,
	}
	for _, e := range expenses {
		var err error
		if s.Total, err = s.Total.Add(e.Amount); err != nil {
			return ExpenseSummary{}, err
		}
		if s.ByCategory[e.Category], err = s.ByCategory[e.Category].Add(e.Amount); err != nil {
			return ExpenseSummary{}, err
		}
		if s.ByBeneficiary[e.Beneficiary], err = s.ByBeneficiary[e.Beneficiary].Add(e.Amount); err != nil {
			return ExpenseSummary{}, err
		}
		if s.ByPayment[e.PaymentMethod], err = s.ByPayment[e.PaymentMethod].Add(e.Amount); err != nil {
			return ExpenseSummary{}, err
		}
		s.ExpenseCount++
	}
	return s, nil
}
