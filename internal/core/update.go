package core

// ExpenseUpdate changes only the fields that are set; nil fields keep the
// stored value.
type ExpenseUpdate struct {
	Amount        *Money
	Currency      *string
	Date          *Date
	Description   *string
	Merchant      *string
	PaymentMethod *PaymentMethod
	Category      *string
	Beneficiary   *Beneficiary
	Tags          *[]string
}

// Apply returns e with the set fields of u replaced.
func (u ExpenseUpdate) Apply(e Expense) Expense {
	if u.Amount != nil {
		e.Amount = *u.Amount
	}
	if u.Currency != nil {
		e.Currency = *u.Currency
	}
	if u.Date != nil {
		e.Date = *u.Date
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.Merchant != nil {
		e.Merchant = *u.Merchant
	}
	if u.PaymentMethod != nil {
		e.PaymentMethod = *u.PaymentMethod
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.Beneficiary != nil {
		e.Beneficiary = *u.Beneficiary
	}
	if u.Tags != nil {
		e.Tags = append([]string(nil), (*u.Tags)...)
	}
	return e
}

// BudgetUpdate changes only the fields that are set. An empty Category or
// Beneficiary removes that filter, widening the budget to everything on
// that axis.
type BudgetUpdate struct {
	Name        *string
	Amount      *Money
	Period      *PeriodKind
	Category    *string
	Beneficiary *Beneficiary
	StartDate   *Date
}

// Apply returns b with the set fields of u replaced.
func (u BudgetUpdate) Apply(b Budget) Budget {
	if u.Name != nil {
		b.Name = *u.Name
	}
	if u.Amount != nil {
		b.Amount = *u.Amount
	}
	if u.Period != nil {
		b.Period = *u.Period
	}
	if u.Category != nil {
		if *u.Category == "" {
			b.Category = nil
		} else {
			c := *u.Category
			b.Category = &c
		}
	}
	if u.Beneficiary != nil {
		if *u.Beneficiary == "" {
			b.Beneficiary = nil
		} else {
			ben := *u.Beneficiary
			b.Beneficiary = &ben
		}
	}
	if u.StartDate != nil {
		b.StartDate = *u.StartDate
	}
	return b
}
