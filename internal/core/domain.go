package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Weekly  PeriodKind = "weekly"
	Monthly PeriodKind = "monthly"
)

// WholeFamily is the beneficiary sentinel for expenses and budgets that
// belong to the family as a whole rather than to one member.
const WholeFamily Beneficiary = "family"

const (
	PaymentCash         PaymentMethod = "cash"
	PaymentCredit       PaymentMethod = "credit"
	PaymentDebit        PaymentMethod = "debit"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentPaypal       PaymentMethod = "paypal"
	PaymentVenmo        PaymentMethod = "venmo"
	PaymentOther        PaymentMethod = "other"
)

type (
	PeriodKind    string
	Beneficiary   string
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Expense struct {
		ID            int64
		FamilyID      string
		Amount        Money
		Currency      string
		Date          Date
		Description   string
		Merchant      string
		PaymentMethod PaymentMethod
		Category      string
		Beneficiary   Beneficiary
		Tags          []string
		CreatedBy     string
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}

	Budget struct {
		ID       int64
		FamilyID string
		Name     string
		Amount   Money
		Period   PeriodKind
		// Category is nil when the budget tracks every category.
		Category *string
		// Beneficiary is nil when the budget tracks every beneficiary.
		Beneficiary *Beneficiary
		StartDate   Date
		CreatedBy   string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}
)

var (
	ErrInvalidDay         = errors.New("invalid day")
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyBeneficiary   = errors.New("empty beneficiary")
	ErrEmptyFamily        = errors.New("empty family id")
	ErrEmptyName          = errors.New("empty budget name")
	ErrInvalidPeriodKind  = errors.New("invalid period kind")
	ErrInvalidCurrency    = errors.New("invalid currency")
	ErrInvalidPayment     = errors.New("invalid payment method")
	ErrDescriptionTooLong = errors.New("description too long (max 500 characters)")
)

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf returns the calendar date t falls on in its own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (k PeriodKind) IsValid() bool {
	switch k {
	case Weekly, Monthly:
		return true
	default:
		return false
	}
}

func (b Beneficiary) IsWholeFamily() bool {
	return b == WholeFamily
}

func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentCash, PaymentCredit, PaymentDebit, PaymentBankTransfer, PaymentPaypal, PaymentVenmo, PaymentOther:
		return true
	default:
		return false
	}
}

func (e Expense) Validate() error {
	if strings.TrimSpace(e.FamilyID) == "" {
		return ErrEmptyFamily
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Currency) != 3 {
		return ErrInvalidCurrency
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(e.Description) > 500 {
		return ErrDescriptionTooLong
	}
	if len(e.Merchant) > 200 {
		return errors.New("merchant too long (max 200 characters)")
	}
	if !e.PaymentMethod.IsValid() {
		return ErrInvalidPayment
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(string(e.Beneficiary)) == "" {
		return ErrEmptyBeneficiary
	}
	return nil
}

// Validate enforces the creation-time invariants the evaluation core relies on.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.FamilyID) == "" {
		return ErrEmptyFamily
	}
	name := strings.TrimSpace(b.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > 100 {
		return errors.New("budget name too long (max 100 characters)")
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriodKind
	}
	if err := b.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if b.Category != nil && strings.TrimSpace(*b.Category) == "" {
		return ErrEmptyCategory
	}
	if b.Beneficiary != nil && strings.TrimSpace(string(*b.Beneficiary)) == "" {
		return ErrEmptyBeneficiary
	}
	return nil
}

// CategoryFilter returns the category filter and whether one is set.
func (b Budget) CategoryFilter() (string, bool) {
	if b.Category == nil {
		return "", false
	}
	return *b.Category, true
}

// BeneficiaryFilter returns the beneficiary filter and whether one is set.
func (b Budget) BeneficiaryFilter() (Beneficiary, bool) {
	if b.Beneficiary == nil {
		return "", false
	}
	return *b.Beneficiary, true
}
