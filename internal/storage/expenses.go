package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"familybudget/internal/core"
)

const expenseColumns = `id, family_id, amount_cents, currency, expense_date, description, merchant,
	payment_method, category, beneficiary, tags, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		e                    core.Expense
		date, tags           string
		createdAt, updatedAt string
		payment, beneficiary string
	)
	err := row.Scan(&e.ID, &e.FamilyID, &e.Amount.Cents, &e.Currency, &date, &e.Description,
		&e.Merchant, &payment, &e.Category, &beneficiary, &tags, &e.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return core.Expense{}, err
	}
	e.PaymentMethod = core.PaymentMethod(payment)
	e.Beneficiary = core.Beneficiary(beneficiary)
	if e.Date, err = core.ParseDate(date); err != nil {
		return core.Expense{}, err
	}
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("decode tags of expense %d: %w", e.ID, err)
	}
	if e.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Expense{}, err
	}
	if e.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return core.Expense{}, err
	}
	now := r.now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now

	res, err := r.db.ExecContext(ctx, `INSERT INTO expenses
		(family_id, amount_cents, currency, expense_date, description, merchant, payment_method,
		 category, beneficiary, tags, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.FamilyID, e.Amount.Cents, e.Currency, e.Date.String(), e.Description, e.Merchant,
		string(e.PaymentMethod), e.Category, string(e.Beneficiary), tags, e.CreatedBy,
		formatTime(now), formatTime(now))
	if err != nil {
		return core.Expense{}, fmt.Errorf("insert expense: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.Expense{}, fmt.Errorf("expense id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	tags, err := encodeTags(e.Tags)
	if err != nil {
		return core.Expense{}, err
	}
	e.UpdatedAt = r.now().UTC()

	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET
		amount_cents = ?, currency = ?, expense_date = ?, description = ?, merchant = ?,
		payment_method = ?, category = ?, beneficiary = ?, tags = ?, updated_at = ?
		WHERE id = ? AND family_id = ?`,
		e.Amount.Cents, e.Currency, e.Date.String(), e.Description, e.Merchant,
		string(e.PaymentMethod), e.Category, string(e.Beneficiary), tags, formatTime(e.UpdatedAt),
		e.ID, e.FamilyID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	return r.GetExpense(ctx, e.FamilyID, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, familyID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM expenses WHERE id = ? AND family_id = ?`, id, familyID)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, familyID string, id int64) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ? AND family_id = ?`, id, familyID)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, familyID string, f core.ExpenseFilter) (core.ExpensePage, error) {
	f = f.Normalized()
	where, args := expenseWhere(familyID, f)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses WHERE `+where, args...).Scan(&total); err != nil {
		return core.ExpensePage{}, fmt.Errorf("count expenses: %w", err)
	}

	pageArgs := append(args, f.PageSize, f.Offset())
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE `+where+`
		ORDER BY expense_date DESC, id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return core.ExpensePage{}, fmt.Errorf("list expenses: %w", err)
	}
	expenses, err := collectExpenses(rows)
	if err != nil {
		return core.ExpensePage{}, err
	}

	return core.ExpensePage{
		Expenses: expenses,
		Total:    total,
		Page:     f.Page,
		PageSize: f.PageSize,
		HasMore:  f.Offset()+len(expenses) < total,
	}, nil
}

func (r *SQLiteRepository) ExpensesBetween(ctx context.Context, familyID string, start, end core.Date) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+expenseColumns+` FROM expenses
		WHERE family_id = ? AND expense_date >= ? AND expense_date < ?
		ORDER BY expense_date, id`, familyID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("expenses between %s and %s: %w", start, end, err)
	}
	return collectExpenses(rows)
}

func collectExpenses(rows *sql.Rows) ([]core.Expense, error) {
	defer rows.Close()
	var out []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return out, nil
}

// expenseWhere builds the WHERE clause mirroring core.ExpenseFilter.Match.
// Dates are stored as YYYY-MM-DD so text comparison orders them correctly.
func expenseWhere(familyID string, f core.ExpenseFilter) (string, []any) {
	conds := []string{"family_id = ?"}
	args := []any{familyID}
	if !f.StartDate.IsEmpty() {
		conds = append(conds, "expense_date >= ?")
		args = append(args, f.StartDate.String())
	}
	if !f.EndDate.IsEmpty() {
		conds = append(conds, "expense_date <= ?")
		args = append(args, f.EndDate.String())
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Beneficiary != "" {
		conds = append(conds, "beneficiary = ?")
		args = append(args, string(f.Beneficiary))
	}
	if f.Payment != "" {
		conds = append(conds, "payment_method = ?")
		args = append(args, string(f.Payment))
	}
	if f.MinCents > 0 {
		conds = append(conds, "amount_cents >= ?")
		args = append(args, f.MinCents)
	}
	if f.MaxCents > 0 {
		conds = append(conds, "amount_cents <= ?")
		args = append(args, f.MaxCents)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" {
		conds = append(conds, "(instr(lower(description), ?) > 0 OR instr(lower(merchant), ?) > 0)")
		args = append(args, q, q)
	}
	return strings.Join(conds, " AND "), args
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
