package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familybudget/internal/core"
)

const budgetColumns = `id, family_id, name, amount_cents, period, category, beneficiary,
	start_date, created_by, created_at, updated_at`

func scanBudget(row rowScanner) (core.Budget, error) {
	var (
		b                     core.Budget
		period, start         string
		category, beneficiary sql.NullString
		createdAt, updatedAt  string
	)
	err := row.Scan(&b.ID, &b.FamilyID, &b.Name, &b.Amount.Cents, &period, &category, &beneficiary,
		&start, &b.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return core.Budget{}, err
	}
	b.Period = core.PeriodKind(period)
	if category.Valid {
		c := category.String
		b.Category = &c
	}
	if beneficiary.Valid {
		ben := core.Beneficiary(beneficiary.String)
		b.Beneficiary = &ben
	}
	if b.StartDate, err = core.ParseDate(start); err != nil {
		return core.Budget{}, err
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Budget{}, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func nullableFilters(b core.Budget) (sql.NullString, sql.NullString) {
	var category, beneficiary sql.NullString
	if c, ok := b.CategoryFilter(); ok {
		category = sql.NullString{String: c, Valid: true}
	}
	if ben, ok := b.BeneficiaryFilter(); ok {
		beneficiary = sql.NullString{String: string(ben), Valid: true}
	}
	return category, beneficiary
}

func (r *SQLiteRepository) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	now := r.now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	category, beneficiary := nullableFilters(b)

	res, err := r.db.ExecContext(ctx, `INSERT INTO budgets
		(family_id, name, amount_cents, period, category, beneficiary, start_date, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.FamilyID, b.Name, b.Amount.Cents, string(b.Period), category, beneficiary,
		b.StartDate.String(), b.CreatedBy, formatTime(now), formatTime(now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("insert budget: %w", err)
	}
	if b.ID, err = res.LastInsertId(); err != nil {
		return core.Budget{}, fmt.Errorf("budget id: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) UpdateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	b.UpdatedAt = r.now().UTC()
	category, beneficiary := nullableFilters(b)

	res, err := r.db.ExecContext(ctx, `UPDATE budgets SET
		name = ?, amount_cents = ?, period = ?, category = ?, beneficiary = ?, start_date = ?, updated_at = ?
		WHERE id = ? AND family_id = ?`,
		b.Name, b.Amount.Cents, string(b.Period), category, beneficiary, b.StartDate.String(),
		formatTime(b.UpdatedAt), b.ID, b.FamilyID)
	if err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	if err := expectOneRow(res); err != nil {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	return r.GetBudget(ctx, b.FamilyID, b.ID)
}

// DeleteBudget removes the budget together with its alert history.
// Notifications already delivered to members are kept.
func (r *SQLiteRepository) DeleteBudget(ctx context.Context, familyID string, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete budget: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ? AND family_id = ?`, id, familyID)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if err := expectOneRow(res); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM budget_alerts WHERE budget_id = ?`, id); err != nil {
		return fmt.Errorf("delete alerts of budget %d: %w", id, err)
	}
	return tx.Commit()
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, familyID string, id int64) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = ? AND family_id = ?`, id, familyID)
	b, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return b, nil
}

// ListBudgets orders by id, which increases with insertion.
func (r *SQLiteRepository) ListBudgets(ctx context.Context, familyID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE family_id = ? ORDER BY id`, familyID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]string, error) {
	return r.queryStrings(ctx, `SELECT DISTINCT family_id FROM budgets ORDER BY family_id`)
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, familyID string) ([]string, error) {
	return r.queryStrings(ctx,
		`SELECT user_id FROM family_members WHERE family_id = ? ORDER BY user_id`, familyID)
}

// AddMember is idempotent.
func (r *SQLiteRepository) AddMember(ctx context.Context, familyID, userID string) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO family_members (family_id, user_id, joined_at)
		VALUES (?, ?, ?) ON CONFLICT (family_id, user_id) DO NOTHING`,
		familyID, userID, formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("add member %s to family %s: %w", userID, familyID, err)
	}
	return nil
}

func (r *SQLiteRepository) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
