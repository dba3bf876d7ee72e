package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"familybudget/internal/core"
)

func (r *SQLiteRepository) PriorAlerts(ctx context.Context, budgetID int64, periodStart core.Date) ([]core.ThresholdClass, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT class FROM budget_alerts
		WHERE budget_id = ? AND period_start = ? ORDER BY class`, budgetID, periodStart.String())
	if err != nil {
		return nil, fmt.Errorf("prior alerts of budget %d: %w", budgetID, err)
	}
	defer rows.Close()

	var out []core.ThresholdClass
	for rows.Next() {
		var c int
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan alert class: %w", err)
		}
		out = append(out, core.ThresholdClass(c))
	}
	return out, rows.Err()
}

// RecordAlert inserts the alert row only when no alert of the same or a higher
// class exists for the budget period. The guard and the insert are one statement
// and the primary key on (budget_id, period_start, class) backs it up, so two
// racing writers cannot both raise the same crossing.
func (r *SQLiteRepository) RecordAlert(ctx context.Context, intent core.NotificationIntent, recipients []string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin record alert: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(r.now())
	periodStart := intent.PeriodStart.String()
	res, err := tx.ExecContext(ctx, `INSERT INTO budget_alerts
		(budget_id, period_start, class, family_id, dedup_key, created_at)
		SELECT ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM budget_alerts WHERE budget_id = ? AND period_start = ? AND class >= ?
		)
		ON CONFLICT (budget_id, period_start, class) DO NOTHING`,
		intent.BudgetID, periodStart, int(intent.Class), intent.FamilyID, intent.DedupKey, now,
		intent.BudgetID, periodStart, int(intent.Class))
	if err != nil {
		return false, fmt.Errorf("insert alert %s: %w", intent.DedupKey, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert alert %s: %w", intent.DedupKey, err)
	}
	if n == 0 {
		return false, nil
	}

	for _, userID := range recipients {
		_, err := tx.ExecContext(ctx, `INSERT INTO notifications
			(family_id, user_id, type, title, message, budget_id, dedup_key, read, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
			ON CONFLICT (user_id, dedup_key) DO NOTHING`,
			intent.FamilyID, userID, string(intent.Type), intent.Title, intent.Message,
			intent.BudgetID, intent.DedupKey, now)
		if err != nil {
			return false, fmt.Errorf("insert notification %s for %s: %w", intent.DedupKey, userID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit alert %s: %w", intent.DedupKey, err)
	}
	return true, nil
}

const notificationColumns = `id, family_id, user_id, type, title, message, budget_id, dedup_key, read, created_at`

func scanNotification(row rowScanner) (core.Notification, error) {
	var (
		n         core.Notification
		typ       string
		read      int
		createdAt string
	)
	if err := row.Scan(&n.ID, &n.FamilyID, &n.UserID, &typ, &n.Title, &n.Message, &n.BudgetID,
		&n.DedupKey, &read, &createdAt); err != nil {
		return core.Notification{}, err
	}
	n.Type = core.NotificationType(typ)
	n.Read = read != 0
	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Notification{}, err
	}
	return n, nil
}

// ListNotifications returns a user's notifications, newest first.
func (r *SQLiteRepository) ListNotifications(ctx context.Context, userID string, unreadOnly bool, limit int) ([]core.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []core.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) UnreadCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("unread count: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) MarkRead(ctx context.Context, userID string, id int64) error {
	var exists int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notifications WHERE id = ? AND user_id = ?`, id, userID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("notification %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("find notification %d: %w", id, err)
	}
	if _, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		return fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE user_id = ? AND read = 0`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return int(n), nil
}
