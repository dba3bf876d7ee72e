// Package memory is an in-process implementation of storage.Repository used by
// the memory backend and by tests. All state lives behind one mutex.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/storage"
)

type alertKey struct {
	budgetID    int64
	periodStart string
}

type Store struct {
	mu sync.Mutex

	now func() time.Time

	nextExpenseID      int64
	nextBudgetID       int64
	nextNotificationID int64

	expenses      map[int64]core.Expense
	budgets       map[int64]core.Budget
	members       map[string][]string
	alerts        map[alertKey][]core.ThresholdClass
	notifications []core.Notification
}

var _ storage.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		now:      time.Now,
		expenses: make(map[int64]core.Expense),
		budgets:  make(map[int64]core.Budget),
		members:  make(map[string][]string),
		alerts:   make(map[alertKey][]core.ThresholdClass),
	}
}

// WithClock replaces the clock used for CreatedAt/UpdatedAt stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextExpenseID++
	now := s.now().UTC()
	e.ID = s.nextExpenseID
	e.CreatedAt, e.UpdatedAt = now, now
	e.Tags = slices.Clone(e.Tags)
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[e.ID]
	if !ok || old.FamilyID != e.FamilyID {
		return core.Expense{}, fmt.Errorf("update expense %d: %w", e.ID, storage.ErrNotFound)
	}
	e.CreatedBy, e.CreatedAt = old.CreatedBy, old.CreatedAt
	e.UpdatedAt = s.now().UTC()
	e.Tags = slices.Clone(e.Tags)
	s.expenses[e.ID] = e
	return e, nil
}

func (s *Store) DeleteExpense(_ context.Context, familyID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.expenses[id]
	if !ok || old.FamilyID != familyID {
		return fmt.Errorf("delete expense %d: %w", id, storage.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

func (s *Store) GetExpense(_ context.Context, familyID string, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.expenses[id]
	if !ok || e.FamilyID != familyID {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, storage.ErrNotFound)
	}
	return e, nil
}

func (s *Store) ListExpenses(_ context.Context, familyID string, f core.ExpenseFilter) (core.ExpensePage, error) {
	f = f.Normalized()
	s.mu.Lock()
	var matched []core.Expense
	for _, e := range s.expenses {
		if e.FamilyID == familyID && f.Match(e) {
			matched = append(matched, e)
		}
	}
	s.mu.Unlock()

	// newest first, ties broken by id like the sqlite backend
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Date.Equal(matched[j].Date.Time) {
			return matched[i].Date.After(matched[j].Date.Time)
		}
		return matched[i].ID > matched[j].ID
	})

	page := core.ExpensePage{Total: len(matched), Page: f.Page, PageSize: f.PageSize}
	if off := f.Offset(); off < len(matched) {
		end := min(off+f.PageSize, len(matched))
		page.Expenses = matched[off:end]
		page.HasMore = end < len(matched)
	}
	return page, nil
}

func (s *Store) ExpensesBetween(_ context.Context, familyID string, start, end core.Date) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := core.Period{Start: start, End: end}
	var out []core.Expense
	for _, e := range s.expenses {
		if e.FamilyID == familyID && window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) CreateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextBudgetID++
	now := s.now().UTC()
	b.ID = s.nextBudgetID
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) UpdateBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.budgets[b.ID]
	if !ok || old.FamilyID != b.FamilyID {
		return core.Budget{}, fmt.Errorf("update budget %d: %w", b.ID, storage.ErrNotFound)
	}
	b.CreatedBy, b.CreatedAt = old.CreatedBy, old.CreatedAt
	b.UpdatedAt = s.now().UTC()
	s.budgets[b.ID] = b
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, familyID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.budgets[id]
	if !ok || old.FamilyID != familyID {
		return fmt.Errorf("delete budget %d: %w", id, storage.ErrNotFound)
	}
	delete(s.budgets, id)
	for k := range s.alerts {
		if k.budgetID == id {
			delete(s.alerts, k)
		}
	}
	return nil
}

func (s *Store) GetBudget(_ context.Context, familyID string, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok || b.FamilyID != familyID {
		return core.Budget{}, fmt.Errorf("budget %d: %w", id, storage.ErrNotFound)
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, familyID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Budget
	for _, b := range s.budgets {
		if b.FamilyID == familyID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListFamilies(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, b := range s.budgets {
		if _, ok := seen[b.FamilyID]; ok {
			continue
		}
		seen[b.FamilyID] = struct{}{}
		out = append(out, b.FamilyID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListMembers(_ context.Context, familyID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.members[familyID]), nil
}

func (s *Store) AddMember(_ context.Context, familyID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := s.members[familyID]
	if slices.Contains(members, userID) {
		return nil
	}
	members = append(members, userID)
	sort.Strings(members)
	s.members[familyID] = members
	return nil
}

func (s *Store) PriorAlerts(_ context.Context, budgetID int64, periodStart core.Date) ([]core.ThresholdClass, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.alerts[alertKey{budgetID, periodStart.String()}]), nil
}

// RecordAlert applies the same guard as the sqlite backend: nothing is written
// when the period already holds an alert of the same or a higher class.
func (s *Store) RecordAlert(_ context.Context, intent core.NotificationIntent, recipients []string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := alertKey{intent.BudgetID, intent.PeriodStart.String()}
	for _, c := range s.alerts[key] {
		if c >= intent.Class {
			return false, nil
		}
	}
	s.alerts[key] = append(s.alerts[key], intent.Class)

	now := s.now().UTC()
	for _, userID := range recipients {
		s.nextNotificationID++
		s.notifications = append(s.notifications, core.Notification{
			ID:        s.nextNotificationID,
			FamilyID:  intent.FamilyID,
			UserID:    userID,
			Type:      intent.Type,
			Title:     intent.Title,
			Message:   intent.Message,
			BudgetID:  intent.BudgetID,
			DedupKey:  intent.DedupKey,
			CreatedAt: now,
		})
	}
	return true, nil
}

func (s *Store) ListNotifications(_ context.Context, userID string, unreadOnly bool, limit int) ([]core.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Notification
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.notifications[i]
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *Store) UnreadCount(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if n.UserID == userID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (s *Store) MarkRead(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id && s.notifications[i].UserID == userID {
			s.notifications[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %d: %w", id, storage.ErrNotFound)
}

func (s *Store) MarkAllRead(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.notifications {
		if s.notifications[i].UserID == userID && !s.notifications[i].Read {
			s.notifications[i].Read = true
			count++
		}
	}
	return count, nil
}
