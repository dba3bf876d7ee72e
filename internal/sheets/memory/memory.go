package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"familybudget/internal/core"
	"familybudget/internal/sheets"
)

// Store keeps report rows in memory. Used when no spreadsheet is configured
// and in tests.
type Store struct {
	mu   sync.Mutex
	rows [][]string
}

var _ sheets.StatusReporter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

func (s *Store) ReportStatuses(_ context.Context, at time.Time, statuses []core.BudgetStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, st := range statuses {
		s.rows = append(s.rows, sheets.StatusRow(at, st))
	}
	return nil
}

// Rows returns a copy of every row reported so far.
func (s *Store) Rows() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = slices.Clone(r)
	}
	return out
}
