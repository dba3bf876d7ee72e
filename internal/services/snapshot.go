package services

import (
	"context"
	"sync"

	"familybudget/internal/cache"
	"familybudget/internal/core"
	"familybudget/internal/storage"
)

// familySnapshot holds every expense of one family dated inside Window.
type familySnapshot struct {
	Window   core.Period
	Expenses []core.Expense
}

// snapshotCache keeps the last expense snapshot read per family so status
// listings do not rescan storage on every request. Entries are invalidated on
// any expense mutation made through this process and otherwise expire by TTL.
type snapshotCache struct {
	store storage.ExpenseStore
	lru   *cache.LRUCache[familySnapshot]

	// generations advance on Invalidate so a read that raced a mutation is not cached
	mu          sync.Mutex
	generations map[string]uint64
}

func newSnapshotCache(store storage.ExpenseStore, lru *cache.LRUCache[familySnapshot]) *snapshotCache {
	return &snapshotCache{store: store, lru: lru, generations: make(map[string]uint64)}
}

func (c *snapshotCache) generation(familyID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generations[familyID]
}

// Load returns the family's expenses in window. A cached snapshot is reused
// when its window covers the requested one and fresh is false.
func (c *snapshotCache) Load(ctx context.Context, familyID string, window core.Period, fresh bool) ([]core.Expense, error) {
	if !fresh {
		if snap, ok := c.lru.Get(familyID); ok && covers(snap.Window, window) {
			return within(snap.Expenses, window), nil
		}
	}

	gen := c.generation(familyID)
	expenses, err := c.store.ExpensesBetween(ctx, familyID, window.Start, window.End)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.generations[familyID] == gen {
		c.lru.Set(familyID, familySnapshot{Window: window, Expenses: expenses})
	}
	c.mu.Unlock()
	return expenses, nil
}

func (c *snapshotCache) Invalidate(familyID string) {
	c.mu.Lock()
	c.generations[familyID]++
	c.lru.Delete(familyID)
	c.mu.Unlock()
}

func covers(outer, inner core.Period) bool {
	return !inner.Start.Before(outer.Start.Time) && !inner.End.After(outer.End.Time)
}

func within(expenses []core.Expense, window core.Period) []core.Expense {
	out := make([]core.Expense, 0, len(expenses))
	for _, e := range expenses {
		if window.Contains(e.Date) {
			out = append(out, e)
		}
	}
	return out
}
