// Package budget computes budget status and decides when spending crosses
// an alert threshold.
//
// This file implements the Strategy Pattern for period resolution. Each
// period kind (weekly, monthly) has its own resolver that turns an anchor
// date and a reference instant into a concrete [start, end) window.
package budget

import (
	"fmt"
	"sync"
	"time"

	"familybudget/internal/core"
)

// PeriodResolver is the strategy interface for resolving budget periods.
type PeriodResolver interface {
	// Resolve returns the window containing ref. Implementations must be
	// pure: the alert dedup key is derived from the returned start.
	Resolve(anchor, ref core.Date) core.Period
}

// MonthlyResolver aligns periods to calendar months; the anchor is ignored.
type MonthlyResolver struct{}

// Resolve returns [first of ref's month, first of next month).
func (MonthlyResolver) Resolve(_, ref core.Date) core.Period {
	start := core.NewDate(ref.Year(), int(ref.Month()), 1)
	return core.Period{Start: start, End: core.Date{Time: start.AddDate(0, 1, 0)}}
}

// WeeklyResolver uses 7-day windows starting on the anchor's weekday.
type WeeklyResolver struct{}

// Resolve returns the window starting on the latest anchor weekday at or before ref.
func (WeeklyResolver) Resolve(anchor, ref core.Date) core.Period {
	back := (int(ref.Weekday()) - int(anchor.Weekday()) + 7) % 7
	start := ref.AddDays(-back)
	return core.Period{Start: start, End: start.AddDays(7)}
}

var (
	resolversMu sync.RWMutex
	resolvers   = map[core.PeriodKind]PeriodResolver{
		core.Weekly:  WeeklyResolver{},
		core.Monthly: MonthlyResolver{},
	}
)

// GetPeriodResolver returns the resolver registered for kind.
func GetPeriodResolver(kind core.PeriodKind) (PeriodResolver, error) {
	resolversMu.RLock()
	defer resolversMu.RUnlock()
	r, ok := resolvers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPeriodKind, kind)
	}
	return r, nil
}

// RegisterPeriodResolver adds or replaces the resolver for a period kind.
func RegisterPeriodResolver(kind core.PeriodKind, r PeriodResolver) {
	resolversMu.Lock()
	defer resolversMu.Unlock()
	resolvers[kind] = r
}

// Resolve places ref in the period of the given kind. ref is bucketed by the
// calendar date it falls on in its own location, so callers control the
// family time zone with ref.In(loc).
func Resolve(kind core.PeriodKind, anchor core.Date, ref time.Time) (core.Period, error) {
	r, err := GetPeriodResolver(kind)
	if err != nil {
		return core.Period{}, err
	}
	return r.Resolve(anchor, core.DateOf(ref)), nil
}
