package budget

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"familybudget/internal/core"
)

var march = core.Period{Start: core.NewDate(2025, 3, 1), End: core.NewDate(2025, 4, 1)}

func TestAggregateEmpty(t *testing.T) {
	for _, in := range [][]core.Expense{nil, {}} {
		got, err := Aggregate(in, groceriesBudget(), march)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if got.Cents != 0 {
			t.Fatalf("Aggregate() = %d, want 0", got.Cents)
		}
	}
}

func TestAggregateBoundaries(t *testing.T) {
	expenses := []core.Expense{
		expense(1, 100, core.NewDate(2025, 2, 28), "groceries", core.WholeFamily), // previous period
		expense(2, 200, core.NewDate(2025, 3, 1), "groceries", core.WholeFamily),  // on start
		expense(3, 400, core.NewDate(2025, 3, 31), "groceries", core.WholeFamily), // last day
		expense(4, 800, core.NewDate(2025, 4, 1), "groceries", core.WholeFamily),  // on end
	}
	got, err := Aggregate(expenses, groceriesBudget(), march)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got.Cents != 600 {
		t.Fatalf("Aggregate() = %d, want 600", got.Cents)
	}
}

func TestAggregateOrderIndependent(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 500; i++ {
		expenses = append(expenses, expense(int64(i), int64(1+i%7), core.NewDate(2025, 3, 1+i%31), "groceries", core.WholeFamily))
	}
	want, err := Aggregate(expenses, groceriesBudget(), march)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]core.Expense(nil), expenses...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Aggregate(shuffled, groceriesBudget(), march)
		if err != nil {
			t.Fatalf("Aggregate() error = %v", err)
		}
		if got != want {
			t.Fatalf("shuffle %d: got %d, want %d", i, got.Cents, want.Cents)
		}
	}
}

func TestAggregateCrossFamily(t *testing.T) {
	e := expense(1, 100, core.NewDate(2025, 3, 2), "groceries", core.WholeFamily)
	e.FamilyID = "intruder"
	_, err := Aggregate([]core.Expense{e}, groceriesBudget(), march)
	if !errors.Is(err, ErrCrossFamily) {
		t.Fatalf("expected ErrCrossFamily, got %v", err)
	}
}

func TestAggregateOverflow(t *testing.T) {
	expenses := []core.Expense{
		expense(1, math.MaxInt64, core.NewDate(2025, 3, 2), "groceries", core.WholeFamily),
		expense(2, 1, core.NewDate(2025, 3, 3), "groceries", core.WholeFamily),
	}
	_, err := Aggregate(expenses, groceriesBudget(), march)
	if !errors.Is(err, core.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow, got %v", err)
	}
}
