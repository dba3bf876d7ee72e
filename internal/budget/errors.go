package budget

import "errors"

var (
	// ErrCrossFamily means an expense of one family reached a budget of another.
	// It always indicates an upstream query bug and is never filtered silently.
	ErrCrossFamily = errors.New("expense and budget belong to different families")

	ErrUnknownPeriodKind = errors.New("unknown period kind")

	// ErrInvalidBudget means a budget that should have been rejected at
	// creation time reached the evaluator.
	ErrInvalidBudget = errors.New("invalid budget")
)
