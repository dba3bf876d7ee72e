package services

import (
	"errors"
	"fmt"
)

// ErrValidation marks caller input that failed domain validation.
var ErrValidation = errors.New("validation failed")

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// BudgetError reports one budget that could not be evaluated in a batch.
// The rest of the batch still completes.
type BudgetError struct {
	BudgetID   int64
	BudgetName string
	Err        error
}

func (e BudgetError) Error() string {
	return fmt.Sprintf("budget %d (%s): %v", e.BudgetID, e.BudgetName, e.Err)
}

func (e BudgetError) Unwrap() error {
	return e.Err
}
