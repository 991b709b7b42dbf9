package service

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced order, product, or category does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden means the actor lacks ownership or role for the mutation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState means the requested transition is not in the transition table.
	ErrInvalidState = errors.New("invalid state transition")

	// ErrInsufficientStock means a ledger adjustment would drive a level negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrOutOfStock means a product cannot cover the requested quantity at
	// order-creation time.
	ErrOutOfStock = errors.New("out of stock")
)

// ValidationError names the field a malformed input failed on.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// SyncWarning is a non-fatal failure: the primary write committed but the
// companion ledger sync did not. Callers surface it, never roll back for it.
type SyncWarning struct {
	Category string
	Delta    int
	Err      error
}

func (w *SyncWarning) Error() string {
	return fmt.Sprintf("stock sync failed for category %s (delta %d): %v", w.Category, w.Delta, w.Err)
}

func (w *SyncWarning) Unwrap() error {
	return w.Err
}
