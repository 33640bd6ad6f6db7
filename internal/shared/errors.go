package shared

import (
	"errors"
	"fmt"
)

// ValidationError reports rejected input. Never worth retrying.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation, e.g. a duplicate SKU.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// InsufficientStockError is returned when a sale (or a purchase reversal)
// would drive stock below zero. Carries both sides of the comparison.
type InsufficientStockError struct {
	ProductID int64
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: available %d, requested %d", e.ProductID, e.Available, e.Requested)
}

// TransactionAbortError wraps a commit failure under contention. Nothing was
// persisted, so the caller may retry the whole operation.
type TransactionAbortError struct {
	Err error
}

func (e *TransactionAbortError) Error() string {
	return fmt.Sprintf("transaction aborted: %v", e.Err)
}

func (e *TransactionAbortError) Unwrap() error { return e.Err }

// IsRetryable reports whether the error is a clean transaction abort.
func IsRetryable(err error) bool {
	var abort *TransactionAbortError
	return errors.As(err, &abort)
}
