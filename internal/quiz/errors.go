package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyCompleted = errors.New("quiz already completed")
	ErrEmptyQuiz        = errors.New("quiz has no questions")
	ErrValidation       = errors.New("validation failed")
	ErrStorage          = errors.New("storage failure")
)

// ValidationError reports malformed input. It matches ErrValidation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// StorageError wraps a persistence failure. It matches ErrStorage.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return "storage: " + e.Op + ": " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }
