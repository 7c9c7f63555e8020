package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrIntegrity marks a store whose vectors and metadata do not line up, or a vector whose
	// dimension does not match the store. It is never recoverable for that store.
	ErrIntegrity = errors.New("vector store integrity violation")

	// ErrStorageUnavailable marks missing or unreadable store artifacts.
	ErrStorageUnavailable = errors.New("vector store unavailable")
)

// DimensionMismatchError indicates a vector whose length differs from the store dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is reports ErrIntegrity.
func (e *DimensionMismatchError) Is(target error) bool { return target == ErrIntegrity }

func integrityf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}

func unavailable(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, what, err)
}
