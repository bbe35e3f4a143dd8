package vector

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is returned when the database cannot be reached or
	// lacks the vector functions. Callers treat it as fatal.
	ErrStoreUnavailable = errors.New("vector: store unavailable")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("vector: k must be positive")
)

// SchemaError reports a schema operation that conflicts with the current
// database state, e.g. creating an existing table or dropping a missing one.
type SchemaError struct {
	Op    string
	Table string
	cause error
}

func (e *SchemaError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("vector: %s table %s: %v", e.Op, e.Table, e.cause)
	}
	return fmt.Sprintf("vector: %s table %s", e.Op, e.Table)
}

func (e *SchemaError) Unwrap() error { return e.cause }

// DimensionMismatchError indicates a vector whose length differs from the
// store's fixed dimension.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

// NonFiniteError reports a NaN or infinite embedding component. Such values
// have no defined distance and are never stored.
type NonFiniteError struct {
	Index int
	Value float32
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("vector: non-finite value %v at index %d", e.Value, e.Index)
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
