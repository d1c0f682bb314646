package analysis

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingColumn is wrapped by ColumnError when a stage needs a column the
	// dataset does not have.
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidMultiplier rejects non-positive IQR multipliers.
	ErrInvalidMultiplier = errors.New("iqr multiplier must be positive")
	// ErrInvalidK rejects top-k requests with k < 1.
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrUnknownTreatment rejects treatment names other than none, cap, remove.
	ErrUnknownTreatment = errors.New("unknown outlier treatment")
)

// ColumnError is a stage configuration error tied to one column.
type ColumnError struct {
	Op     string
	Column string
	Err    error
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: column %q: %v", e.Op, e.Column, e.Err)
}

func (e *ColumnError) Unwrap() error { return e.Err }

func missing(op, col string) error {
	return &ColumnError{Op: op, Column: col, Err: ErrMissingColumn}
}
