package internalerr

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrMissingColumn marks a table that lacks a column a stage requires.
	// It is a configuration error and always wraps ErrInvalidConfig.
	ErrMissingColumn = fmt.Errorf("%w: missing column", ErrInvalidConfig)

	// ErrUnmappedDocument is returned when a matrix row has no corpus metadata.
	ErrUnmappedDocument = errors.New("document has no outlet/period mapping")
)
