package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound        = errors.New("resource not found")
	ErrDatasetNotFound = fmt.Errorf("%w: dataset", ErrNotFound)
	ErrVersionNotFound = fmt.Errorf("%w: version", ErrNotFound)
	ErrColumnNotFound  = fmt.Errorf("%w: column", ErrNotFound)

	// Input errors
	ErrEmptyFile        = errors.New("file contains no data rows")
	ErrFileTooLarge     = errors.New("file exceeds maximum allowed size")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrMalformedHeader  = errors.New("header row could not be parsed")
	ErrInsufficientData = errors.New("insufficient data for analysis")

	// Processing errors
	ErrProfileTimeout  = errors.New("profiling timed out")
	ErrPoolUnavailable = errors.New("batch pool unavailable")
	ErrAnalysisPending = errors.New("remote analysis result not yet available")
	ErrUnknownMethod   = errors.New("unknown preprocessing method")
	ErrTypeMismatch    = errors.New("value incompatible with column type")
)

// NewNotFoundError builds a not-found error with resource context
func NewNotFoundError(resource string, id string) error {
	return fmt.Errorf("%w: %s with id %s", ErrNotFound, resource, id)
}

// NewValidationError builds a field-level validation error
func NewValidationError(field string, reason string) error {
	return fmt.Errorf("validation failed for %s: %s", field, reason)
}

// IsNotFoundError reports whether err is any not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
