package utils

import (
	"errors"
	"fmt"
)

// ValidationError represents an error occurring during data validation.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// InsufficientDataError signals that an OHLCV window is shorter than the
// warm-up an operation requires. It is a normal, expected condition: callers
// skip the cycle instead of treating it as a failure.
type InsufficientDataError struct {
	Need int
	Got  int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: need at least %d candles, got %d", e.Need, e.Got)
}

// NewInsufficientDataError creates an InsufficientDataError for the given
// required and available candle counts.
func NewInsufficientDataError(need, got int) error {
	return &InsufficientDataError{Need: need, Got: got}
}

// IsInsufficientData reports whether err wraps an InsufficientDataError.
func IsInsufficientData(err error) bool {
	var target *InsufficientDataError
	return errors.As(err, &target)
}
