package utils

import "fmt"

// ValidationError represents an error occurring during data validation.
// Validation failures are rejected synchronously and have no side effects.
type ValidationError struct {
	Message string
}

// Error returns the error message string.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError with a specific message.
//
// Parameters:
//   - message: The validation error message.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationError(message string) error {
	return &ValidationError{
		Message: message,
	}
}

// NewValidationErrorf creates a new ValidationError with a formatted message.
//
// Parameters:
//   - format: The format string.
//   - args: Arguments for the format string.
//
// Returns:
//   - An error interface wrapping the ValidationError.
func NewValidationErrorf(format string, args ...interface{}) error {
	return &ValidationError{
		Message: fmt.Sprintf(format, args...),
	}
}

// UpstreamDataError represents a missing or corrupt upstream data source.
// Callers fail fast on it; zero data is never silently substituted.
type UpstreamDataError struct {
	Source  string
	Message string
}

// Error returns the error message string.
func (e *UpstreamDataError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Message)
	}
	return e.Message
}

// NewUpstreamDataError creates a new UpstreamDataError for a named source.
func NewUpstreamDataError(source, message string) error {
	return &UpstreamDataError{
		Source:  source,
		Message: message,
	}
}

// NewUpstreamDataErrorf creates a new UpstreamDataError with a formatted message.
func NewUpstreamDataErrorf(source, format string, args ...interface{}) error {
	return &UpstreamDataError{
		Source:  source,
		Message: fmt.Sprintf(format, args...),
	}
}
