package errors

import (
	"errors"
	"fmt"
)

// BenchError is the structured error type for hlsbench.
// It carries enough context to log a failure, render it on the CLI and
// record it in the run ledger.
type BenchError struct {
	// Code is the unique error code (e.g., "ERR_201_FILE_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Environment, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *BenchError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with BenchError.
func (e *BenchError) Is(target error) bool {
	if t, ok := target.(*BenchError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *BenchError) WithDetail(key, value string) *BenchError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *BenchError) WithSuggestion(suggestion string) *BenchError {
	e.Suggestion = suggestion
	return e
}

// New creates a new BenchError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *BenchError {
	return &BenchError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Newf creates a new BenchError with a formatted message and no cause.
func Newf(code string, format string, args ...any) *BenchError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Wrap creates a BenchError from an existing error.
// The error's message becomes the BenchError message.
func Wrap(code string, err error) *BenchError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *BenchError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// IOError creates an I/O-related error.
func IOError(message string, cause error) *BenchError {
	return New(ErrCodeFileNotFound, message, cause)
}

// EnvironmentError creates an error for a missing external tool.
func EnvironmentError(message string, cause error) *BenchError {
	return New(ErrCodeToolNotFound, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *BenchError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *BenchError {
	return New(ErrCodeInternal, message, cause)
}

// IsFatal checks if an error has fatal severity.
// Fatal errors abort the batch before any kernel is processed.
func IsFatal(err error) bool {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from the first BenchError in the chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// GetCategory extracts the category from the first BenchError in the chain.
// Returns empty string if there is none.
func GetCategory(err error) Category {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// HasCode reports whether any BenchError in the chain carries code.
func HasCode(err error, code string) bool {
	return errors.Is(err, &BenchError{Code: code})
}
