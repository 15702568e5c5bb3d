package errors

import (
	"fmt"
)

// LiftError is the structured error type for indexlift.
// Every failure crossing a subsystem boundary is a LiftError so callers
// can distinguish error kinds programmatically instead of parsing logs.
type LiftError struct {
	// Code is the unique error code (e.g., "ERR_201_ALIAS_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Validation, Resolution, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *LiftError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *LiftError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with LiftError.
func (e *LiftError) Is(target error) bool {
	if t, ok := target.(*LiftError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *LiftError) WithDetail(key, value string) *LiftError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new LiftError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *LiftError {
	return &LiftError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a LiftError from an existing error.
// The error's message becomes the LiftError message.
func Wrap(code string, err error) *LiftError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ValidationError creates an input-validation error.
func ValidationError(message string) *LiftError {
	return New(ErrCodeBlankName, message, nil)
}

// NotFoundError creates an alias-not-found error.
func NotFoundError(message string) *LiftError {
	return New(ErrCodeAliasNotFound, message, nil)
}

// AmbiguousError creates an ambiguous-alias error.
func AmbiguousError(message string) *LiftError {
	return New(ErrCodeAliasAmbiguous, message, nil)
}

// ConnectivityError creates a cluster/source transport error.
// Connectivity errors are retryable.
func ConnectivityError(message string, cause error) *LiftError {
	return New(ErrCodeClusterUnavailable, message, cause)
}

// ConflictError creates a concurrent-operation conflict error.
func ConflictError(message string) *LiftError {
	return New(ErrCodeRebuildInProgress, message, nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *LiftError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a LiftError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if le, ok := err.(*LiftError); ok {
		return le.Retryable
	}
	return false
}

// GetCode extracts the error code from a LiftError.
// Returns empty string if not a LiftError.
func GetCode(err error) string {
	if le, ok := err.(*LiftError); ok {
		return le.Code
	}
	return ""
}

// GetCategory extracts the category from a LiftError.
// Returns empty string if not a LiftError.
func GetCategory(err error) Category {
	if le, ok := err.(*LiftError); ok {
		return le.Category
	}
	return ""
}
