// Package errors provides a lightweight structured error type (SiteError)
// for category-based classification across manifest loading, validation,
// and build orchestration.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies a docsite error for reporting and exit-code mapping
type ErrorCategory string

const (
	// Manifest content errors
	CategorySchema    ErrorCategory = "schema"    // unparseable or malformed manifest
	CategoryReference ErrorCategory = "reference" // dangling nav path, broken redirect target
	CategoryPlugin    ErrorCategory = "plugin"    // unknown plugin/extension id or option

	// External system errors
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryGit        ErrorCategory = "git"
	CategoryGenerator  ErrorCategory = "generator"
	CategoryHook       ErrorCategory = "hook"

	// Runtime and infrastructure errors
	CategoryStore    ErrorCategory = "store"
	CategoryWatch    ErrorCategory = "watch"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// SiteError is a structured error with category, severity, and context
type SiteError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for SiteError
type ContextFields map[string]any

// Error implements the error interface
func (e *SiteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *SiteError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *SiteError) WithContext(key string, value any) *SiteError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new SiteError
func New(category ErrorCategory, severity ErrorSeverity, message string) *SiteError {
	return &SiteError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Newf creates a new SiteError with a formatted message
func Newf(category ErrorCategory, severity ErrorSeverity, format string, args ...any) *SiteError {
	return &SiteError{
		Category: category,
		Severity: severity,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new SiteError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *SiteError {
	return &SiteError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// WrapError wraps an existing error at SeverityError
func WrapError(err error, category ErrorCategory, message string) *SiteError {
	return &SiteError{
		Category: category,
		Severity: SeverityError,
		Message:  message,
		Cause:    err,
	}
}

// SchemaError creates a schema-category error for malformed manifest content
func SchemaError(message string) *SiteError {
	return New(CategorySchema, SeverityFatal, message)
}

// ReferenceError creates a reference-category error for dangling paths
func ReferenceError(message string) *SiteError {
	return New(CategoryReference, SeverityError, message)
}

// PluginError creates a plugin-category error for unknown ids or options
func PluginError(message string) *SiteError {
	return New(CategoryPlugin, SeverityError, message)
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns
// CategoryInternal if the error carries no SiteError in its chain
func GetCategory(err error) ErrorCategory {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Category
	}
	return CategoryInternal
}

// GetSeverity extracts the severity from an error, defaulting to SeverityError
func GetSeverity(err error) ErrorSeverity {
	var se *SiteError
	if errors.As(err, &se) {
		return se.Severity
	}
	return SeverityError
}
