package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryProtocol  Category = "protocol"
	CategoryAuth      Category = "auth"
	CategorySpectator Category = "spectator"
	CategoryResource  Category = "resource"
	CategoryConfig    Category = "config"
	CategoryCLI       Category = "cli"
)

// KiaiError is a structured error with a registered code, an explanation and
// an optional fix suggestion.
type KiaiError struct {
	// Code is a unique error identifier (e.g., "E001").
	Code string

	// Category is the error type (transport, auth, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *KiaiError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *KiaiError) Unwrap() error {
	return e.Wrapped
}

// Is matches another *KiaiError with the same code.
func (e *KiaiError) Is(target error) bool {
	t, ok := target.(*KiaiError)
	return ok && t.Code != "" && t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *KiaiError) WithSuggestion(s string) *KiaiError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *KiaiError) WithDetail(d string) *KiaiError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *KiaiError) Wrap(err error) *KiaiError {
	e.Wrapped = err
	return e
}

// New creates a KiaiError from a registered error code.
func New(code string) *KiaiError {
	template, ok := registry[code]
	if !ok {
		return &KiaiError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &KiaiError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Detail:     template.Detail,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new KiaiError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *KiaiError {
	return &KiaiError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a KiaiError. An error that already
// carries a KiaiError anywhere in its chain is returned unchanged.
func FromError(err error, code string) *KiaiError {
	if err == nil {
		return nil
	}
	var ke *KiaiError
	if stderrors.As(err, &ke) {
		return ke
	}
	return New(code).Wrap(err)
}

// CodeOf returns the code of the first KiaiError in err's chain, or "".
func CodeOf(err error) string {
	var ke *KiaiError
	if stderrors.As(err, &ke) {
		return ke.Code
	}
	return ""
}
