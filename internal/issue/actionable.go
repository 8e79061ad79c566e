// SPDX-License-Identifier: MPL-2.0

// Package issue provides user-facing error context: what operation failed,
// which resource was involved, and how the user might fix it.
package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is an error carrying context for user-facing diagnostics.
//
//	err := issue.Wrap(cause, "create virtual environment").
//		WithResource(venvDir).
//		WithSuggestion("Check that the interpreter is on PATH")
type ActionableError struct {
	// Operation describes what was being attempted, as a verb phrase
	// (e.g., "install package", "create virtual environment").
	Operation string

	// Resource identifies the file, path, or package involved (optional).
	Resource string

	// Suggestions provides hints on how to fix the issue (optional).
	Suggestions []string

	// Cause is the underlying error (optional).
	Cause error
}

// New creates an ActionableError for the given operation.
func New(operation string) *ActionableError {
	return &ActionableError{Operation: operation}
}

// Wrap wraps err with operation context. Returns nil when err is nil so it
// can sit directly on a return path.
func Wrap(err error, operation string) *ActionableError {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Cause: err}
}

// WithResource sets the resource involved and returns the error.
func (e *ActionableError) WithResource(res string) *ActionableError {
	e.Resource = res
	return e
}

// WithSuggestion appends a fix-it hint and returns the error.
func (e *ActionableError) WithSuggestion(s string) *ActionableError {
	e.Suggestions = append(e.Suggestions, s)
	return e
}

// Error implements the error interface with the concise, non-verbose form.
func (e *ActionableError) Error() string {
	var msg strings.Builder

	msg.WriteString("failed to ")
	msg.WriteString(e.Operation)

	if e.Resource != "" {
		msg.WriteString(": ")
		msg.WriteString(e.Resource)
	}
	if e.Cause != nil {
		msg.WriteString(": ")
		msg.WriteString(e.Cause.Error())
	}

	return msg.String()
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error for terminal display. Suggestions are listed as
// bullets; verbose mode appends the full cause chain.
func (e *ActionableError) Format(verbose bool) string {
	var msg strings.Builder

	msg.WriteString(e.Error())

	for _, suggestion := range e.Suggestions {
		msg.WriteString("\n  • ")
		msg.WriteString(suggestion)
	}

	if verbose && e.Cause != nil {
		msg.WriteString("\n\nError chain:")
		err := e.Cause
		depth := 1
		for err != nil {
			fmt.Fprintf(&msg, "\n  %d. %s", depth, err.Error())
			err = errors.Unwrap(err)
			depth++
		}
	}

	return msg.String()
}
