// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ActionableError names the barkmods operation that failed, the package,
	// store or catalog path it touched, and what the user can do next.
	// The CLI prints Error() as the headline and Hints() below it.
	//
	//	return issue.NewErrorContext().
	//		WithOperation("install mod").
	//		WithResource(src).
	//		WithSuggestion("Rebuild the package with a plain mod name").
	//		Wrap(err).
	//		BuildError()
	ActionableError struct {
		// Operation is a verb phrase such as "scan mod store".
		Operation string
		// Resource is the path or catalog id involved, if any.
		Resource string
		// Suggestions are shown as bullets under the headline.
		Suggestions []string
		// Cause is the wrapped error.
		Cause error
	}

	// ErrorContext collects the fields of an ActionableError.
	ErrorContext struct {
		operation   string
		resource    string
		suggestions []string
		cause       error
	}
)

// NewErrorContext starts an ActionableError.
func NewErrorContext() *ErrorContext {
	return &ErrorContext{}
}

// Error renders "failed to <operation>[: <resource>][: <cause>]".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// HasSuggestions reports whether Hints has anything to show outside verbose mode.
func (e *ActionableError) HasSuggestions() bool {
	return len(e.Suggestions) > 0
}

// Hints renders the suggestions as bullets. In verbose mode the numbered
// cause chain follows.
func (e *ActionableError) Hints(verbose bool) string {
	var sb strings.Builder
	for _, s := range e.Suggestions {
		sb.WriteString("  • ")
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	if verbose && e.Cause != nil {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("Error chain:\n")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&sb, "  %d. %s\n", depth, err.Error())
			depth++
		}
	}
	return sb.String()
}

// Format is the headline followed by Hints.
func (e *ActionableError) Format(verbose bool) string {
	hints := e.Hints(verbose)
	if hints == "" {
		return e.Error()
	}
	return e.Error() + "\n\n" + strings.TrimRight(hints, "\n")
}

func (c *ErrorContext) WithOperation(op string) *ErrorContext {
	c.operation = op
	return c
}

func (c *ErrorContext) WithResource(res string) *ErrorContext {
	c.resource = res
	return c
}

// WithSuggestion appends one suggestion; call it once per bullet.
func (c *ErrorContext) WithSuggestion(sug string) *ErrorContext {
	c.suggestions = append(c.suggestions, sug)
	return c
}

func (c *ErrorContext) Wrap(err error) *ErrorContext {
	c.cause = err
	return c
}

// Build returns nil when no operation was set.
func (c *ErrorContext) Build() *ActionableError {
	if c.operation == "" {
		return nil
	}
	return &ActionableError{
		Operation:   c.operation,
		Resource:    c.resource,
		Suggestions: c.suggestions,
		Cause:       c.cause,
	}
}

// BuildError is Build typed as error, so a missing operation yields a true nil.
func (c *ErrorContext) BuildError() error {
	if ae := c.Build(); ae != nil {
		return ae
	}
	return nil
}
