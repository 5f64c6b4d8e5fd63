package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotObject is returned when a document does not decode to a JSON object.
	ErrNotObject = errors.New("document is not a JSON object")
	// ErrUnknownField marks a document key that the target struct does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field  string // Dotted path of the field, e.g. "mistakes[0].kind"
	Reason string // Human-readable reason for failure
	Value  any    // The offending value, if any
	Cause  error  // Sentinel classifying the failure, if any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("field %q: %s (got %v)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// AggregateError represents multiple validation failures.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:", len(e.Errors))
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s", i+1, err.Error())
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// ValidationErrors returns all validation errors if err is an AggregateError.
// Otherwise returns nil.
func ValidationErrors(err error) []error {
	var aggr *AggregateError
	if errors.As(err, &aggr) {
		return aggr.Errors
	}
	return nil
}
