package schema

import (
	"fmt"
	"strings"
)

// Checker accumulates rule violations for a single document.
// The zero value is ready to use.
type Checker struct {
	errs []error
}

// Fail records a violation for field.
func (c *Checker) Fail(field, reason string, value any) {
	c.errs = append(c.errs, &ValidationError{Field: field, Reason: reason, Value: value})
}

// NotBlank requires value to contain a non-whitespace character.
func (c *Checker) NotBlank(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.Fail(field, "must not be blank", nil)
	}
}

// NonEmpty requires a collection of length n to have at least one element.
func (c *Checker) NonEmpty(field string, n int) {
	if n == 0 {
		c.Fail(field, "must contain at least one entry", nil)
	}
}

// Strings requires every entry of values to be non-blank.
func (c *Checker) Strings(field string, values []string) {
	for i, v := range values {
		c.NotBlank(fmt.Sprintf("%s[%d]", field, i), v)
	}
}

// OneOf requires value to be one of allowed.
func (c *Checker) OneOf(field, value string, allowed ...string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.Fail(field, fmt.Sprintf("must be one of %v", allowed), value)
}

// Err returns nil when no violations were recorded, or an *AggregateError.
func (c *Checker) Err() error {
	if len(c.errs) == 0 {
		return nil
	}
	return &AggregateError{Errors: append([]error(nil), c.errs...)}
}
