// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// The HTTP handlers in internal/timeseries and internal/derived use it to check
// request bodies before calling the coordinator or metadata store; storage code
// does not use it.
package validate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
)

var (
	// uuidRegex matches a UUIDv4 or UUIDv7 string.
	uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.Precondition("Invalid JSON payload")
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every request/operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// MinLen fails if the Unicode character count is below min.
func (v *Validator) MinLen(field, value string, min int) *Validator {
	if utf8.RuneCountInString(value) < min {
		v.add(field, fmt.Sprintf("Minimum %d characters", min))
	}
	return v
}

// Range fails if the value is outside the [min, max] range (inclusive).
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return v
}

// IRI fails if the value does not look like an absolute IRI: it must contain
// a scheme separator and carry neither whitespace nor angle brackets.
func (v *Validator) IRI(field, value string) *Validator {
	if !looksLikeIRI(value) {
		v.add(field, "Must be an absolute IRI")
	}
	return v
}

// IRISlice applies the [Validator.IRI] check to every element of values,
// field-qualified by its index.
func (v *Validator) IRISlice(field string, values []string) *Validator {
	for i, value := range values {
		if !looksLikeIRI(value) {
			v.add(fmt.Sprintf("%s[%d]", field, i), "Must be an absolute IRI")
		}
	}
	return v
}

// EqualLen fails if a and b do not have the same length. It is used to guard
// parallel-slice preconditions such as data-identifiers against data-classes.
func (v *Validator) EqualLen(fieldA string, a []string, fieldB string, b []string) *Validator {
	if len(a) != len(b) {
		v.add(fieldA, fmt.Sprintf("must have the same length as %s (%d != %d)", fieldB, len(a), len(b)))
	}
	return v
}

// NotEmptySlice fails if values has zero elements.
func (v *Validator) NotEmptySlice(field string, values []string) *Validator {
	if len(values) == 0 {
		v.add(field, "Must not be empty")
	}
	return v
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string) *Validator {
	lower := strings.ToLower(value)
	if !uuidRegex.MatchString(lower) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("score", score < 1 || score > 10, "Must be between 1 and 10")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (PRECONDITION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method — call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.Precondition("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}

// RequiredError is a shortcut to create a single-field validation error.
func RequiredError(field, message string) *apperr.AppError {
	return apperr.Precondition("Validation failed", apperr.FieldError{
		Field:   field,
		Message: message,
	})
}

// looksLikeIRI reports whether s has the shape of an absolute IRI: a
// scheme followed by ":", no surrounding angle brackets, and no embedded
// whitespace. It intentionally does not perform full RFC 3987 validation —
// the triple store is the authority on acceptance.
func looksLikeIRI(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\n<>") {
		return false
	}
	colon := strings.IndexByte(s, ':')
	return colon > 0 && colon < len(s)-1
}
