package validate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorgraph/corestack/internal/platform/apperr"
	"github.com/anchorgraph/corestack/internal/platform/validate"
)

/*
TestValidator_Required tests the mandatory field validation logic.
*/
func TestValidator_Required(t *testing.T) {
	tests := []struct {
		name     string
		field    string
		value    string
		hasError bool
	}{
		{"valid_string", "name", "temperature-sensor-1", false},
		{"empty_string", "name", "", true},
		{"whitespace_only", "name", "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.Required(tt.field, tt.value)

			if tt.hasError {
				assert.True(t, v.HasErrors())
				err := v.Err()
				require.NotNil(t, err)

				ae := apperr.As(err)
				require.NotNil(t, ae)
				assert.Equal(t, "PRECONDITION_ERROR", ae.Code)
				assert.Equal(t, tt.field, ae.Details[0].Field)
			} else {
				assert.False(t, v.HasErrors())
				assert.Nil(t, v.Err())
			}
		})
	}
}

/*
TestValidator_IRI checks the absolute-IRI shape validation rule.
*/
func TestValidator_IRI(t *testing.T) {
	tests := []struct {
		name    string
		iri     string
		isValid bool
	}{
		{"valid_iri", "https://example.com/dataIRI/1", true},
		{"valid_urn", "urn:uuid:1234", true},
		{"missing_scheme", "not-an-iri", false},
		{"whitespace", "https://example.com/has space", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validate.Validator{}
			v.IRI("iri", tt.iri)

			if tt.isValid {
				assert.False(t, v.HasErrors())
			} else {
				assert.True(t, v.HasErrors())
			}
		})
	}
}

/*
TestValidator_EqualLen checks the parallel-slice length precondition used by
the time-series creation preconditions.
*/
func TestValidator_EqualLen(t *testing.T) {
	v := &validate.Validator{}
	v.EqualLen("dataIRIs", []string{"a", "b"}, "dataClasses", []string{"x"})

	assert.True(t, v.HasErrors())
	err := v.Err()
	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "dataIRIs", ae.Details[0].Field)
}

/*
TestValidator_Chain tests the fluent API (chaining multiple rules).
*/
func TestValidator_Chain(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("seriesIRI", "https://example.com/series/1").
		IRI("seriesIRI", "https://example.com/series/1").
		MinLen("unit", "Hz", 1).
		MaxLen("unit", "Hz", 10).
		Err()

	assert.NoError(t, err)
	assert.False(t, v.HasErrors())
}

/*
TestValidator_Chain_Failure tests error accumulation in the chain.
*/
func TestValidator_Chain_Failure(t *testing.T) {
	v := &validate.Validator{}

	err := v.
		Required("seriesIRI", "").                               // Fails
		MinLen("unit", "", 1).                                    // Fails
		EqualLen("dataIRIs", []string{"a"}, "dataClasses", nil). // Fails
		Err()

	require.Error(t, err)
	ae := apperr.As(err)
	require.NotNil(t, ae)

	// Should accumulate all 3 errors
	assert.Len(t, ae.Details, 3)
}
