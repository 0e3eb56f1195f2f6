package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- ValidationResult ---

func TestValidationResult_ValidWithWarnings(t *testing.T) {
	var r ValidationResult
	r.AddWarning("steps[0]", DiagIdentifierShadowing, "loop variable shadows output")
	assert.True(t, r.Valid())
	assert.Equal(t, 1, r.Len())
}

func TestValidationResult_AddErrorInvalidates(t *testing.T) {
	var r ValidationResult
	r.AddErrorf("steps[2].action", DiagMissingField, "field %q is required", "action_name")
	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
	assert.Contains(t, r.Errors[0].Message, `"action_name"`)
}

func TestValidationResult_Merge(t *testing.T) {
	var a, b ValidationResult
	a.AddError("steps[0]", DiagMissingField, "e1")
	b.AddError("steps[1]", DiagInvalidStructure, "e2")
	b.AddWarning("steps[1]", DiagUnconditionalRaise, "w1")

	a.Merge(&b)
	assert.Len(t, a.Errors, 2)
	assert.Len(t, a.Warnings, 1)

	a.Merge(nil) // no-op
	assert.Equal(t, 3, a.Len())
}

func TestValidationResult_AllErrorsFirst(t *testing.T) {
	var r ValidationResult
	r.AddWarning("w", DiagIdentifierShadowing, "warn")
	r.AddError("e", DiagMissingField, "err")

	all := r.All()
	require.Len(t, all, 2)
	assert.Equal(t, SeverityError, all[0].Severity)
	assert.Equal(t, SeverityWarning, all[1].Severity)
}

// --- Truncate ---

func TestTruncate_UnderLimitUntouched(t *testing.T) {
	var r ValidationResult
	r.AddError("a", DiagMissingField, "e")
	r.Truncate(256)
	assert.Equal(t, 1, r.Len())
}

func TestTruncate_DropsWarningsFirst(t *testing.T) {
	var r ValidationResult
	for i := 0; i < 3; i++ {
		r.AddError("e", DiagMissingField, "err")
	}
	for i := 0; i < 5; i++ {
		r.AddWarning("w", DiagIdentifierShadowing, "warn")
	}

	r.Truncate(4)
	assert.Len(t, r.Errors, 3)
	// One real warning survives, plus the truncation marker.
	require.Len(t, r.Warnings, 2)
	assert.Equal(t, DiagTooManyDiagnostics, r.Warnings[1].Code)
	assert.Contains(t, r.Warnings[1].Message, "4 further findings")
}

func TestTruncate_ErrorsBeyondLimit(t *testing.T) {
	var r ValidationResult
	for i := 0; i < 10; i++ {
		r.AddError("e", DiagMissingField, "err")
	}
	r.Truncate(4)
	assert.Len(t, r.Errors, 4)
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, DiagTooManyDiagnostics, r.Warnings[0].Code)
}

func TestTruncate_ZeroMeansUnlimited(t *testing.T) {
	var r ValidationResult
	for i := 0; i < 500; i++ {
		r.AddError("e", DiagMissingField, "err")
	}
	r.Truncate(0)
	assert.Len(t, r.Errors, 500)
}

// --- ToError ---

func TestToError_NilWhenValid(t *testing.T) {
	var r ValidationResult
	r.AddWarning("w", DiagIdentifierShadowing, "warn")
	assert.NoError(t, r.ToError())
}

func TestToError_CarriesDiagnostics(t *testing.T) {
	var r ValidationResult
	r.AddError("steps[0]", DiagMissingField, "missing action_name")
	r.AddError("steps[1]", DiagInvalidStructure, "two variants")

	err := r.ToError()
	require.Error(t, err)

	var cerr *CompoundError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, ErrCodeValidation, cerr.Code)
	assert.Equal(t, 2, cerr.Details["error_count"])
	assert.Contains(t, cerr.Message, "2 errors")
}

// --- CompoundError ---

func TestCompoundError_ErrorString(t *testing.T) {
	err := NewError(ErrCodeValidation, "bad document").WithPath("steps[3]")
	assert.Equal(t, "[VALIDATION_ERROR] steps[3]: bad document", err.Error())
}

func TestCompoundError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewErrorf(ErrCodeParse, "decode failed").WithCause(cause)
	assert.ErrorIs(t, err, cause)
}
