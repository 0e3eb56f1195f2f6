package schema

import "fmt"

// Severity indicates whether a diagnostic blocks serialization.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic codes emitted by the validation pipeline. Error codes block
// serialization; warning codes do not.
const (
	// Structural / cross-field.
	DiagMissingField       = "MissingField"
	DiagInvalidStructure   = "InvalidStructure"
	DiagInvalidStatusCode  = "InvalidStatusCode"
	DiagDuplicateOutputKey = "DuplicateOutputKey"
	DiagUnconditionalRaise = "UnconditionalRaise"

	// Reference / scope.
	DiagUnresolvedReference = "UnresolvedReference"
	DiagMalformedExpression = "MalformedExpression"
	DiagIdentifierShadowing = "IdentifierShadowing"

	// Embedded script.
	DiagScriptTooLarge               = "ScriptTooLarge"
	DiagScriptImportForbidden        = "ScriptImportForbidden"
	DiagScriptClassForbidden         = "ScriptClassForbidden"
	DiagScriptPrivateMemberForbidden = "ScriptPrivateMemberForbidden"
	DiagScriptMissingReturn          = "ScriptMissingReturn"

	// Pipeline.
	DiagTooManyDiagnostics = "TooManyDiagnostics"
)

// Diagnostic is a single validation finding with location context.
// Path is a structural pointer like "steps[1].switch.cases[0].condition".
type Diagnostic struct {
	Path     string   `json:"path"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// ValidationResult aggregates all diagnostics from the validation pipeline.
type ValidationResult struct {
	Errors   []Diagnostic `json:"errors,omitempty"`
	Warnings []Diagnostic `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Len returns the total diagnostic count.
func (r *ValidationResult) Len() int {
	return len(r.Errors) + len(r.Warnings)
}

// AddError appends an error-severity diagnostic.
func (r *ValidationResult) AddError(path, code, message string) {
	r.Errors = append(r.Errors, Diagnostic{
		Path: path, Code: code, Message: message, Severity: SeverityError,
	})
}

// AddErrorf appends an error-severity diagnostic with a formatted message.
func (r *ValidationResult) AddErrorf(path, code, format string, args ...any) {
	r.AddError(path, code, fmt.Sprintf(format, args...))
}

// AddWarning appends a warning-severity diagnostic.
func (r *ValidationResult) AddWarning(path, code, message string) {
	r.Warnings = append(r.Warnings, Diagnostic{
		Path: path, Code: code, Message: message, Severity: SeverityWarning,
	})
}

// AddWarningf appends a warning-severity diagnostic with a formatted message.
func (r *ValidationResult) AddWarningf(path, code, format string, args ...any) {
	r.AddWarning(path, code, fmt.Sprintf(format, args...))
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// All returns every diagnostic, errors first, each group in insertion
// order. Pass ordering is fixed, so the result is deterministic for a
// given document.
func (r *ValidationResult) All() []Diagnostic {
	out := make([]Diagnostic, 0, r.Len())
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// Truncate caps the total diagnostic count at limit, dropping the excess
// and recording the truncation as a final warning. A limit <= 0 means
// unlimited. Errors are kept in preference to warnings.
func (r *ValidationResult) Truncate(limit int) {
	if limit <= 0 || r.Len() <= limit {
		return
	}
	dropped := r.Len() - limit
	if len(r.Errors) > limit {
		r.Errors = r.Errors[:limit]
		r.Warnings = nil
	} else {
		r.Warnings = r.Warnings[:limit-len(r.Errors)]
	}
	r.Warnings = append(r.Warnings, Diagnostic{
		Path:     "/",
		Code:     DiagTooManyDiagnostics,
		Message:  fmt.Sprintf("diagnostic limit reached; %d further findings dropped", dropped),
		Severity: SeverityWarning,
	})
}

// ToError converts the result to a CompoundError if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	}

	return NewError(ErrCodeValidation, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}
