package validation

import (
	"github.com/compoundkit/compoundc/internal/refexpr"
	"github.com/compoundkit/compoundc/internal/scope"
	"github.com/compoundkit/compoundc/internal/script"
	"github.com/compoundkit/compoundc/pkg/schema"
)

// DefaultDiagnosticLimit bounds the diagnostics accumulated per run, so a
// pathological document (thousands of duplicate output keys, say) cannot
// produce an unbounded report.
const DefaultDiagnosticLimit = 256

// CompoundValidator orchestrates the four-stage validation pipeline:
//  1. Shape (JSON Schema): types, unknown keys, the step union.
//  2. Cross-field: required fields, case counts, status codes,
//     the global output_key namespace, unreachable steps.
//  3. Scope: reference resolution and switch-condition compilation.
//  4. Script: static analysis of embedded script code.
//
// All stages run unconditionally and their findings are merged; the
// pipeline maximizes diagnostics per run rather than stopping early.
// A CompoundValidator holds no per-document state and is safe for
// concurrent use across documents.
type CompoundValidator struct {
	shape   *ShapeValidator
	tracker *scope.Tracker
	limit   int
}

// NewCompoundValidator creates a validator with the default diagnostic
// limit.
func NewCompoundValidator() (*CompoundValidator, error) {
	shape, err := NewShapeValidator()
	if err != nil {
		return nil, err
	}
	checker, err := refexpr.NewConditionChecker()
	if err != nil {
		return nil, err
	}
	return &CompoundValidator{
		shape:   shape,
		tracker: scope.New(checker),
		limit:   DefaultDiagnosticLimit,
	}, nil
}

// SetDiagnosticLimit overrides the per-run diagnostic ceiling.
// n <= 0 removes the ceiling.
func (cv *CompoundValidator) SetDiagnosticLimit(n int) {
	cv.limit = n
}

// Validate runs the full pipeline and returns the merged diagnostics.
// It is total for any constructible document; only a nil document is
// reported as an error result rather than examined.
func (cv *CompoundValidator) Validate(doc *schema.CompoundAction) *schema.ValidationResult {
	if doc == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.DiagInvalidStructure, "document is nil")
		return r
	}

	result := cv.shape.Check(doc)
	result.Merge(validateCrossField(doc))
	result.Merge(cv.tracker.Validate(doc))
	result.Merge(analyzeScripts(doc))

	result.Truncate(cv.limit)
	return result
}

// CheckRaw validates externally-supplied JSON against the document shape
// before decoding. See ShapeValidator.CheckRaw.
func (cv *CompoundValidator) CheckRaw(raw []byte) error {
	return cv.shape.CheckRaw(raw)
}

// ScopeAt exposes the scope tracker for editor tooling: the bindings
// visible at the step addressed by nodePath.
func (cv *CompoundValidator) ScopeAt(doc *schema.CompoundAction, nodePath string) ([]scope.Binding, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "document is nil")
	}
	return cv.tracker.At(doc, nodePath)
}

// analyzeScripts runs the embedded-script analyzer over every script step.
func analyzeScripts(doc *schema.CompoundAction) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	doc.Walk(func(step *schema.Step, path string) bool {
		if step.Script != nil && step.Script.Code != "" {
			result.Merge(script.Analyze(step.Script.Code, path+".script.code"))
		}
		return true
	})
	return result
}
