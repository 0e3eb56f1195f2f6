// Package compiler is the public surface of the compound-action compiler
// core: validate a document, serialize it canonically, and resolve the
// binding scope at a node for editor tooling. Both operations are pure
// functions over an immutable snapshot of the document tree; the compiler
// retains no reference to a document beyond a single call.
package compiler

import (
	"encoding/json"

	"github.com/compoundkit/compoundc/internal/scope"
	"github.com/compoundkit/compoundc/internal/serialize"
	"github.com/compoundkit/compoundc/internal/validation"
	"github.com/compoundkit/compoundc/pkg/schema"
)

// Binding re-exports the scope binding type for callers of ResolveScope.
type Binding = scope.Binding

// Compiler bundles the validation pipeline and the canonical serializer.
// It is stateless between calls and safe for concurrent use.
type Compiler struct {
	validator *validation.CompoundValidator
}

// New creates a Compiler with compiled shape schema and expression
// environments.
func New() (*Compiler, error) {
	v, err := validation.NewCompoundValidator()
	if err != nil {
		return nil, err
	}
	return &Compiler{validator: v}, nil
}

// SetDiagnosticLimit overrides the per-run diagnostic ceiling.
func (c *Compiler) SetDiagnosticLimit(n int) {
	c.validator.SetDiagnosticLimit(n)
}

// Validate runs the full pipeline. It is total for any constructible
// document and fails only for a nil root.
func (c *Compiler) Validate(doc *schema.CompoundAction) (*schema.ValidationResult, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeValidation, "document is nil")
	}
	return c.validator.Validate(doc), nil
}

// Serialize renders doc as canonical text. The document is re-validated
// first; outstanding error-severity diagnostics make Serialize fail with
// UNVALIDATED_DOCUMENT rather than emit best-effort output. Warnings do
// not block. Re-validating on every call keeps the operation pure: there
// is no hidden "was validated" flag to go stale after an edit.
func (c *Compiler) Serialize(doc *schema.CompoundAction) ([]byte, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeSerialization, "document is nil")
	}

	result := c.validator.Validate(doc)
	if !result.Valid() {
		return nil, schema.NewErrorf(schema.ErrCodeUnvalidated,
			"document has %d validation errors; serialization refused", len(result.Errors)).
			WithDetails(map[string]any{"errors": result.Errors})
	}

	return serialize.Marshal(doc)
}

// ResolveScope returns the bindings visible at the step addressed by
// nodePath (e.g. "steps[1].for.steps[0]"), for reference autocompletion.
// The index one past the end of a sequence addresses the insertion point
// for a new step.
func (c *Compiler) ResolveScope(doc *schema.CompoundAction, nodePath string) ([]Binding, error) {
	return c.validator.ScopeAt(doc, nodePath)
}

// Parse decodes canonical YAML into a document model without validating.
func (c *Compiler) Parse(data []byte) (*schema.CompoundAction, error) {
	return serialize.Parse(data)
}

// DecodeJSON decodes an externally-supplied JSON document, first checking
// its shape against the document schema so unknown keys and type errors
// fail loudly instead of being silently absorbed.
func (c *Compiler) DecodeJSON(raw []byte) (*schema.CompoundAction, error) {
	if err := c.validator.CheckRaw(raw); err != nil {
		return nil, err
	}
	var doc schema.CompoundAction
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, schema.NewError(schema.ErrCodeParse, "decode document").WithCause(err)
	}
	return &doc, nil
}
