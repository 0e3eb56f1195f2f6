package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/compoundkit/compoundc/pkg/schema"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// compoundSchemaJSON is the JSON Schema for the compound-action document
// shape. It enforces what the Go type system cannot be trusted to have
// enforced for externally-supplied documents: value types, unknown keys,
// the one-variant-per-step union, and the non-empty top-level step list.
// Field presence, cross-field rules, and reference resolution are the
// cross-field and scope passes' concern and deliberately absent here.
const compoundSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://compoundkit.dev/schemas/compound-action.json",
  "type": "object",
  "required": ["steps"],
  "properties": {
    "inputs": {
      "type": "array",
      "items": { "type": "string" }
    },
    "steps": { "$ref": "#/$defs/steps" }
  },
  "additionalProperties": false,
  "$defs": {
    "steps": {
      "type": "array",
      "minItems": 1,
      "items": { "$ref": "#/$defs/step" }
    },
    "substeps": {
      "type": "array",
      "items": { "$ref": "#/$defs/step" }
    },
    "step": {
      "type": "object",
      "minProperties": 1,
      "maxProperties": 1,
      "properties": {
        "action": { "$ref": "#/$defs/action" },
        "script": { "$ref": "#/$defs/script" },
        "switch": { "$ref": "#/$defs/switch" },
        "for": { "$ref": "#/$defs/for" },
        "parallel": { "$ref": "#/$defs/parallel" },
        "return": { "$ref": "#/$defs/return" },
        "raise": { "$ref": "#/$defs/raise" },
        "try_catch": { "$ref": "#/$defs/try_catch" }
      },
      "additionalProperties": false
    },
    "scalar": {
      "type": ["string", "number", "boolean", "null"]
    },
    "argmap": {
      "type": "object",
      "additionalProperties": { "$ref": "#/$defs/scalar" }
    },
    "action": {
      "type": "object",
      "properties": {
        "action_name": { "type": "string" },
        "output_key": { "type": "string" },
        "input_args": { "$ref": "#/$defs/argmap" },
        "delay_config": {
          "type": "object",
          "properties": {
            "milliseconds": { "$ref": "#/$defs/scalar" },
            "seconds": { "$ref": "#/$defs/scalar" },
            "minutes": { "$ref": "#/$defs/scalar" },
            "hours": { "$ref": "#/$defs/scalar" }
          },
          "additionalProperties": false
        },
        "progress_updates": {
          "type": "object",
          "properties": {
            "on_pending": { "type": "string" },
            "on_complete": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "script": {
      "type": "object",
      "properties": {
        "code": { "type": "string" },
        "output_key": { "type": "string" },
        "input_args": { "$ref": "#/$defs/argmap" }
      },
      "additionalProperties": false
    },
    "switch": {
      "type": "object",
      "properties": {
        "cases": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "condition": { "type": "string" },
              "steps": { "$ref": "#/$defs/substeps" }
            },
            "additionalProperties": false
          }
        },
        "default": {
          "type": "object",
          "properties": {
            "steps": { "$ref": "#/$defs/substeps" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    },
    "for": {
      "type": "object",
      "properties": {
        "each": { "type": "string" },
        "index": { "type": "string" },
        "in": { "type": "string" },
        "output_key": { "type": "string" },
        "steps": { "$ref": "#/$defs/substeps" }
      },
      "additionalProperties": false
    },
    "parallel": {
      "type": "object",
      "properties": {
        "for": {
          "type": "object",
          "properties": {
            "each": { "type": "string" },
            "in": { "type": "string" },
            "index_key": { "type": "string" },
            "output_key": { "type": "string" },
            "steps": { "$ref": "#/$defs/substeps" }
          },
          "additionalProperties": false
        },
        "branches": {
          "type": "array",
          "items": {
            "type": "object",
            "properties": {
              "steps": { "$ref": "#/$defs/substeps" }
            },
            "additionalProperties": false
          }
        }
      },
      "additionalProperties": false
    },
    "return": {
      "type": "object",
      "properties": {
        "output_mapper": { "$ref": "#/$defs/argmap" }
      },
      "additionalProperties": false
    },
    "raise": {
      "type": "object",
      "properties": {
        "message": { "type": "string" },
        "output_key": { "type": "string" }
      },
      "additionalProperties": false
    },
    "try_catch": {
      "type": "object",
      "properties": {
        "output_key": { "type": "string" },
        "try": { "$ref": "#/$defs/substeps" },
        "catch": {
          "type": "object",
          "properties": {
            "steps": { "$ref": "#/$defs/substeps" },
            "status_codes": { "type": "string" }
          },
          "additionalProperties": false
        }
      },
      "additionalProperties": false
    }
  }
}`

// ShapeValidator checks document shape against the embedded JSON Schema
// (Draft 2020-12). It is safe for concurrent use.
type ShapeValidator struct {
	compiled *jsonschema.Schema
}

// NewShapeValidator compiles the embedded schema.
func NewShapeValidator() (*ShapeValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(compoundSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal compound-action schema: %w", err)
	}
	if err := c.AddResource("https://compoundkit.dev/schemas/compound-action.json", doc); err != nil {
		return nil, fmt.Errorf("add compound-action schema resource: %w", err)
	}

	compiled, err := c.Compile("https://compoundkit.dev/schemas/compound-action.json")
	if err != nil {
		return nil, fmt.Errorf("compile compound-action schema: %w", err)
	}

	return &ShapeValidator{compiled: compiled}, nil
}

// Check validates the document's shape, converting schema violations into
// diagnostics with structural paths.
func (v *ShapeValidator) Check(doc *schema.CompoundAction) *schema.ValidationResult {
	result := &schema.ValidationResult{}

	value, err := toJSONValue(doc)
	if err != nil {
		result.AddError("/", schema.DiagInvalidStructure,
			"document cannot be serialized for shape checking: "+err.Error())
		return result
	}

	if err := v.compiled.Validate(value); err != nil {
		for _, violation := range collectViolations(err) {
			result.AddError(violation.path, schema.DiagInvalidStructure, violation.message)
		}
	}
	return result
}

// CheckRaw validates externally-supplied JSON before it is decoded into
// the document model. Unknown keys and type errors a json.Unmarshal would
// silently absorb are hard failures here.
func (v *ShapeValidator) CheckRaw(raw []byte) error {
	value, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeParse, "invalid JSON").WithCause(err)
	}

	if err := v.compiled.Validate(value); err != nil {
		violations := collectViolations(err)
		msgs := make([]string, len(violations))
		for i, violation := range violations {
			msgs[i] = fmt.Sprintf("%s: %s", violation.path, violation.message)
		}
		return schema.NewErrorf(schema.ErrCodeParse,
			"document shape is invalid (%d violations)", len(violations)).
			WithDetails(map[string]any{"violations": msgs})
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON so numbers become
// json.Number, which the jsonschema library requires.
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

type violation struct {
	path    string
	message string
}

// collectViolations walks a ValidationError tree and collects leaf
// messages with their instance locations rendered in the pipeline's
// bracketed path style.
func collectViolations(err error) []violation {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []violation{{path: "/", message: err.Error()}}
	}
	return collectLeaves(verr)
}

func collectLeaves(verr *jsonschema.ValidationError) []violation {
	if len(verr.Causes) == 0 {
		return []violation{{
			path:    bracketPath(verr.InstanceLocation),
			message: verr.Error(),
		}}
	}
	var out []violation
	for _, cause := range verr.Causes {
		out = append(out, collectLeaves(cause)...)
	}
	return out
}

// bracketPath renders a JSON instance location like ["steps","0","action"]
// as "steps[0].action", matching the rest of the pipeline's diagnostics.
func bracketPath(location []string) string {
	if len(location) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, seg := range location {
		if isIndex(seg) {
			b.WriteString("[" + seg + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteString(".")
		}
		b.WriteString(seg)
	}
	return b.String()
}

func isIndex(seg string) bool {
	if seg == "" {
		return false
	}
	for _, r := range seg {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
