package serialize

import (
	"gopkg.in/yaml.v3"

	"github.com/compoundkit/compoundc/pkg/schema"
)

// Parse decodes canonical (or hand-written) YAML into a document model.
// Parsing is strict: unknown keys, non-scalar values in scalar positions,
// and YAML anchors/aliases are rejected. Anchors would break the
// tree-shaped ownership of steps, so they are not a supported spelling.
//
// Parse does not validate: a parsed document may still carry any number
// of semantic problems for the validation pipeline to report.
func Parse(data []byte) (*schema.CompoundAction, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, schema.NewError(schema.ErrCodeParse, "invalid YAML").WithCause(err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, schema.NewError(schema.ErrCodeParse, "empty document")
	}

	top := root.Content[0]
	if err := wantMapping(top, "document root"); err != nil {
		return nil, err
	}

	doc := &schema.CompoundAction{}
	seenSteps := false
	for key, value := range pairs(top) {
		switch key.Value {
		case "steps":
			steps, err := parseSteps(value)
			if err != nil {
				return nil, err
			}
			doc.Steps = steps
			seenSteps = true
		case "inputs":
			inputs, err := parseStringSeq(value)
			if err != nil {
				return nil, err
			}
			doc.Inputs = inputs
		default:
			return nil, parseErr(key, "unknown top-level key %q", key.Value)
		}
	}
	if !seenSteps {
		return nil, schema.NewError(schema.ErrCodeParse, "document has no steps key")
	}
	return doc, nil
}

func parseSteps(node *yaml.Node) ([]schema.Step, error) {
	if err := wantSequence(node, "steps"); err != nil {
		return nil, err
	}
	steps := make([]schema.Step, 0, len(node.Content))
	for _, item := range node.Content {
		step, err := parseStep(item)
		if err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func parseStep(node *yaml.Node) (schema.Step, error) {
	var step schema.Step
	if err := wantMapping(node, "step"); err != nil {
		return step, err
	}
	if len(node.Content) != 2 {
		return step, parseErr(node, "step must have exactly one key naming its expression kind")
	}

	key, body := node.Content[0], node.Content[1]
	if body.Kind == yaml.ScalarNode && body.Tag == "!!null" {
		// An empty expression body (e.g. "- switch:") parses to an empty
		// variant so validation can report the missing fields precisely.
		return emptyVariant(key)
	}
	var err error
	switch key.Value {
	case "action":
		step.Action, err = parseAction(body)
	case "script":
		step.Script, err = parseScript(body)
	case "switch":
		step.Switch, err = parseSwitch(body)
	case "for":
		step.For, err = parseFor(body)
	case "parallel":
		step.Parallel, err = parseParallel(body)
	case "return":
		step.Return, err = parseReturn(body)
	case "raise":
		step.Raise, err = parseRaise(body)
	case "try_catch":
		step.TryCatch, err = parseTryCatch(body)
	default:
		err = parseErr(key, "unknown expression kind %q", key.Value)
	}
	return step, err
}

func emptyVariant(key *yaml.Node) (schema.Step, error) {
	var step schema.Step
	switch key.Value {
	case "action":
		step.Action = &schema.ActionExpr{}
	case "script":
		step.Script = &schema.ScriptExpr{}
	case "switch":
		step.Switch = &schema.SwitchExpr{}
	case "for":
		step.For = &schema.ForExpr{}
	case "parallel":
		step.Parallel = &schema.ParallelExpr{}
	case "return":
		step.Return = &schema.ReturnExpr{}
	case "raise":
		step.Raise = &schema.RaiseExpr{}
	case "try_catch":
		step.TryCatch = &schema.TryCatchExpr{}
	default:
		return step, parseErr(key, "unknown expression kind %q", key.Value)
	}
	return step, nil
}

func parseAction(node *yaml.Node) (*schema.ActionExpr, error) {
	if err := wantMapping(node, "action"); err != nil {
		return nil, err
	}
	a := &schema.ActionExpr{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "action_name":
			a.ActionName, err = scalarValue(value, key.Value)
		case "output_key":
			a.OutputKey, err = scalarValue(value, key.Value)
		case "input_args":
			a.InputArgs, err = parseArgs(value)
		case "delay_config":
			a.DelayConfig, err = parseDelay(value)
		case "progress_updates":
			a.ProgressUpdates, err = parseProgress(value)
		default:
			err = parseErr(key, "unknown action field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return a, nil
}

func parseScript(node *yaml.Node) (*schema.ScriptExpr, error) {
	if err := wantMapping(node, "script"); err != nil {
		return nil, err
	}
	s := &schema.ScriptExpr{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "code":
			s.Code, err = scalarValue(value, key.Value)
		case "output_key":
			s.OutputKey, err = scalarValue(value, key.Value)
		case "input_args":
			s.InputArgs, err = parseArgs(value)
		default:
			err = parseErr(key, "unknown script field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func parseSwitch(node *yaml.Node) (*schema.SwitchExpr, error) {
	if err := wantMapping(node, "switch"); err != nil {
		return nil, err
	}
	s := &schema.SwitchExpr{}
	for key, value := range pairs(node) {
		switch key.Value {
		case "cases":
			if err := wantSequence(value, "cases"); err != nil {
				return nil, err
			}
			for _, item := range value.Content {
				c, err := parseCase(item)
				if err != nil {
					return nil, err
				}
				s.Cases = append(s.Cases, c)
			}
		case "default":
			if err := wantMapping(value, "default"); err != nil {
				return nil, err
			}
			d := &schema.DefaultCase{}
			for dk, dv := range pairs(value) {
				if dk.Value != "steps" {
					return nil, parseErr(dk, "unknown default field %q", dk.Value)
				}
				steps, err := parseSteps(dv)
				if err != nil {
					return nil, err
				}
				d.Steps = steps
			}
			s.Default = d
		default:
			return nil, parseErr(key, "unknown switch field %q", key.Value)
		}
	}
	return s, nil
}

func parseCase(node *yaml.Node) (schema.SwitchCase, error) {
	var c schema.SwitchCase
	if err := wantMapping(node, "case"); err != nil {
		return c, err
	}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "condition":
			c.Condition, err = scalarValue(value, key.Value)
		case "steps":
			c.Steps, err = parseSteps(value)
		default:
			err = parseErr(key, "unknown case field %q", key.Value)
		}
		if err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseFor(node *yaml.Node) (*schema.ForExpr, error) {
	if err := wantMapping(node, "for"); err != nil {
		return nil, err
	}
	f := &schema.ForExpr{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "each":
			f.Each, err = scalarValue(value, key.Value)
		case "index":
			f.Index, err = scalarValue(value, key.Value)
		case "in":
			f.In, err = scalarValue(value, key.Value)
		case "output_key":
			f.OutputKey, err = scalarValue(value, key.Value)
		case "steps":
			f.Steps, err = parseSteps(value)
		default:
			err = parseErr(key, "unknown for field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

func parseParallel(node *yaml.Node) (*schema.ParallelExpr, error) {
	if err := wantMapping(node, "parallel"); err != nil {
		return nil, err
	}
	p := &schema.ParallelExpr{}
	for key, value := range pairs(node) {
		switch key.Value {
		case "for":
			if err := wantMapping(value, "parallel for"); err != nil {
				return nil, err
			}
			pf := &schema.ParallelFor{}
			for fk, fv := range pairs(value) {
				var err error
				switch fk.Value {
				case "each":
					pf.Each, err = scalarValue(fv, fk.Value)
				case "in":
					pf.In, err = scalarValue(fv, fk.Value)
				case "index_key":
					pf.IndexKey, err = scalarValue(fv, fk.Value)
				case "output_key":
					pf.OutputKey, err = scalarValue(fv, fk.Value)
				case "steps":
					pf.Steps, err = parseSteps(fv)
				default:
					err = parseErr(fk, "unknown parallel for field %q", fk.Value)
				}
				if err != nil {
					return nil, err
				}
			}
			p.For = pf
		case "branches":
			if err := wantSequence(value, "branches"); err != nil {
				return nil, err
			}
			for _, item := range value.Content {
				if err := wantMapping(item, "branch"); err != nil {
					return nil, err
				}
				var b schema.Branch
				for bk, bv := range pairs(item) {
					if bk.Value != "steps" {
						return nil, parseErr(bk, "unknown branch field %q", bk.Value)
					}
					steps, err := parseSteps(bv)
					if err != nil {
						return nil, err
					}
					b.Steps = steps
				}
				p.Branches = append(p.Branches, b)
			}
		default:
			return nil, parseErr(key, "unknown parallel field %q", key.Value)
		}
	}
	return p, nil
}

func parseReturn(node *yaml.Node) (*schema.ReturnExpr, error) {
	if err := wantMapping(node, "return"); err != nil {
		return nil, err
	}
	r := &schema.ReturnExpr{}
	for key, value := range pairs(node) {
		if key.Value != "output_mapper" {
			return nil, parseErr(key, "unknown return field %q", key.Value)
		}
		mapper, err := parseArgs(value)
		if err != nil {
			return nil, err
		}
		r.OutputMapper = mapper
	}
	return r, nil
}

func parseRaise(node *yaml.Node) (*schema.RaiseExpr, error) {
	if err := wantMapping(node, "raise"); err != nil {
		return nil, err
	}
	r := &schema.RaiseExpr{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "message":
			r.Message, err = scalarValue(value, key.Value)
		case "output_key":
			r.OutputKey, err = scalarValue(value, key.Value)
		default:
			err = parseErr(key, "unknown raise field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return r, nil
}

func parseTryCatch(node *yaml.Node) (*schema.TryCatchExpr, error) {
	if err := wantMapping(node, "try_catch"); err != nil {
		return nil, err
	}
	tc := &schema.TryCatchExpr{}
	for key, value := range pairs(node) {
		switch key.Value {
		case "output_key":
			v, err := scalarValue(value, key.Value)
			if err != nil {
				return nil, err
			}
			tc.OutputKey = v
		case "try":
			steps, err := parseSteps(value)
			if err != nil {
				return nil, err
			}
			tc.Try = steps
		case "catch":
			if err := wantMapping(value, "catch"); err != nil {
				return nil, err
			}
			cb := &schema.CatchBlock{}
			for ck, cv := range pairs(value) {
				var err error
				switch ck.Value {
				case "steps":
					cb.Steps, err = parseSteps(cv)
				case "status_codes":
					cb.StatusCodes, err = scalarValue(cv, ck.Value)
				default:
					err = parseErr(ck, "unknown catch field %q", ck.Value)
				}
				if err != nil {
					return nil, err
				}
			}
			tc.Catch = cb
		default:
			return nil, parseErr(key, "unknown try_catch field %q", key.Value)
		}
	}
	return tc, nil
}

func parseDelay(node *yaml.Node) (*schema.DelayConfig, error) {
	if err := wantMapping(node, "delay_config"); err != nil {
		return nil, err
	}
	d := &schema.DelayConfig{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "milliseconds":
			d.Milliseconds, err = scalarValue(value, key.Value)
		case "seconds":
			d.Seconds, err = scalarValue(value, key.Value)
		case "minutes":
			d.Minutes, err = scalarValue(value, key.Value)
		case "hours":
			d.Hours, err = scalarValue(value, key.Value)
		default:
			err = parseErr(key, "unknown delay_config field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

func parseProgress(node *yaml.Node) (*schema.ProgressUpdates, error) {
	if err := wantMapping(node, "progress_updates"); err != nil {
		return nil, err
	}
	p := &schema.ProgressUpdates{}
	for key, value := range pairs(node) {
		var err error
		switch key.Value {
		case "on_pending":
			p.OnPending, err = scalarValue(value, key.Value)
		case "on_complete":
			p.OnComplete, err = scalarValue(value, key.Value)
		default:
			err = parseErr(key, "unknown progress_updates field %q", key.Value)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// parseArgs decodes an ordered mapping of scalar values, preserving the
// author-supplied key order.
func parseArgs(node *yaml.Node) (schema.Args, error) {
	if err := wantMapping(node, "mapping field"); err != nil {
		return nil, err
	}
	args := schema.Args{}
	for key, value := range pairs(node) {
		v, err := scalarValue(value, key.Value)
		if err != nil {
			return nil, err
		}
		args = append(args, schema.Arg{Name: key.Value, Value: v})
	}
	return args, nil
}

func parseStringSeq(node *yaml.Node) ([]string, error) {
	if err := wantSequence(node, "inputs"); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		v, err := scalarValue(item, "inputs entry")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// --- Node plumbing ---

// pairs iterates a mapping node's key/value pairs.
func pairs(m *yaml.Node) func(yield func(key, value *yaml.Node) bool) {
	return func(yield func(key, value *yaml.Node) bool) {
		for i := 0; i+1 < len(m.Content); i += 2 {
			if !yield(m.Content[i], m.Content[i+1]) {
				return
			}
		}
	}
}

// scalarValue returns a scalar node's raw text. Quoted, plain, and block
// scalars all surface their decoded content; the YAML-implied type is
// irrelevant here since field values are expression text.
func scalarValue(node *yaml.Node, field string) (string, error) {
	if node.Kind == yaml.AliasNode {
		return "", parseErr(node, "aliases are not allowed (%s)", field)
	}
	if node.Kind != yaml.ScalarNode {
		return "", parseErr(node, "%s must be a scalar", field)
	}
	// A resolver-tagged null with text ("~", "null", "Null") is still
	// author-supplied expression text; only a truly empty value decodes
	// to "".
	if node.Tag == "!!null" && node.Value == "" {
		return "", nil
	}
	return node.Value, nil
}

func wantMapping(node *yaml.Node, what string) error {
	if node.Kind == yaml.AliasNode {
		return parseErr(node, "aliases are not allowed (%s)", what)
	}
	if node.Kind != yaml.MappingNode {
		return parseErr(node, "%s must be a mapping", what)
	}
	return nil
}

func wantSequence(node *yaml.Node, what string) error {
	if node.Kind == yaml.AliasNode {
		return parseErr(node, "aliases are not allowed (%s)", what)
	}
	if node.Kind != yaml.SequenceNode {
		return parseErr(node, "%s must be a sequence", what)
	}
	return nil
}

func parseErr(node *yaml.Node, format string, args ...any) error {
	err := schema.NewErrorf(schema.ErrCodeParse, format, args...)
	if node != nil && node.Line > 0 {
		err.Details = map[string]any{"line": node.Line, "column": node.Column}
	}
	return err
}
