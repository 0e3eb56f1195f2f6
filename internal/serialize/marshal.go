// Package serialize renders a compound-action document to its canonical
// textual form and parses that form back. The rendering is deterministic:
// expression fields follow a fixed canonical order, mapping fields keep
// author-supplied order, multi-line text uses literal block scalars, and
// scalar values are emitted in their original textual form.
package serialize

import (
	"bytes"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/compoundkit/compoundc/pkg/schema"
)

// Marshal renders doc as canonical YAML. Two structurally identical
// documents yield byte-identical output. Marshal assumes a validated
// document; a step with zero or several active variants is rejected.
func Marshal(doc *schema.CompoundAction) ([]byte, error) {
	if doc == nil {
		return nil, schema.NewError(schema.ErrCodeSerialization, "document is nil")
	}

	root := mapping()
	stepsNode, err := sequenceOf(doc.Steps)
	if err != nil {
		return nil, err
	}
	appendPair(root, "steps", stepsNode)
	if len(doc.Inputs) > 0 {
		appendPair(root, "inputs", stringSeq(doc.Inputs))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, schema.NewError(schema.ErrCodeSerialization, "encode document").WithCause(err)
	}
	if err := enc.Close(); err != nil {
		return nil, schema.NewError(schema.ErrCodeSerialization, "finish document").WithCause(err)
	}
	return buf.Bytes(), nil
}

func sequenceOf(steps []schema.Step) (*yaml.Node, error) {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for i := range steps {
		node, err := stepNode(&steps[i])
		if err != nil {
			return nil, err
		}
		seq.Content = append(seq.Content, node)
	}
	return seq, nil
}

// stepNode renders one step as a single-key mapping named by its kind.
func stepNode(s *schema.Step) (*yaml.Node, error) {
	kinds := s.ActiveKinds()
	if len(kinds) != 1 {
		return nil, schema.NewErrorf(schema.ErrCodeSerialization,
			"step has %d active expression kinds; exactly one is required", len(kinds))
	}

	var body *yaml.Node
	var err error
	switch kinds[0] {
	case schema.KindAction:
		body = actionNode(s.Action)
	case schema.KindScript:
		body = scriptNode(s.Script)
	case schema.KindSwitch:
		body, err = switchNode(s.Switch)
	case schema.KindFor:
		body, err = forNode(s.For)
	case schema.KindParallel:
		body, err = parallelNode(s.Parallel)
	case schema.KindReturn:
		body = returnNode(s.Return)
	case schema.KindRaise:
		body = raiseNode(s.Raise)
	case schema.KindTryCatch:
		body, err = tryCatchNode(s.TryCatch)
	}
	if err != nil {
		return nil, err
	}

	wrapper := mapping()
	appendPair(wrapper, string(kinds[0]), body)
	return wrapper, nil
}

// Canonical field order per expression kind is fixed below; it is neither
// alphabetical nor struct order, and must not change.

func actionNode(a *schema.ActionExpr) *yaml.Node {
	m := mapping()
	appendPair(m, "action_name", scalar(a.ActionName))
	appendPair(m, "output_key", scalar(a.OutputKey))
	if len(a.InputArgs) > 0 {
		appendPair(m, "input_args", argsNode(a.InputArgs))
	}
	if d := a.DelayConfig; d != nil {
		dm := mapping()
		appendOptional(dm, "milliseconds", d.Milliseconds)
		appendOptional(dm, "seconds", d.Seconds)
		appendOptional(dm, "minutes", d.Minutes)
		appendOptional(dm, "hours", d.Hours)
		appendPair(m, "delay_config", dm)
	}
	if p := a.ProgressUpdates; p != nil {
		pm := mapping()
		appendOptional(pm, "on_pending", p.OnPending)
		appendOptional(pm, "on_complete", p.OnComplete)
		appendPair(m, "progress_updates", pm)
	}
	return m
}

func scriptNode(s *schema.ScriptExpr) *yaml.Node {
	m := mapping()
	appendPair(m, "code", scalar(s.Code))
	appendPair(m, "output_key", scalar(s.OutputKey))
	if len(s.InputArgs) > 0 {
		appendPair(m, "input_args", argsNode(s.InputArgs))
	}
	return m
}

func switchNode(s *schema.SwitchExpr) (*yaml.Node, error) {
	m := mapping()
	cases := &yaml.Node{Kind: yaml.SequenceNode}
	for i := range s.Cases {
		cm := mapping()
		appendPair(cm, "condition", scalar(s.Cases[i].Condition))
		stepsNode, err := sequenceOf(s.Cases[i].Steps)
		if err != nil {
			return nil, err
		}
		appendPair(cm, "steps", stepsNode)
		cases.Content = append(cases.Content, cm)
	}
	appendPair(m, "cases", cases)
	if s.Default != nil {
		dm := mapping()
		stepsNode, err := sequenceOf(s.Default.Steps)
		if err != nil {
			return nil, err
		}
		appendPair(dm, "steps", stepsNode)
		appendPair(m, "default", dm)
	}
	return m, nil
}

func forNode(f *schema.ForExpr) (*yaml.Node, error) {
	m := mapping()
	appendPair(m, "each", scalar(f.Each))
	appendPair(m, "index", scalar(f.Index))
	appendPair(m, "in", scalar(f.In))
	appendPair(m, "output_key", scalar(f.OutputKey))
	stepsNode, err := sequenceOf(f.Steps)
	if err != nil {
		return nil, err
	}
	appendPair(m, "steps", stepsNode)
	return m, nil
}

func parallelNode(p *schema.ParallelExpr) (*yaml.Node, error) {
	m := mapping()
	if p.For != nil {
		fm := mapping()
		appendPair(fm, "each", scalar(p.For.Each))
		appendPair(fm, "in", scalar(p.For.In))
		appendPair(fm, "index_key", scalar(p.For.IndexKey))
		appendPair(fm, "output_key", scalar(p.For.OutputKey))
		stepsNode, err := sequenceOf(p.For.Steps)
		if err != nil {
			return nil, err
		}
		appendPair(fm, "steps", stepsNode)
		appendPair(m, "for", fm)
		return m, nil
	}

	branches := &yaml.Node{Kind: yaml.SequenceNode}
	for i := range p.Branches {
		bm := mapping()
		stepsNode, err := sequenceOf(p.Branches[i].Steps)
		if err != nil {
			return nil, err
		}
		appendPair(bm, "steps", stepsNode)
		branches.Content = append(branches.Content, bm)
	}
	appendPair(m, "branches", branches)
	return m, nil
}

func returnNode(r *schema.ReturnExpr) *yaml.Node {
	m := mapping()
	appendPair(m, "output_mapper", argsNode(r.OutputMapper))
	return m
}

func raiseNode(r *schema.RaiseExpr) *yaml.Node {
	m := mapping()
	appendPair(m, "message", scalar(r.Message))
	appendOptional(m, "output_key", r.OutputKey)
	return m
}

func tryCatchNode(tc *schema.TryCatchExpr) (*yaml.Node, error) {
	m := mapping()
	appendPair(m, "output_key", scalar(tc.OutputKey))
	tryNode, err := sequenceOf(tc.Try)
	if err != nil {
		return nil, err
	}
	appendPair(m, "try", tryNode)
	if tc.Catch != nil {
		cm := mapping()
		stepsNode, err := sequenceOf(tc.Catch.Steps)
		if err != nil {
			return nil, err
		}
		appendPair(cm, "steps", stepsNode)
		appendOptional(cm, "status_codes", tc.Catch.StatusCodes)
		appendPair(m, "catch", cm)
	}
	return m, nil
}

// --- Node helpers ---

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		value,
	)
}

func appendOptional(m *yaml.Node, key, value string) {
	if value != "" {
		appendPair(m, key, scalar(value))
	}
}

// scalar builds a value node. The tag is left for the encoder to resolve
// so numeric and boolean literals keep their original textual form.
// Multi-line text becomes a literal block scalar, newlines preserved
// verbatim.
func scalar(v string) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v}
	if strings.Contains(v, "\n") {
		n.Style = yaml.LiteralStyle
	}
	return n
}

func argsNode(args schema.Args) *yaml.Node {
	m := mapping()
	for _, arg := range args {
		appendPair(m, arg.Name, scalar(arg.Value))
	}
	return m
}

func stringSeq(items []string) *yaml.Node {
	seq := &yaml.Node{Kind: yaml.SequenceNode}
	for _, item := range items {
		seq.Content = append(seq.Content, scalar(item))
	}
	return seq
}
