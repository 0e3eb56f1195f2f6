package scope

import (
	"fmt"

	"github.com/compoundkit/compoundc/internal/refexpr"
	"github.com/compoundkit/compoundc/pkg/schema"
)

// Reference roots with ambient meaning. data carries caller inputs and
// step outputs; meta_info carries requestor metadata from the platform.
const (
	rootData = "data"
	rootMeta = "meta_info"
)

// Tracker runs the depth-first scope pass: it resolves every reference
// expression in a document against the bindings visible at that point and
// checks switch conditions. It holds no per-document state and is safe to
// reuse across documents and goroutines.
type Tracker struct {
	checker *refexpr.ConditionChecker
}

// New creates a Tracker. checker may be nil to skip condition compilation
// (e.g. when only building scope snapshots for tooling).
func New(checker *refexpr.ConditionChecker) *Tracker {
	return &Tracker{checker: checker}
}

// Validate resolves every reference expression in doc and returns the
// accumulated diagnostics. Resolution failures never abort the pass.
func (t *Tracker) Validate(doc *schema.CompoundAction) *schema.ValidationResult {
	p := t.newPass(doc)
	p.walkSeq(doc.Steps, "steps", snapshot{})
	return p.result
}

// At returns the bindings visible at nodePath, for editor tooling such as
// reference autocompletion. nodePath addresses a step (e.g.
// "steps[1].for.steps[0]"); the index one past the end of a sequence is
// also accepted, meaning "a step about to be appended here".
func (t *Tracker) At(doc *schema.CompoundAction, nodePath string) ([]Binding, error) {
	p := t.newPass(doc)
	p.target = nodePath
	p.walkSeq(doc.Steps, "steps", snapshot{})
	if !p.found {
		return nil, schema.NewErrorf(schema.ErrCodeNotFound,
			"no step at %q", nodePath).WithPath(nodePath)
	}
	return p.captured, nil
}

func (t *Tracker) newPass(doc *schema.CompoundAction) *pass {
	inputs := make(map[string]struct{}, len(doc.Inputs))
	for _, name := range doc.Inputs {
		inputs[name] = struct{}{}
	}
	return &pass{
		checker: t.checker,
		inputs:  inputs,
		result:  &schema.ValidationResult{},
	}
}

// pass is the per-document traversal state.
type pass struct {
	checker *refexpr.ConditionChecker
	inputs  map[string]struct{}
	result  *schema.ValidationResult

	target   string
	found    bool
	captured []Binding
}

// walkSeq visits one owned step sequence. sc is owned by this call and
// appended to freely; callers pass a clone for branch isolation.
func (p *pass) walkSeq(steps []schema.Step, prefix string, sc snapshot) {
	for i := range steps {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		p.capture(path, sc)
		sc = p.visitStep(&steps[i], path, sc)
	}
	// One past the end: the insertion point for a new step.
	p.capture(fmt.Sprintf("%s[%d]", prefix, len(steps)), sc)
}

func (p *pass) capture(path string, sc snapshot) {
	if !p.found && p.target == path {
		p.found = true
		p.captured = sc.clone()
	}
}

// visitStep resolves the step's own reference expressions against sc,
// descends into nested sequences, and returns sc extended with whatever
// binding the step declares. A step never sees its own output.
func (p *pass) visitStep(step *schema.Step, path string, sc snapshot) snapshot {
	switch {
	case step.Action != nil:
		a := step.Action
		p.resolveArgs(a.InputArgs, path+".action.input_args", sc)
		if d := a.DelayConfig; d != nil {
			p.resolveValue(d.Milliseconds, path+".action.delay_config.milliseconds", sc)
			p.resolveValue(d.Seconds, path+".action.delay_config.seconds", sc)
			p.resolveValue(d.Minutes, path+".action.delay_config.minutes", sc)
			p.resolveValue(d.Hours, path+".action.delay_config.hours", sc)
		}
		return p.declare(sc, a.OutputKey, path)

	case step.Script != nil:
		p.resolveArgs(step.Script.InputArgs, path+".script.input_args", sc)
		return p.declare(sc, step.Script.OutputKey, path)

	case step.Switch != nil:
		for ci, cs := range step.Switch.Cases {
			casePath := fmt.Sprintf("%s.switch.cases[%d]", path, ci)
			p.checkCondition(cs.Condition, casePath+".condition", sc)
			p.walkSeq(cs.Steps, casePath+".steps", sc.clone())
		}
		if step.Switch.Default != nil {
			p.walkSeq(step.Switch.Default.Steps, path+".switch.default.steps", sc.clone())
		}
		return sc

	case step.For != nil:
		f := step.For
		p.resolveValue(f.In, path+".for.in", sc)
		body := sc.clone()
		body = p.declareLoop(body, f.Each, path+".for.each", sc)
		body = p.declareLoop(body, f.Index, path+".for.index", sc)
		p.walkSeq(f.Steps, path+".for.steps", body)
		return p.declare(sc, f.OutputKey, path)

	case step.Parallel != nil:
		pl := step.Parallel
		if pl.For != nil {
			p.resolveValue(pl.For.In, path+".parallel.for.in", sc)
			body := sc.clone()
			body = p.declareLoop(body, pl.For.Each, path+".parallel.for.each", sc)
			body = p.declareLoop(body, pl.For.IndexKey, path+".parallel.for.index_key", sc)
			p.walkSeq(pl.For.Steps, path+".parallel.for.steps", body)
			return p.declare(sc, pl.For.OutputKey, path)
		}
		for bi := range pl.Branches {
			branchPath := fmt.Sprintf("%s.parallel.branches[%d].steps", path, bi)
			p.walkSeq(pl.Branches[bi].Steps, branchPath, sc.clone())
		}
		return sc

	case step.Return != nil:
		p.resolveArgs(step.Return.OutputMapper, path+".return.output_mapper", sc)
		return sc

	case step.Raise != nil:
		p.resolveValue(step.Raise.Message, path+".raise.message", sc)
		return p.declare(sc, step.Raise.OutputKey, path)

	case step.TryCatch != nil:
		tc := step.TryCatch
		p.walkSeq(tc.Try, path+".try_catch.try", sc.clone())
		if tc.Catch != nil {
			// Catch cannot assume any try-block binding exists: the
			// try may have failed before producing it.
			p.walkSeq(tc.Catch.Steps, path+".try_catch.catch.steps", sc.clone())
		}
		return p.declare(sc, tc.OutputKey, path)
	}
	return sc
}

// declare appends an output binding, after the step's own references were
// resolved. Empty names are skipped (flagged as MissingField elsewhere).
func (p *pass) declare(sc snapshot, name, path string) snapshot {
	if name == "" {
		return sc
	}
	return append(sc, Binding{Name: name, Kind: BindingOutput, DeclaredAt: path})
}

// declareLoop appends a loop binding to the body scope, warning when it
// shadows a binding visible in the enclosing scope. Re-use of the same
// loop name across disjoint loops carries no visible binding and is not
// flagged.
func (p *pass) declareLoop(body snapshot, name, fieldPath string, enclosing snapshot) snapshot {
	if name == "" {
		return body
	}
	if prior, ok := enclosing.lookup(name); ok {
		p.result.AddWarningf(fieldPath, schema.DiagIdentifierShadowing,
			"%q shadows the %s binding declared at %s", name, prior.Kind, prior.DeclaredAt)
	}
	return append(body, Binding{Name: name, Kind: BindingLoop, DeclaredAt: fieldPath})
}

func (p *pass) resolveArgs(args schema.Args, prefix string, sc snapshot) {
	for _, arg := range args {
		p.resolveValue(arg.Value, prefix+"."+arg.Name, sc)
	}
}

// resolveValue statically resolves one field value. Plain text and
// literals pass through; expression roots must be data, meta_info, or a
// visible loop binding. A data path deeper than one segment must start at
// a visible output binding or a declared workflow input; single-segment
// data paths are presumed caller-supplied inputs, which are not statically
// knowable.
func (p *pass) resolveValue(value, path string, sc snapshot) {
	expr, _ := refexpr.Parse(value)
	if expr == nil || expr.ConstOnly {
		return
	}
	if expr.SingleIdent {
		// A lone identifier reads as prose unless it names something.
		name := expr.Roots[0].Name
		if name == rootData || name == rootMeta {
			return
		}
		if b, ok := sc.lookup(name); ok && b.Kind == BindingLoop {
			return
		}
		return
	}

	for _, root := range expr.Roots {
		p.resolveRoot(root, path, sc)
	}
}

func (p *pass) resolveRoot(root refexpr.Root, path string, sc snapshot) {
	switch root.Name {
	case rootMeta:
		return
	case rootData:
		if len(root.Path) <= 1 {
			return
		}
		first := root.Path[0]
		if _, ok := p.inputs[first]; ok {
			return
		}
		if b, ok := sc.lookup(first); ok && b.Kind == BindingOutput {
			return
		}
		p.result.AddErrorf(path, schema.DiagUnresolvedReference,
			"data.%s does not resolve: no prior step declares output_key %q and it is not a declared input", first, first)
	default:
		if b, ok := sc.lookup(root.Name); ok && b.Kind == BindingLoop {
			return
		}
		p.result.AddErrorf(path, schema.DiagUnresolvedReference,
			"%q is not data, meta_info, or a loop binding in scope", root.Name)
	}
}

// checkCondition resolves a switch condition's references and, when a
// checker is configured, compiles it to catch malformed expressions.
func (p *pass) checkCondition(cond, path string, sc snapshot) {
	if cond == "" {
		return // MissingField belongs to the structural pass
	}
	p.resolveValue(cond, path, sc)
	if p.checker == nil {
		return
	}
	if err := p.checker.Check(cond, sc.loopNames()); err != nil {
		p.result.AddErrorf(path, schema.DiagMalformedExpression,
			"condition %q: %s", cond, err.Error())
	}
}
