package validation

import (
	"fmt"
	"strings"

	"github.com/compoundkit/compoundc/pkg/schema"
)

// validateCrossField enforces per-variant required fields and the
// cross-field rules that neither the shape schema nor the scope pass
// cover: switch case counts, parallel mode exclusivity, loop identifier
// distinctness, status-code syntax, the global output_key namespace, and
// unreachable steps after a raise. Findings accumulate; nothing aborts.
func validateCrossField(doc *schema.CompoundAction) *schema.ValidationResult {
	cf := &crossField{
		result:  &schema.ValidationResult{},
		outputs: make(map[string]string),
	}
	cf.sequence(doc.Steps, "steps")
	return cf.result
}

type crossField struct {
	result *schema.ValidationResult

	// outputs maps output_key -> first declaring path. Pass-scoped, so
	// validation stays referentially transparent across documents.
	outputs map[string]string
}

// sequence checks each step of one owned step list, in document order.
func (cf *crossField) sequence(steps []schema.Step, prefix string) {
	for i := range steps {
		path := fmt.Sprintf("%s[%d]", prefix, i)
		last := i == len(steps)-1
		cf.step(&steps[i], path, last)
	}
}

func (cf *crossField) step(step *schema.Step, path string, last bool) {
	kinds := step.ActiveKinds()
	switch len(kinds) {
	case 0:
		// Also caught by the shape schema for externally-parsed
		// documents; kept here so in-memory editing gets the same
		// finding with a friendlier message.
		cf.result.AddError(path, schema.DiagInvalidStructure,
			"step does not specify an expression (one of action, script, switch, for, parallel, return, raise, try_catch)")
		return
	case 1:
	default:
		names := make([]string, len(kinds))
		for i, k := range kinds {
			names[i] = string(k)
		}
		cf.result.AddErrorf(path, schema.DiagInvalidStructure,
			"step specifies %s; expression kinds are mutually exclusive", strings.Join(names, " and "))
	}

	switch {
	case step.Action != nil:
		cf.action(step.Action, path+".action")
	case step.Script != nil:
		cf.script(step.Script, path+".script")
	case step.Switch != nil:
		cf.switchExpr(step.Switch, path+".switch")
	case step.For != nil:
		cf.forExpr(step.For, path+".for")
	case step.Parallel != nil:
		cf.parallel(step.Parallel, path+".parallel")
	case step.Return != nil:
		cf.returnExpr(step.Return, path+".return")
	case step.Raise != nil:
		cf.raise(step.Raise, path+".raise", last)
	case step.TryCatch != nil:
		cf.tryCatch(step.TryCatch, path+".try_catch")
	}
}

func (cf *crossField) action(a *schema.ActionExpr, path string) {
	cf.require(a.ActionName, path+".action_name")
	cf.require(a.OutputKey, path+".output_key")
	cf.declareOutput(a.OutputKey, path+".output_key")
}

func (cf *crossField) script(s *schema.ScriptExpr, path string) {
	cf.require(s.Code, path+".code")
	cf.require(s.OutputKey, path+".output_key")
	cf.declareOutput(s.OutputKey, path+".output_key")
}

func (cf *crossField) switchExpr(s *schema.SwitchExpr, path string) {
	if len(s.Cases) == 0 {
		cf.result.AddError(path+".cases", schema.DiagMissingField,
			"switch requires at least one case")
	}
	for ci, c := range s.Cases {
		casePath := fmt.Sprintf("%s.cases[%d]", path, ci)
		cf.require(c.Condition, casePath+".condition")
		cf.sequence(c.Steps, casePath+".steps")
	}
	if s.Default != nil {
		cf.sequence(s.Default.Steps, path+".default.steps")
	}
}

func (cf *crossField) forExpr(f *schema.ForExpr, path string) {
	cf.require(f.Each, path+".each")
	cf.require(f.Index, path+".index")
	cf.require(f.In, path+".in")
	cf.require(f.OutputKey, path+".output_key")
	cf.distinct(f.Each, f.Index, path, "each", "index")
	cf.declareOutput(f.OutputKey, path+".output_key")
	cf.sequence(f.Steps, path+".steps")
}

func (cf *crossField) parallel(p *schema.ParallelExpr, path string) {
	switch {
	case p.For == nil && len(p.Branches) == 0:
		cf.result.AddError(path, schema.DiagMissingField,
			"parallel requires either for or branches")
	case p.For != nil && len(p.Branches) > 0:
		cf.result.AddError(path, schema.DiagInvalidStructure,
			"parallel for and branches are mutually exclusive")
	}

	if p.For != nil {
		forPath := path + ".for"
		cf.require(p.For.Each, forPath+".each")
		cf.require(p.For.In, forPath+".in")
		cf.require(p.For.IndexKey, forPath+".index_key")
		cf.require(p.For.OutputKey, forPath+".output_key")
		cf.distinct(p.For.Each, p.For.IndexKey, forPath, "each", "index_key")
		cf.declareOutput(p.For.OutputKey, forPath+".output_key")
		cf.sequence(p.For.Steps, forPath+".steps")
	}
	for bi := range p.Branches {
		branchPath := fmt.Sprintf("%s.branches[%d]", path, bi)
		if len(p.Branches[bi].Steps) == 0 {
			cf.result.AddError(branchPath+".steps", schema.DiagMissingField,
				"parallel branch has no steps")
		}
		cf.sequence(p.Branches[bi].Steps, branchPath+".steps")
	}
}

func (cf *crossField) returnExpr(r *schema.ReturnExpr, path string) {
	if len(r.OutputMapper) == 0 {
		cf.result.AddError(path+".output_mapper", schema.DiagMissingField,
			"return requires an output_mapper")
	}
}

func (cf *crossField) raise(r *schema.RaiseExpr, path string, last bool) {
	cf.require(r.Message, path+".message")
	cf.declareOutput(r.OutputKey, path+".output_key")
	if !last {
		cf.result.AddWarning(path, schema.DiagUnconditionalRaise,
			"steps after this raise are unreachable")
	}
}

func (cf *crossField) tryCatch(tc *schema.TryCatchExpr, path string) {
	cf.require(tc.OutputKey, path+".output_key")
	if len(tc.Try) == 0 {
		cf.result.AddError(path+".try", schema.DiagMissingField,
			"try_catch requires a try block")
	}
	cf.declareOutput(tc.OutputKey, path+".output_key")
	cf.sequence(tc.Try, path+".try")

	if tc.Catch != nil {
		if len(tc.Catch.Steps) == 0 {
			cf.result.AddError(path+".catch.steps", schema.DiagMissingField,
				"catch block has no steps")
		}
		cf.statusCodes(tc.Catch.StatusCodes, path+".catch.status_codes")
		cf.sequence(tc.Catch.Steps, path+".catch.steps")
	}
}

// statusCodes checks a comma-separated list of 3-digit HTTP status codes.
func (cf *crossField) statusCodes(codes, path string) {
	if codes == "" {
		return
	}
	for _, item := range strings.Split(codes, ",") {
		code := strings.TrimSpace(item)
		if !isStatusCode(code) {
			cf.result.AddErrorf(path, schema.DiagInvalidStatusCode,
				"%q is not a 3-digit HTTP status code", code)
		}
	}
}

func isStatusCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	if code[0] < '1' || code[0] > '5' {
		return false
	}
	for i := 1; i < 3; i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

// require flags an empty required field.
func (cf *crossField) require(value, path string) {
	if strings.TrimSpace(value) == "" {
		cf.result.AddError(path, schema.DiagMissingField, "required field is missing")
	}
}

// distinct flags identical loop identifiers.
func (cf *crossField) distinct(a, b, path, nameA, nameB string) {
	if a != "" && a == b {
		cf.result.AddErrorf(path, schema.DiagInvalidStructure,
			"%s and %s must be distinct identifiers (both are %q)", nameA, nameB, a)
	}
}

// declareOutput records an output_key in the workflow-wide namespace,
// flagging the second and later declarations of the same name.
func (cf *crossField) declareOutput(key, path string) {
	if key == "" {
		return
	}
	if first, exists := cf.outputs[key]; exists {
		cf.result.AddErrorf(path, schema.DiagDuplicateOutputKey,
			"output_key %q already declared at %s", key, first)
		return
	}
	cf.outputs[key] = path
}
