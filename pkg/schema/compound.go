package schema

// CompoundAction is the root of a workflow document. It holds the ordered
// top-level step sequence and, optionally, the names of caller-supplied
// input variables (referenceable as data.<name>).
//
// A CompoundAction is a plain data tree: it can be built in any state,
// including incomplete or contradictory ones. Nothing here validates;
// that is the validation pipeline's job.
type CompoundAction struct {
	Inputs []string `json:"inputs,omitempty"`
	Steps  []Step   `json:"steps"`
}

// ExprKind identifies which of the eight expression variants a step carries.
type ExprKind string

const (
	KindAction   ExprKind = "action"
	KindScript   ExprKind = "script"
	KindSwitch   ExprKind = "switch"
	KindFor      ExprKind = "for"
	KindParallel ExprKind = "parallel"
	KindReturn   ExprKind = "return"
	KindRaise    ExprKind = "raise"
	KindTryCatch ExprKind = "try_catch"
)

// Kinds lists the eight expression kinds in canonical order.
var Kinds = []ExprKind{
	KindAction, KindScript, KindSwitch, KindFor,
	KindParallel, KindReturn, KindRaise, KindTryCatch,
}

// Step is a tagged union over the eight expression variants. Exactly one
// variant pointer should be non-nil; a step with zero or multiple active
// variants is constructable but flagged by structural validation.
type Step struct {
	Action   *ActionExpr   `json:"action,omitempty"`
	Script   *ScriptExpr   `json:"script,omitempty"`
	Switch   *SwitchExpr   `json:"switch,omitempty"`
	For      *ForExpr      `json:"for,omitempty"`
	Parallel *ParallelExpr `json:"parallel,omitempty"`
	Return   *ReturnExpr   `json:"return,omitempty"`
	Raise    *RaiseExpr    `json:"raise,omitempty"`
	TryCatch *TryCatchExpr `json:"try_catch,omitempty"`
}

// Kind returns the active variant's kind, or "" when no variant is set.
// When multiple variants are set it returns the first in canonical order;
// ActiveKinds reports the full situation.
func (s *Step) Kind() ExprKind {
	kinds := s.ActiveKinds()
	if len(kinds) == 0 {
		return ""
	}
	return kinds[0]
}

// ActiveKinds returns every variant set on this step, in canonical order.
func (s *Step) ActiveKinds() []ExprKind {
	var kinds []ExprKind
	for _, kind := range Kinds {
		if s.has(kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

// has reports whether the variant for kind is set on this step.
func (s *Step) has(kind ExprKind) bool {
	switch kind {
	case KindAction:
		return s.Action != nil
	case KindScript:
		return s.Script != nil
	case KindSwitch:
		return s.Switch != nil
	case KindFor:
		return s.For != nil
	case KindParallel:
		return s.Parallel != nil
	case KindReturn:
		return s.Return != nil
	case KindRaise:
		return s.Raise != nil
	case KindTryCatch:
		return s.TryCatch != nil
	}
	return false
}

// OutputKey returns the output binding this step declares, or "" when the
// active variant does not declare one (switch, return, branches-mode
// parallel) or the field is unset.
func (s *Step) OutputKey() string {
	switch {
	case s.Action != nil:
		return s.Action.OutputKey
	case s.Script != nil:
		return s.Script.OutputKey
	case s.For != nil:
		return s.For.OutputKey
	case s.Parallel != nil && s.Parallel.For != nil:
		return s.Parallel.For.OutputKey
	case s.Raise != nil:
		return s.Raise.OutputKey
	case s.TryCatch != nil:
		return s.TryCatch.OutputKey
	}
	return ""
}

// ActionExpr invokes a named platform action and binds its result.
// InputArgs values are reference expressions resolved against scope.
type ActionExpr struct {
	ActionName      string           `json:"action_name"`
	OutputKey       string           `json:"output_key"`
	InputArgs       Args             `json:"input_args,omitempty"`
	DelayConfig     *DelayConfig     `json:"delay_config,omitempty"`
	ProgressUpdates *ProgressUpdates `json:"progress_updates,omitempty"`
}

// DelayConfig delays action dispatch. Each field is a reference expression
// or numeric literal; at most one unit is normally set.
type DelayConfig struct {
	Milliseconds string `json:"milliseconds,omitempty"`
	Seconds      string `json:"seconds,omitempty"`
	Minutes      string `json:"minutes,omitempty"`
	Hours        string `json:"hours,omitempty"`
}

// ProgressUpdates carries user-facing status text emitted around an action.
type ProgressUpdates struct {
	OnPending  string `json:"on_pending,omitempty"`
	OnComplete string `json:"on_complete,omitempty"`
}

// ScriptExpr embeds a restricted script whose value becomes the step output.
// Code is statically analyzed, never executed, by this package's consumers.
type ScriptExpr struct {
	Code      string `json:"code"`
	OutputKey string `json:"output_key"`
	InputArgs Args   `json:"input_args,omitempty"`
}

// SwitchExpr routes to the first case whose condition holds, or to Default.
type SwitchExpr struct {
	Cases   []SwitchCase `json:"cases"`
	Default *DefaultCase `json:"default,omitempty"`
}

// SwitchCase pairs a boolean condition with the steps it guards.
type SwitchCase struct {
	Condition string `json:"condition"`
	Steps     []Step `json:"steps"`
}

// DefaultCase holds the steps taken when no case condition matches.
type DefaultCase struct {
	Steps []Step `json:"steps"`
}

// ForExpr iterates over a collection, binding Each and Index for the body.
// The aggregated iteration results bind to OutputKey after the loop.
type ForExpr struct {
	Each      string `json:"each"`
	Index     string `json:"index"`
	In        string `json:"in"`
	OutputKey string `json:"output_key"`
	Steps     []Step `json:"steps,omitempty"`
}

// ParallelExpr models concurrent execution in exactly one of two modes:
// a parallel-for over a collection, or a fixed list of branches. Setting
// both or neither is a structural error.
type ParallelExpr struct {
	For      *ParallelFor `json:"for,omitempty"`
	Branches []Branch     `json:"branches,omitempty"`
}

// ParallelFor is the for-mode payload of a parallel step.
type ParallelFor struct {
	Each      string `json:"each"`
	In        string `json:"in"`
	IndexKey  string `json:"index_key"`
	OutputKey string `json:"output_key"`
	Steps     []Step `json:"steps,omitempty"`
}

// Branch is one concurrent step list in branches-mode parallel.
type Branch struct {
	Steps []Step `json:"steps"`
}

// ReturnExpr terminates the workflow, mapping named outputs from scope.
type ReturnExpr struct {
	OutputMapper Args `json:"output_mapper"`
}

// RaiseExpr terminates the current sequence with an error message.
type RaiseExpr struct {
	Message   string `json:"message"`
	OutputKey string `json:"output_key,omitempty"`
}

// TryCatchExpr runs Try, diverting to Catch on failure. Catch may be
// restricted to specific HTTP status codes.
type TryCatchExpr struct {
	OutputKey string      `json:"output_key"`
	Try       []Step      `json:"try"`
	Catch     *CatchBlock `json:"catch,omitempty"`
}

// CatchBlock holds the recovery steps and an optional comma-separated
// list of 3-digit HTTP status codes that trigger it.
type CatchBlock struct {
	Steps       []Step `json:"steps"`
	StatusCodes string `json:"status_codes,omitempty"`
}
