package schema

import "fmt"

// WalkFunc is invoked for every step in depth-first pre-order, together
// with its structural path (e.g. "steps[1].switch.cases[0].steps[2]").
// Returning false stops the traversal.
type WalkFunc func(step *Step, path string) bool

// Walk traverses every step in the document depth-first, pre-order.
// Nested sequences are visited in their serialized order: switch cases
// before default, parallel for-body before branches, try before catch.
func (c *CompoundAction) Walk(fn WalkFunc) {
	walkSteps(c.Steps, "steps", fn)
}

func walkSteps(steps []Step, prefix string, fn WalkFunc) bool {
	for i := range steps {
		step := &steps[i]
		path := fmt.Sprintf("%s[%d]", prefix, i)
		if !fn(step, path) {
			return false
		}
		if !walkNested(step, path, fn) {
			return false
		}
	}
	return true
}

// walkNested descends into the sub-sequences owned by a step.
func walkNested(step *Step, path string, fn WalkFunc) bool {
	switch {
	case step.Switch != nil:
		for ci := range step.Switch.Cases {
			casePrefix := fmt.Sprintf("%s.switch.cases[%d].steps", path, ci)
			if !walkSteps(step.Switch.Cases[ci].Steps, casePrefix, fn) {
				return false
			}
		}
		if step.Switch.Default != nil {
			if !walkSteps(step.Switch.Default.Steps, path+".switch.default.steps", fn) {
				return false
			}
		}
	case step.For != nil:
		if !walkSteps(step.For.Steps, path+".for.steps", fn) {
			return false
		}
	case step.Parallel != nil:
		if step.Parallel.For != nil {
			if !walkSteps(step.Parallel.For.Steps, path+".parallel.for.steps", fn) {
				return false
			}
		}
		for bi := range step.Parallel.Branches {
			branchPrefix := fmt.Sprintf("%s.parallel.branches[%d].steps", path, bi)
			if !walkSteps(step.Parallel.Branches[bi].Steps, branchPrefix, fn) {
				return false
			}
		}
	case step.TryCatch != nil:
		if !walkSteps(step.TryCatch.Try, path+".try_catch.try", fn) {
			return false
		}
		if step.TryCatch.Catch != nil {
			if !walkSteps(step.TryCatch.Catch.Steps, path+".try_catch.catch.steps", fn) {
				return false
			}
		}
	}
	return true
}
