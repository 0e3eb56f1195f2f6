// Package scope computes, for every point in a compound-action tree, the
// set of named bindings available for reference, and resolves reference
// expressions against it. Sibling branches of switch/parallel each start
// from the same snapshot and never see each other's declarations; loop
// bindings exist only inside their loop body.
package scope

// BindingKind distinguishes step outputs from loop-bound names.
type BindingKind string

const (
	BindingOutput BindingKind = "output"
	BindingLoop   BindingKind = "loop"
)

// Binding is one name visible at a point in the step tree.
type Binding struct {
	Name       string      `json:"name"`
	Kind       BindingKind `json:"kind"`
	DeclaredAt string      `json:"declared_at"`
}

// snapshot is an ordered binding list. Insertion order is declaration
// order, which keeps diagnostics deterministic. Callers clone before
// appending so sibling branches stay isolated.
type snapshot []Binding

func (s snapshot) clone() snapshot {
	return append(snapshot(nil), s...)
}

func (s snapshot) lookup(name string) (Binding, bool) {
	// Later declarations win, matching loop-binding shadowing.
	for i := len(s) - 1; i >= 0; i-- {
		if s[i].Name == name {
			return s[i], true
		}
	}
	return Binding{}, false
}

// loopNames returns the names of all visible loop bindings.
func (s snapshot) loopNames() []string {
	var names []string
	for _, b := range s {
		if b.Kind == BindingLoop {
			names = append(names, b.Name)
		}
	}
	return names
}
