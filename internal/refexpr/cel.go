package refexpr

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ConditionChecker statically checks switch-case conditions. Conditions
// must compile as CEL expressions over data/meta_info (declared as dyn
// maps) plus any loop bindings in scope, and must not have a provably
// non-boolean result type. Nothing is evaluated.
// Thread-safe: compile outcomes are cached per condition and binding set.
type ConditionChecker struct {
	base *cel.Env

	mu    sync.RWMutex
	cache map[string]error
}

// NewConditionChecker creates a checker with the sandboxed base
// environment shared by all conditions.
func NewConditionChecker() (*ConditionChecker, error) {
	mapType := cel.MapType(cel.StringType, cel.DynType)

	env, err := cel.NewEnv(
		cel.Variable("data", mapType),
		cel.Variable("meta_info", mapType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &ConditionChecker{
		base:  env,
		cache: make(map[string]error),
	}, nil
}

// Check compiles condition with the given loop bindings declared as
// additional dyn variables. Returns nil when the condition is well-formed
// and potentially boolean, otherwise a descriptive error.
func (c *ConditionChecker) Check(condition string, loopBindings []string) error {
	if strings.TrimSpace(condition) == "" {
		return fmt.Errorf("empty condition")
	}

	key := cacheKey(condition, loopBindings)

	c.mu.RLock()
	if res, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return res
	}
	c.mu.RUnlock()

	res := c.compile(condition, loopBindings)

	c.mu.Lock()
	c.cache[key] = res
	c.mu.Unlock()
	return res
}

func (c *ConditionChecker) compile(condition string, loopBindings []string) error {
	env := c.base
	if len(loopBindings) > 0 {
		opts := make([]cel.EnvOption, 0, len(loopBindings))
		for _, name := range loopBindings {
			opts = append(opts, cel.Variable(name, cel.DynType))
		}
		extended, err := env.Extend(opts...)
		if err != nil {
			return fmt.Errorf("extend CEL environment: %w", err)
		}
		env = extended
	}

	checked, iss := env.Compile(condition)
	if iss != nil && iss.Err() != nil {
		return fmt.Errorf("condition does not compile: %s", iss.Err().Error())
	}

	// Dyn output is accepted: map lookups are untyped until runtime.
	out := checked.OutputType()
	if out != nil && !out.IsAssignableType(cel.BoolType) {
		return fmt.Errorf("condition has non-boolean result type %s", out.String())
	}
	return nil
}

// cacheKey joins the condition with the sorted binding set so the same
// condition under different scopes is checked independently.
func cacheKey(condition string, loopBindings []string) string {
	if len(loopBindings) == 0 {
		return condition
	}
	names := append([]string(nil), loopBindings...)
	sort.Strings(names)
	return condition + "\x00" + strings.Join(names, ",")
}
