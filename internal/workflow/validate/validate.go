// Package validate holds the pure answer validators a workflow step may
// reference by name. Validators never touch the terminal; the engine decides
// what to do with a failed Result.
package validate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/haldane/guided/internal/workflow"
)

// Result reports one validation outcome. Suggestion, when present, tells the
// user how to fix the answer rather than just what was wrong.
type Result struct {
	Passed     bool
	Message    string
	Suggestion string
}

// Pass is the successful validation result.
func Pass() Result { return Result{Passed: true} }

// Fail builds a failed result with an optional suggestion.
func Fail(message, suggestion string) Result {
	return Result{Message: message, Suggestion: suggestion}
}

// Func checks a candidate answer for a step. Prior responses are available so
// a validator can depend on earlier answers. Implementations must be pure.
type Func func(value string, step workflow.Step, prior map[string]workflow.StepResponse) Result

// Chain combines validators; the first failure wins.
func Chain(funcs ...Func) Func {
	return func(value string, step workflow.Step, prior map[string]workflow.StepResponse) Result {
		for _, fn := range funcs {
			if fn == nil {
				continue
			}
			if res := fn(value, step, prior); !res.Passed {
				return res
			}
		}
		return Pass()
	}
}

// Registry maps validator names to functions. A registry is injected into the
// engine explicitly so test runs never share mutable process state.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: map[string]Func{}}
}

// Register adds or replaces a named validator.
func (r *Registry) Register(name string, fn Func) error {
	clean := strings.TrimSpace(name)
	if clean == "" {
		return fmt.Errorf("validate: validator name is required")
	}
	if fn == nil {
		return fmt.Errorf("validate: validator %s is nil", clean)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[clean] = fn
	return nil
}

// Lookup resolves a validator by name.
func (r *Registry) Lookup(name string) (Func, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[strings.TrimSpace(name)]
	return fn, ok
}

// Names lists registered validator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForStep resolves the chain a step needs: the implicit required check plus
// whatever the step's Validator field names. Unknown names fail loudly at
// lookup time rather than silently skipping validation.
func (r *Registry) ForStep(step workflow.Step) (Func, error) {
	funcs := []Func{Required}
	if step.IsChoice() {
		funcs = append(funcs, Choice)
	}
	if step.Validator != "" {
		fn, ok := r.Lookup(step.Validator)
		if !ok {
			return nil, fmt.Errorf("validate: step %s references unknown validator %q (registered: %s)",
				step.ID, step.Validator, strings.Join(r.Names(), ", "))
		}
		funcs = append(funcs, fn)
	}
	return Chain(funcs...), nil
}

// NewDefaultRegistry returns a registry preloaded with the built-ins.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("required", Required)
	r.Register("path_exists", PathExists)
	r.Register("choice", Choice)
	return r
}
