// Package workflow declares the data model for guided sessions: an ordered
// sequence of steps, the responses collected for them, and the validation
// rules that make a definition usable before any prompt is rendered.
package workflow

import (
	"fmt"
	"strings"
	"time"
)

// Option is one selectable entry of a choice step. Key is what the user
// types (or picks); Description is shown alongside it.
type Option struct {
	Key         string `json:"key" yaml:"key"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Step is a single question/answer unit of a workflow.
type Step struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Prompt   string   `json:"prompt" yaml:"prompt"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Order    int      `json:"order" yaml:"order"`
	Default  string   `json:"default,omitempty" yaml:"default,omitempty"`
	Options  []Option `json:"options,omitempty" yaml:"options,omitempty"`
	// Validator names a registry entry; empty means no validation beyond
	// the implicit required check.
	Validator string `json:"validator,omitempty" yaml:"validator,omitempty"`
}

// IsChoice reports whether the step enumerates options.
func (s Step) IsChoice() bool { return len(s.Options) > 0 }

// HasDefault reports whether the step carries a usable default value.
func (s Step) HasDefault() bool { return strings.TrimSpace(s.Default) != "" }

// OptionKeys returns the option keys in declaration order.
func (s Step) OptionKeys() []string {
	if len(s.Options) == 0 {
		return nil
	}
	keys := make([]string, len(s.Options))
	for i, opt := range s.Options {
		keys[i] = opt.Key
	}
	return keys
}

// MatchOption resolves a user answer against the step's options with a
// trimmed, case-insensitive comparison. Returns the canonical key.
func (s Step) MatchOption(answer string) (string, bool) {
	want := strings.ToLower(strings.TrimSpace(answer))
	for _, opt := range s.Options {
		if strings.ToLower(strings.TrimSpace(opt.Key)) == want {
			return opt.Key, true
		}
	}
	return "", false
}

// Clone returns a deep copy of the step.
func (s Step) Clone() Step {
	clone := s
	if len(s.Options) > 0 {
		clone.Options = make([]Option, len(s.Options))
		copy(clone.Options, s.Options)
	}
	return clone
}

// Workflow is an ordered sequence of steps defining one guided session for a
// single command. Command namespaces any persisted run state.
type Workflow struct {
	ID          string `json:"id" yaml:"id"`
	Command     string `json:"command" yaml:"command"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Interactive bool   `json:"interactive" yaml:"interactive"`
	Steps       []Step `json:"steps" yaml:"steps"`
}

// New validates the parts and assembles a workflow. Malformed definitions
// are rejected here, never at run time.
func New(id, command, description string, steps []Step) (Workflow, error) {
	wf := Workflow{
		ID:          id,
		Command:     command,
		Description: description,
		Interactive: true,
		Steps:       steps,
	}
	if err := wf.Validate(); err != nil {
		return Workflow{}, err
	}
	return wf, nil
}

// Validate ensures the workflow definition is self-consistent: non-empty
// identifiers, unique step ids, and Order values forming exactly 0..N-1.
func (wf Workflow) Validate() error {
	if strings.TrimSpace(wf.ID) == "" {
		return fmt.Errorf("workflow: id is required")
	}
	if strings.TrimSpace(wf.Command) == "" {
		return fmt.Errorf("workflow %s: command is required", wf.ID)
	}
	if len(wf.Steps) == 0 {
		return fmt.Errorf("workflow %s: at least one step is required", wf.ID)
	}
	seen := make(map[string]struct{}, len(wf.Steps))
	orders := make([]bool, len(wf.Steps))
	for idx, step := range wf.Steps {
		if strings.TrimSpace(step.ID) == "" {
			return fmt.Errorf("workflow %s step[%d]: id is required", wf.ID, idx)
		}
		if _, exists := seen[step.ID]; exists {
			return fmt.Errorf("workflow %s: duplicate step id %s", wf.ID, step.ID)
		}
		seen[step.ID] = struct{}{}
		if step.Order < 0 || step.Order >= len(wf.Steps) {
			return fmt.Errorf("workflow %s step %s: order %d out of range 0..%d", wf.ID, step.ID, step.Order, len(wf.Steps)-1)
		}
		if orders[step.Order] {
			return fmt.Errorf("workflow %s step %s: duplicate order %d", wf.ID, step.ID, step.Order)
		}
		orders[step.Order] = true
		if step.Order != idx {
			return fmt.Errorf("workflow %s step %s: order %d does not match position %d", wf.ID, step.ID, step.Order, idx)
		}
		seenOpts := make(map[string]struct{}, len(step.Options))
		for _, opt := range step.Options {
			key := strings.ToLower(strings.TrimSpace(opt.Key))
			if key == "" {
				return fmt.Errorf("workflow %s step %s: option with empty key", wf.ID, step.ID)
			}
			if _, exists := seenOpts[key]; exists {
				return fmt.Errorf("workflow %s step %s: duplicate option key %s", wf.ID, step.ID, opt.Key)
			}
			seenOpts[key] = struct{}{}
		}
	}
	return nil
}

// StepByID returns the step with the given id.
func (wf Workflow) StepByID(id string) (Step, bool) {
	for _, step := range wf.Steps {
		if step.ID == id {
			return step, true
		}
	}
	return Step{}, false
}

// Clone returns a deep copy of the workflow.
func (wf Workflow) Clone() Workflow {
	clone := wf
	if len(wf.Steps) > 0 {
		clone.Steps = make([]Step, len(wf.Steps))
		for i, step := range wf.Steps {
			clone.Steps[i] = step.Clone()
		}
	}
	return clone
}

// StepResponse records the final answer for one step of a run.
type StepResponse struct {
	StepID    string    `json:"step_id"`
	Value     string    `json:"value"`
	Skipped   bool      `json:"skipped,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
