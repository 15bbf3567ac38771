// Package engine orchestrates guided workflow runs: it sequences steps,
// delegates answer collection and validation, and checkpoints durable state
// after every transition so an interrupted run can be resumed.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/haldane/guided/internal/logging"
	"github.com/haldane/guided/internal/prompt"
	"github.com/haldane/guided/internal/workflow"
	"github.com/haldane/guided/internal/workflow/state"
	"github.com/haldane/guided/internal/workflow/validate"
)

// ErrCancelled reports a deliberate user cancellation. It is an outcome the
// hosting CLI maps to a clean exit, not a failure.
var ErrCancelled = errors.New("workflow engine: run cancelled")

// Engine drives one workflow run at a time through its collector, validator
// registry, and state store.
type Engine struct {
	collector prompt.Collector
	store     state.Store
	registry  *validate.Registry
	log       *logging.Logger
	clock     func() time.Time

	mu      sync.Mutex
	current *state.RunState
}

// Option customizes the engine instance.
type Option func(*Engine)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger attaches a file logger for checkpoint diagnostics.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// New wires an engine to its collaborators.
func New(collector prompt.Collector, store state.Store, registry *validate.Registry, opts ...Option) (*Engine, error) {
	if collector == nil {
		return nil, fmt.Errorf("workflow engine: collector is required")
	}
	if store == nil {
		return nil, fmt.Errorf("workflow engine: state store is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("workflow engine: validator registry is required")
	}
	engine := &Engine{
		collector: collector,
		store:     store,
		registry:  registry,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// Start returns the state the run will proceed from: a resumed interrupted
// state for the same command when the user accepts the offer, otherwise a
// fresh state at step zero. Fresh states are checkpointed immediately so
// even a zero-progress run is recoverable.
func (e *Engine) Start(wf workflow.Workflow) (state.RunState, error) {
	now := e.now()
	if e.interactive(wf) {
		if prior, err := e.store.Load(wf.Command); err == nil {
			if !resumable(wf, prior) {
				// The checkpoint predates the current definition of this
				// command: its cursor or responses fall outside the steps.
				e.logf("discard incompatible checkpoint %s (step %d of %d)",
					prior.ID, prior.CurrentStep, len(wf.Steps))
				if err := e.store.Delete(prior.ID); err != nil {
					e.logf("discard incompatible checkpoint %s: %v", prior.ID, err)
				}
			} else {
				resume, cerr := e.collector.Confirm(
					fmt.Sprintf("Resume the interrupted %s run from step %d of %d?",
						wf.Command, prior.CurrentStep+1, len(wf.Steps)),
					true,
				)
				if cerr != nil {
					return state.RunState{}, fmt.Errorf("workflow engine: resume offer: %w", cerr)
				}
				if resume {
					if err := prior.Resume(now); err != nil {
						return state.RunState{}, err
					}
					e.checkpoint(&prior)
					return prior, nil
				}
				// Declined: the old checkpoint would otherwise be offered on
				// every future invocation of this command.
				if err := e.store.Delete(prior.ID); err != nil {
					e.logf("discard declined checkpoint %s: %v", prior.ID, err)
				}
			}
		}
	}
	st := state.New(wf, now)
	e.checkpoint(&st)
	return st, nil
}

// resumable reports whether a persisted state still fits the workflow
// definition: the step cursor is in range and every recorded response
// belongs to a known step.
func resumable(wf workflow.Workflow, st state.RunState) bool {
	if st.CurrentStep < 0 || st.CurrentStep > len(wf.Steps) {
		return false
	}
	for id := range st.Responses {
		if _, ok := wf.StepByID(id); !ok {
			return false
		}
	}
	return true
}

// Run executes the workflow from wherever Start lands and returns the flat
// step id → value map. The caller alone performs real side effects with it.
func (e *Engine) Run(wf workflow.Workflow) (map[string]string, error) {
	if err := wf.Validate(); err != nil {
		return nil, err
	}
	col := e.collector
	if !e.interactive(wf) {
		// The workflow (or the session) declared batch mode: every step is
		// resolved from its default even when a terminal is attached.
		col = prompt.Batch{}
		// Fail before any prompt or checkpoint when batch mode cannot
		// possibly finish: a required step with no default has no human
		// to ask.
		for _, step := range wf.Steps {
			if step.Required && !step.HasDefault() {
				return nil, fmt.Errorf("workflow %s: step %s (%s): %w",
					wf.ID, step.ID, step.Name, prompt.ErrMissingDefault)
			}
		}
	}
	st, err := e.Start(wf)
	if err != nil {
		return nil, err
	}
	e.setCurrent(&st)
	defer e.setCurrent(nil)
	for st.CurrentStep < len(wf.Steps) {
		step := wf.Steps[st.CurrentStep]
		outcome, err := e.collect(col, step, &st)
		if err != nil {
			// Partial progress is worth keeping even on the way out.
			e.mu.Lock()
			e.checkpoint(&st)
			e.mu.Unlock()
			return nil, err
		}
		if err := e.advance(wf, &st, step, outcome); err != nil {
			return nil, err
		}
	}
	return e.finish(&st)
}

// advance applies one collected outcome. It holds the engine lock so the
// host's signal handler never mutates the same state concurrently.
func (e *Engine) advance(wf workflow.Workflow, st *state.RunState, step workflow.Step, outcome prompt.Outcome) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st.Status != state.StatusRunning {
		// A signal landed while input was pending; the run is already
		// interrupted and checkpointed, so the late answer is dropped.
		return ErrCancelled
	}
	now := e.now()
	switch outcome.Kind {
	case prompt.KindBack:
		if st.CurrentStep > 0 {
			st.CurrentStep--
		}
		// Single-level undo: the answer at the target step is discarded
		// so it can be collected again.
		delete(st.Responses, wf.Steps[st.CurrentStep].ID)
		st.UpdatedAt = now
		e.checkpoint(st)
		return nil
	case prompt.KindSkip:
		st.Record(workflow.StepResponse{
			StepID:    step.ID,
			Value:     step.Default,
			Skipped:   true,
			Timestamp: now,
		}, now)
	case prompt.KindCancel:
		if err := st.MarkCancelled(now); err != nil {
			return err
		}
		e.checkpoint(st)
		return ErrCancelled
	case prompt.KindValue:
		st.Record(workflow.StepResponse{
			StepID:    step.ID,
			Value:     outcome.Value,
			Timestamp: now,
		}, now)
	}
	st.CurrentStep++
	st.UpdatedAt = now
	e.checkpoint(st)
	return nil
}

// finish marks the run completed and drops its checkpoint.
func (e *Engine) finish(st *state.RunState) (map[string]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := st.MarkCompleted(e.now()); err != nil {
		if st.Status == state.StatusInterrupted {
			return nil, ErrCancelled
		}
		return nil, err
	}
	if err := e.store.Delete(st.ID); err != nil {
		e.logf("delete completed checkpoint %s: %v", st.ID, err)
	}
	return st.Values(), nil
}

// CancelCurrent interrupts whatever run is in flight and checkpoints it as
// eligible for resume. This is the entry point for the host's signal
// handler, which cannot see Run's local state; the engine lock serializes
// it against the run loop's own mutations.
func (e *Engine) CancelCurrent() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return fmt.Errorf("workflow engine: no run in flight")
	}
	if err := e.current.MarkInterrupted(e.now()); err != nil {
		return err
	}
	e.checkpoint(e.current)
	return nil
}

func (e *Engine) setCurrent(st *state.RunState) {
	e.mu.Lock()
	e.current = st
	e.mu.Unlock()
}

// collect obtains one outcome for the step, retrying on validation failure
// for as long as a human keeps answering. There is no retry cap.
func (e *Engine) collect(col prompt.Collector, step workflow.Step, st *state.RunState) (prompt.Outcome, error) {
	chain, err := e.registry.ForStep(step)
	if err != nil {
		return prompt.Outcome{}, err
	}
	for {
		var outcome prompt.Outcome
		var err error
		if step.IsChoice() {
			outcome, err = col.Choice(step)
		} else {
			outcome, err = col.Prompt(step)
		}
		if err != nil {
			return prompt.Outcome{}, err
		}
		if outcome.Kind == prompt.KindSkip && step.Required {
			// Collectors reject this themselves; guard anyway so a broken
			// collector cannot skip past a required answer.
			col.ShowError(fmt.Sprintf("%s is required and cannot be skipped", step.Name), "")
			continue
		}
		if outcome.Kind != prompt.KindValue {
			return outcome, nil
		}
		res := chain(outcome.Value, step, st.Responses)
		if res.Passed {
			return outcome, nil
		}
		col.ShowError(res.Message, res.Suggestion)
		if !col.Interactive() {
			// No human to retry with: a failing default is fatal.
			return prompt.Outcome{}, fmt.Errorf("workflow engine: step %s: default value failed validation: %s",
				step.ID, res.Message)
		}
	}
}

// checkpoint persists the state best-effort. Durability is a convenience,
// never a blocking contract: failures are logged and swallowed.
func (e *Engine) checkpoint(st *state.RunState) {
	if _, err := e.store.Save(*st); err != nil {
		e.logf("checkpoint %s at step %d: %v", st.ID, st.CurrentStep, err)
	}
}

func (e *Engine) interactive(wf workflow.Workflow) bool {
	return wf.Interactive && e.collector.Interactive()
}

func (e *Engine) logf(format string, args ...any) {
	e.log.Printf("workflow engine: "+format, args...)
}

func (e *Engine) now() time.Time {
	if e.clock == nil {
		return time.Now()
	}
	return e.clock()
}
