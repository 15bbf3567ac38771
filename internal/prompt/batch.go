package prompt

import "github.com/haldane/guided/internal/workflow"

// Batch resolves every step without a human: defaults win, required steps
// without one fail with ErrMissingDefault, and confirmations take their
// default answer. The engine substitutes it for the session collector
// whenever a workflow declares itself non-interactive, so a workflow in
// batch mode never blocks on input even when a terminal is attached.
type Batch struct{}

// Interactive is false: there is never a human behind a Batch collector.
func (Batch) Interactive() bool { return false }

// Prompt resolves the step from its default.
func (Batch) Prompt(step workflow.Step) (Outcome, error) { return resolveBatch(step) }

// Choice resolves the step from its default, which must name an option key.
func (Batch) Choice(step workflow.Step) (Outcome, error) { return resolveBatchChoice(step) }

// Confirm answers with the default.
func (Batch) Confirm(text string, def bool) (bool, error) { return def, nil }

// ShowError drops the message; batch failures surface as errors instead.
func (Batch) ShowError(message, suggestion string) {}
