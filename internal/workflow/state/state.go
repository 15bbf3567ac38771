// Package state persists per-run checkpoints for guided workflow sessions.
// One JSON document per run, written atomically, read tolerantly: a file
// that cannot be parsed is treated as absent, never as an error.
package state

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/haldane/guided/internal/workflow"
)

// Status enumerates the lifecycle phases of a run.
type Status string

const (
	StatusRunning     Status = "running"
	StatusInterrupted Status = "interrupted"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
)

// Terminal reports whether no further mutation of the run is legal.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// RunState captures the persisted snapshot of one workflow run.
type RunState struct {
	ID          string                           `json:"id"`
	WorkflowID  string                           `json:"workflow_id"`
	Command     string                           `json:"command"`
	CurrentStep int                              `json:"current_step"`
	Status      Status                           `json:"status"`
	Responses   map[string]workflow.StepResponse `json:"responses"`
	CreatedAt   time.Time                        `json:"created_at"`
	UpdatedAt   time.Time                        `json:"updated_at"`
}

// New builds a fresh running state at step zero.
func New(wf workflow.Workflow, now time.Time) RunState {
	return RunState{
		ID:          NewRunID(wf.Command, now),
		WorkflowID:  wf.ID,
		Command:     wf.Command,
		CurrentStep: 0,
		Status:      StatusRunning,
		Responses:   map[string]workflow.StepResponse{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// MarkInterrupted records an abrupt stop. Only a running state may be
// interrupted; terminal states stay as they are.
func (st *RunState) MarkInterrupted(now time.Time) error {
	if st.Status != StatusRunning {
		return fmt.Errorf("state: cannot interrupt a %s run", st.Status)
	}
	st.Status = StatusInterrupted
	st.UpdatedAt = now
	return nil
}

// MarkCancelled records a deliberate user cancellation.
func (st *RunState) MarkCancelled(now time.Time) error {
	if st.Status.Terminal() {
		return fmt.Errorf("state: cannot cancel a %s run", st.Status)
	}
	st.Status = StatusCancelled
	st.UpdatedAt = now
	return nil
}

// MarkCompleted records successful completion of every step.
func (st *RunState) MarkCompleted(now time.Time) error {
	if st.Status != StatusRunning {
		return fmt.Errorf("state: cannot complete a %s run", st.Status)
	}
	st.Status = StatusCompleted
	st.UpdatedAt = now
	return nil
}

// Resume flips an interrupted state back to running.
func (st *RunState) Resume(now time.Time) error {
	if st.Status != StatusInterrupted {
		return fmt.Errorf("state: cannot resume a %s run", st.Status)
	}
	st.Status = StatusRunning
	st.UpdatedAt = now
	return nil
}

// Record stores the response for a step, replacing any earlier attempt.
func (st *RunState) Record(resp workflow.StepResponse, now time.Time) {
	if st.Responses == nil {
		st.Responses = map[string]workflow.StepResponse{}
	}
	st.Responses[resp.StepID] = resp
	st.UpdatedAt = now
}

// Values flattens the responses into the step id → value map callers consume.
func (st RunState) Values() map[string]string {
	out := make(map[string]string, len(st.Responses))
	for id, resp := range st.Responses {
		out[id] = resp.Value
	}
	return out
}

// runIDStamp is fixed width so run ids sort lexicographically by time.
const runIDStamp = "20060102150405.000000000"

var (
	runIDMu   sync.Mutex
	runIDLast time.Time
)

// NewRunID derives a unique, naturally sorted run identifier from the
// command name and a monotonically advancing timestamp. Two calls within
// the same nanosecond still produce distinct, ordered ids.
func NewRunID(command string, now time.Time) string {
	base := strings.TrimSpace(command)
	if base == "" {
		base = "run"
	}
	base = strings.ToLower(strings.ReplaceAll(base, " ", "-"))

	runIDMu.Lock()
	if !now.After(runIDLast) {
		now = runIDLast.Add(time.Nanosecond)
	}
	runIDLast = now
	runIDMu.Unlock()

	return fmt.Sprintf("%s-%s", base, now.UTC().Format(runIDStamp))
}
