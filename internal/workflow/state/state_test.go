package state

import (
	"strings"
	"testing"
	"time"

	"github.com/haldane/guided/internal/workflow"
)

func demoWorkflow(t *testing.T) workflow.Workflow {
	t.Helper()
	wf, err := workflow.New("demo", "demo-cmd", "", []workflow.Step{
		{ID: "name", Name: "Name", Prompt: "Name?", Required: true, Order: 0},
	})
	if err != nil {
		t.Fatalf("workflow: %v", err)
	}
	return wf
}

func TestNewStartsRunningAtStepZero(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := New(demoWorkflow(t), now)
	if st.Status != StatusRunning {
		t.Fatalf("expected running, got %s", st.Status)
	}
	if st.CurrentStep != 0 {
		t.Fatalf("expected step 0, got %d", st.CurrentStep)
	}
	if st.Responses == nil {
		t.Fatalf("responses map must be initialized")
	}
	if !strings.HasPrefix(st.ID, "demo-cmd-") {
		t.Fatalf("run id should start with the command name: %s", st.ID)
	}
	if !st.CreatedAt.Equal(st.UpdatedAt) {
		t.Fatalf("created and updated should match at creation")
	}
}

func TestStatusTransitions(t *testing.T) {
	now := time.Now()
	st := New(demoWorkflow(t), now)

	if err := st.MarkInterrupted(now); err != nil {
		t.Fatalf("running -> interrupted: %v", err)
	}
	if err := st.MarkInterrupted(now); err == nil {
		t.Fatalf("interrupted -> interrupted must fail")
	}
	if err := st.Resume(now); err != nil {
		t.Fatalf("interrupted -> running: %v", err)
	}
	if err := st.MarkCompleted(now); err != nil {
		t.Fatalf("running -> completed: %v", err)
	}
	if err := st.MarkCancelled(now); err == nil {
		t.Fatalf("completed is terminal: cancel must fail")
	}
	if err := st.MarkInterrupted(now); err == nil {
		t.Fatalf("completed is terminal: interrupt must fail")
	}

	st2 := New(demoWorkflow(t), now)
	if err := st2.MarkCancelled(now); err != nil {
		t.Fatalf("running -> cancelled: %v", err)
	}
	if err := st2.MarkCompleted(now); err == nil {
		t.Fatalf("cancelled is terminal: complete must fail")
	}
}

func TestRecordOverwritesEarlierAttempt(t *testing.T) {
	now := time.Now()
	st := New(demoWorkflow(t), now)
	st.Record(workflow.StepResponse{StepID: "name", Value: "first", Timestamp: now}, now)
	st.Record(workflow.StepResponse{StepID: "name", Value: "second", Timestamp: now}, now.Add(time.Second))
	if got := st.Responses["name"].Value; got != "second" {
		t.Fatalf("later attempt must win, got %q", got)
	}
	if !st.UpdatedAt.After(now) {
		t.Fatalf("record must touch UpdatedAt")
	}
	if got := st.Values()["name"]; got != "second" {
		t.Fatalf("flattened value mismatch: %q", got)
	}
}

func TestNewRunIDMonotonicAndSorted(t *testing.T) {
	now := time.Now()
	a := NewRunID("init", now)
	b := NewRunID("init", now) // same instant: must still advance
	if a == b {
		t.Fatalf("ids must be unique: %s", a)
	}
	if !(a < b) {
		t.Fatalf("ids must sort by creation order: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, "init-") {
		t.Fatalf("id must carry the command name: %s", a)
	}
	if id := NewRunID("  ", now.Add(time.Hour)); !strings.HasPrefix(id, "run-") {
		t.Fatalf("blank command falls back to run-: %s", id)
	}
}
