package workflow

import (
	"strings"
	"testing"
)

func validSteps() []Step {
	return []Step{
		{ID: "name", Name: "Project name", Prompt: "Name?", Required: true, Order: 0},
		{ID: "size", Name: "Size", Prompt: "Size?", Order: 1, Default: "M"},
		{ID: "confirm", Name: "Confirm", Prompt: "Proceed?", Required: true, Order: 2},
	}
}

func TestNewAcceptsContiguousOrder(t *testing.T) {
	wf, err := New("demo", "demo-cmd", "a demo", validSteps())
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	if len(wf.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(wf.Steps))
	}
	if !wf.Interactive {
		t.Fatalf("workflows default to interactive")
	}
}

func TestValidateRejectsMalformedDefinitions(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func([]Step) []Step
		wantErr string
	}{
		{
			name: "duplicate step id",
			mutate: func(steps []Step) []Step {
				steps[1].ID = "name"
				return steps
			},
			wantErr: "duplicate step id",
		},
		{
			name: "order gap",
			mutate: func(steps []Step) []Step {
				steps[2].Order = 5
				return steps
			},
			wantErr: "out of range",
		},
		{
			name: "duplicate order",
			mutate: func(steps []Step) []Step {
				steps[2].Order = 1
				return steps
			},
			wantErr: "order",
		},
		{
			name: "order out of position",
			mutate: func(steps []Step) []Step {
				steps[0].Order, steps[1].Order = 1, 0
				return steps
			},
			wantErr: "does not match position",
		},
		{
			name: "empty step id",
			mutate: func(steps []Step) []Step {
				steps[0].ID = " "
				return steps
			},
			wantErr: "id is required",
		},
		{
			name: "duplicate option key",
			mutate: func(steps []Step) []Step {
				steps[1].Options = []Option{{Key: "a"}, {Key: "A"}}
				return steps
			},
			wantErr: "duplicate option key",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New("demo", "demo-cmd", "", tc.mutate(validSteps()))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateRequiresCommand(t *testing.T) {
	if _, err := New("demo", " ", "", validSteps()); err == nil {
		t.Fatalf("expected command requirement error")
	}
	if _, err := New("demo", "demo-cmd", "", nil); err == nil {
		t.Fatalf("expected at-least-one-step error")
	}
}

func TestMatchOptionIsCaseInsensitive(t *testing.T) {
	step := Step{ID: "kind", Options: []Option{{Key: "Library"}, {Key: "Service"}}}
	key, ok := step.MatchOption("  service ")
	if !ok || key != "Service" {
		t.Fatalf("expected canonical key Service, got %q ok=%v", key, ok)
	}
	if _, ok := step.MatchOption("tool"); ok {
		t.Fatalf("unexpected match for unknown key")
	}
}

func TestCloneIsDeep(t *testing.T) {
	wf, err := New("demo", "demo-cmd", "", []Step{
		{ID: "kind", Name: "Kind", Prompt: "Kind?", Order: 0, Options: []Option{{Key: "a"}}},
	})
	if err != nil {
		t.Fatalf("new workflow: %v", err)
	}
	clone := wf.Clone()
	clone.Steps[0].Options[0].Key = "b"
	if wf.Steps[0].Options[0].Key != "a" {
		t.Fatalf("clone shares option storage with original")
	}
}
