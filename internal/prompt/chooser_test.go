package prompt

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/haldane/guided/internal/workflow"
)

func choiceStep(required bool) workflow.Step {
	return workflow.Step{
		ID: "kind", Name: "Kind", Prompt: "Project kind", Required: required, Default: "service",
		Options: []workflow.Option{
			{Key: "library", Description: "reusable package"},
			{Key: "service", Description: "long-running process"},
			{Key: "cli", Description: "command-line tool"},
		},
	}
}

func pressKey(t *testing.T, m chooserModel, key string) chooserModel {
	t.Helper()
	var msg tea.Msg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	next, ok := updated.(chooserModel)
	if !ok {
		t.Fatalf("update returned unexpected model type %T", updated)
	}
	return next
}

func TestChooserPreselectsDefault(t *testing.T) {
	m := newChooserModel(choiceStep(true))
	m = pressKey(t, m, "enter")
	if !m.decided {
		t.Fatalf("enter must decide")
	}
	if m.outcome.Kind != KindValue || m.outcome.Value != "service" {
		t.Fatalf("expected the default key selected, got %+v", m.outcome)
	}
}

func TestChooserNavigatesAndSelects(t *testing.T) {
	m := newChooserModel(choiceStep(true))
	m = pressKey(t, m, "down")
	m = pressKey(t, m, "enter")
	if m.outcome.Kind != KindValue || m.outcome.Value != "cli" {
		t.Fatalf("expected cli after moving down from the default, got %+v", m.outcome)
	}
}

func TestChooserEscGoesBack(t *testing.T) {
	m := pressKey(t, newChooserModel(choiceStep(true)), "esc")
	if !m.decided || m.outcome.Kind != KindBack {
		t.Fatalf("esc must yield back, got %+v", m.outcome)
	}
}

func TestChooserSkipOnlyWhenOptional(t *testing.T) {
	m := pressKey(t, newChooserModel(choiceStep(false)), "s")
	if !m.decided || m.outcome.Kind != KindSkip {
		t.Fatalf("s on an optional step must skip, got %+v", m.outcome)
	}
	m = pressKey(t, newChooserModel(choiceStep(true)), "s")
	if m.decided {
		t.Fatalf("s on a required step must be ignored")
	}
}

func TestChooserCancelKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		m := pressKey(t, newChooserModel(choiceStep(true)), key)
		if !m.decided || m.outcome.Kind != KindCancel {
			t.Fatalf("%s must cancel, got %+v", key, m.outcome)
		}
	}
}
