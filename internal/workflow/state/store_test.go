package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/haldane/guided/internal/workflow"
)

func newTestStore(t *testing.T) *DirStore {
	t.Helper()
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store
}

func sampleState(command string, updated time.Time) RunState {
	return RunState{
		ID:          NewRunID(command, updated),
		WorkflowID:  "demo",
		Command:     command,
		CurrentStep: 1,
		Status:      StatusInterrupted,
		Responses: map[string]workflow.StepResponse{
			"name": {StepID: "name", Value: "widget", Timestamp: updated},
		},
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	st := sampleState("init", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	path, err := store.Save(st)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(path, st.ID+".json") {
		t.Fatalf("unexpected path %s", path)
	}
	loaded, err := store.Load("init")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != st.ID || loaded.CurrentStep != 1 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
	if loaded.Responses["name"].Value != "widget" {
		t.Fatalf("responses lost in round trip: %+v", loaded.Responses)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Save(sampleState("init", time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestLoadReturnsLatestInterrupted(t *testing.T) {
	store := newTestStore(t)
	older := sampleState("init", time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	newer := sampleState("init", time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC))
	for _, st := range []RunState{older, newer} {
		if _, err := store.Save(st); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	loaded, err := store.Load("init")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.ID != newer.ID {
		t.Fatalf("expected latest state %s, got %s", newer.ID, loaded.ID)
	}
}

func TestLoadIgnoresOtherCommandsAndStatuses(t *testing.T) {
	store := newTestStore(t)
	other := sampleState("spec", time.Now())
	if _, err := store.Save(other); err != nil {
		t.Fatalf("save: %v", err)
	}
	cancelled := sampleState("init", time.Now())
	cancelled.Status = StatusCancelled
	if _, err := store.Save(cancelled); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := store.Load("init"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadTreatsCorruptFilesAsAbsent(t *testing.T) {
	store := newTestStore(t)
	bad := filepath.Join(store.Dir(), "init-garbage.json")
	if err := os.WriteFile(bad, []byte("{truncated"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	if _, err := store.Load("init"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("corrupt file must read as absence, got %v", err)
	}
	good := sampleState("init", time.Now())
	if _, err := store.Save(good); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load("init")
	if err != nil {
		t.Fatalf("load alongside corrupt file: %v", err)
	}
	if loaded.ID != good.ID {
		t.Fatalf("expected %s, got %s", good.ID, loaded.ID)
	}
}

func TestDeleteMissingIsNotAnError(t *testing.T) {
	store := newTestStore(t)
	if err := store.Delete("never-saved"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	st := sampleState("init", time.Now())
	if _, err := store.Save(st); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(st.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load("init"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("state should be gone after delete")
	}
}

func TestListInterruptedNewestFirst(t *testing.T) {
	store := newTestStore(t)
	times := []time.Time{
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
	for i, ts := range times {
		command := "init"
		if i == 2 {
			command = "spec"
		}
		if _, err := store.Save(sampleState(command, ts)); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	states, err := store.ListInterrupted()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 states, got %d", len(states))
	}
	for i := 1; i < len(states); i++ {
		if states[i].UpdatedAt.After(states[i-1].UpdatedAt) {
			t.Fatalf("list not newest-first: %v then %v", states[i-1].UpdatedAt, states[i].UpdatedAt)
		}
	}
}

func TestCleanupStaleRespectsThreshold(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	store.clock = func() time.Time { return now }

	fresh := sampleState("init", now)
	if _, err := store.Save(fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	stale := sampleState("init", now.Add(-40*24*time.Hour))
	stalePath, err := store.Save(stale)
	if err != nil {
		t.Fatalf("save stale: %v", err)
	}
	corrupt := filepath.Join(store.Dir(), "broken.json")
	if err := os.WriteFile(corrupt, []byte("not json"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	old := now.Add(-40 * 24 * time.Hour)
	for _, path := range []string{stalePath, corrupt} {
		if err := os.Chtimes(path, old, old); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed, err := store.CleanupStale(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removals (stale + corrupt), got %d", removed)
	}
	if _, err := os.Stat(stalePath); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("stale file should be gone")
	}
	loaded, err := store.Load("init")
	if err != nil {
		t.Fatalf("fresh state must survive cleanup: %v", err)
	}
	if loaded.ID != fresh.ID {
		t.Fatalf("expected fresh state, got %s", loaded.ID)
	}
}

func TestCleanupStaleOnMissingDir(t *testing.T) {
	store, err := NewDirStore(filepath.Join(t.TempDir(), "never-created"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	removed, err := store.CleanupStale(30)
	if err != nil || removed != 0 {
		t.Fatalf("missing dir must be a no-op, got %d, %v", removed, err)
	}
}

func TestNopStore(t *testing.T) {
	var store NopStore
	if _, err := store.Save(sampleState("init", time.Now())); err != nil {
		t.Fatalf("nop save: %v", err)
	}
	if _, err := store.Load("init"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("nop load must report absence")
	}
	if err := store.Delete("x"); err != nil {
		t.Fatalf("nop delete: %v", err)
	}
}
