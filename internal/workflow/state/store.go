package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no resumable state exists for a command.
var ErrNotFound = errors.New("state: not found")

// Store persists run state snapshots.
type Store interface {
	// Save writes the full snapshot and returns the path it landed at.
	Save(st RunState) (string, error)
	// Load returns the most recently updated interrupted state for the
	// command, or ErrNotFound.
	Load(command string) (RunState, error)
	// Delete removes the checkpoint for a run id; a missing file is not
	// an error.
	Delete(runID string) error
	// ListInterrupted returns every interrupted state, newest first.
	ListInterrupted() ([]RunState, error)
	// CleanupStale removes files older than maxAgeDays by modification
	// time, unparseable ones included, and reports how many went away.
	CleanupStale(maxAgeDays int) (int, error)
}

// DirStore keeps one JSON document per run under a single directory.
type DirStore struct {
	dir   string
	clock func() time.Time
}

// NewDirStore creates a store rooted at dir.
func NewDirStore(dir string) (*DirStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("state: store directory is required")
	}
	return &DirStore{dir: dir, clock: time.Now}, nil
}

// Dir returns the directory backing the store.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

// Save serializes the state through a temp-file-then-rename sequence so a
// crash mid-write never leaves a truncated document in place of a valid one.
func (s *DirStore) Save(st RunState) (string, error) {
	if strings.TrimSpace(st.ID) == "" {
		return "", fmt.Errorf("state: run id is required")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("state: ensure store dir: %w", err)
	}
	encoded, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("state: encode run %s: %w", st.ID, err)
	}
	tmp, err := os.CreateTemp(s.dir, st.ID+".tmp-")
	if err != nil {
		return "", fmt.Errorf("state: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(encoded, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return "", fmt.Errorf("state: write run %s: %w", st.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("state: close temp file: %w", err)
	}
	final := s.path(st.ID)
	if err := os.Rename(tmpPath, final); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("state: replace run %s: %w", st.ID, err)
	}
	return final, nil
}

// Load scans for interrupted states matching the command and returns the
// one with the latest UpdatedAt. Unparseable files are skipped.
func (s *DirStore) Load(command string) (RunState, error) {
	states, err := s.scan(func(st RunState) bool {
		return st.Command == command && st.Status == StatusInterrupted
	})
	if err != nil {
		return RunState{}, err
	}
	if len(states) == 0 {
		return RunState{}, ErrNotFound
	}
	return states[0], nil
}

// Delete unlinks the checkpoint; already gone is fine.
func (s *DirStore) Delete(runID string) error {
	if strings.TrimSpace(runID) == "" {
		return nil
	}
	if err := os.Remove(s.path(runID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: delete run %s: %w", runID, err)
	}
	return nil
}

// ListInterrupted returns all interrupted states, newest first.
func (s *DirStore) ListInterrupted() ([]RunState, error) {
	return s.scan(func(st RunState) bool { return st.Status == StatusInterrupted })
}

// CleanupStale removes files whose modification time is older than the
// threshold, including files Save never produced. Files within the
// threshold are never touched.
func (s *DirStore) CleanupStale(maxAgeDays int) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("state: read store dir: %w", err)
	}
	cutoff := s.clock().Add(-time.Duration(maxAgeDays) * 24 * time.Hour)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// scan reads every JSON document in the directory, keeps those the filter
// accepts, and sorts newest first. Parse failures are treated as absence.
func (s *DirStore) scan(keep func(RunState) bool) ([]RunState, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("state: read store dir: %w", err)
	}
	var states []RunState
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			continue
		}
		var st RunState
		if err := json.Unmarshal(data, &st); err != nil {
			continue
		}
		if st.ID == "" {
			continue
		}
		if keep(st) {
			states = append(states, st)
		}
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].UpdatedAt.After(states[j].UpdatedAt)
	})
	return states, nil
}

// NopStore satisfies Store without touching the filesystem. It backs the
// "no persistence" mode: engine logic is unchanged, durability is off.
type NopStore struct{}

func (NopStore) Save(RunState) (string, error)        { return "", nil }
func (NopStore) Load(string) (RunState, error)        { return RunState{}, ErrNotFound }
func (NopStore) Delete(string) error                  { return nil }
func (NopStore) ListInterrupted() ([]RunState, error) { return nil, nil }
func (NopStore) CleanupStale(int) (int, error)        { return 0, nil }
