// Package lockrun guards the checkpoint directory against two simultaneous
// runs of the same command. The design assumes exactly one live run per
// command; a second invocation fails fast, naming the holding process,
// instead of checkpointing over the first.
package lockrun

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// ErrLocked reports that another process already holds the command's lock.
var ErrLocked = errors.New("lockrun: command already running")

// Lock is an acquired flock on a per-command lock file. The kernel releases
// it automatically if the process dies without calling Release.
type Lock struct {
	file *os.File
	path string
}

// Acquire takes an exclusive, non-blocking lock for the command under the
// state directory.
func Acquire(stateDir, command string) (*Lock, error) {
	name := strings.TrimSpace(command)
	if name == "" {
		return nil, fmt.Errorf("lockrun: command name is required")
	}
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("lockrun: ensure state dir: %w", err)
	}
	path := filepath.Join(stateDir, name+".lock")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("lockrun: open lock file %s: %w", path, err)
	}
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := readHolder(path)
		file.Close()
		if holder != "" {
			return nil, fmt.Errorf("%w: %s is held by %s", ErrLocked, name, holder)
		}
		return nil, fmt.Errorf("%w: %s (lock file %s)", ErrLocked, name, path)
	}
	// Record the holder for the error message a competing process sees.
	if err := file.Truncate(0); err == nil {
		fmt.Fprintf(file, "pid=%d\n", os.Getpid())
		file.Sync()
	}
	return &Lock{file: file, path: path}, nil
}

// Release drops the lock and removes the file. Safe to call twice.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	err := l.file.Close()
	os.Remove(l.path)
	l.file = nil
	return err
}

func readHolder(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
