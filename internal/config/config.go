// Package config handles runtime configuration and the .guided directory
// structure. Every project that uses guided gets a .guided/ folder holding
// its settings, checkpoints, and logs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// GuidedDir is the name of the directory created in each project.
	GuidedDir = ".guided"

	// StateDirEnv overrides where checkpoints are written.
	StateDirEnv = "GUIDED_STATE_DIR"
	// NoPersistEnv disables checkpointing entirely when truthy.
	NoPersistEnv = "GUIDED_NO_PERSIST"

	defaultStaleDays = 30
)

const defaultConfigYAML = `# guided project configuration
version: 1

# Days an abandoned checkpoint survives before "guided state cleanup"
# removes it.
stale_days: 30

# Set true to run without writing checkpoints (resume becomes impossible).
no_persist: false

# Set true to answer choice steps with plain line input instead of the
# interactive selector.
plain_choices: false
`

// FileConfig models .guided/config.yaml.
type FileConfig struct {
	Version      int    `yaml:"version"`
	StateDir     string `yaml:"state_dir,omitempty"`
	StaleDays    int    `yaml:"stale_days,omitempty"`
	NoPersist    bool   `yaml:"no_persist,omitempty"`
	PlainChoices bool   `yaml:"plain_choices,omitempty"`
}

// Config holds the runtime configuration injected into the engine and CLI.
// It is an explicit value, never a process-wide mutable flag, so runs stay
// independently testable.
type Config struct {
	// ProjectDir is the directory guided was invoked from.
	ProjectDir string
	// StateDir is where checkpoints, locks, and logs live.
	StateDir string
	// NonInteractive forces batch resolution of every step.
	NonInteractive bool
	// NoPersist turns the state store into a no-op.
	NoPersist bool
	// PlainChoices disables the list selector for choice steps.
	PlainChoices bool
	// StaleDays is the checkpoint retention threshold for cleanup.
	StaleDays int
}

// Load resolves configuration for a project directory: built-in defaults,
// then .guided/config.yaml when present, then environment overrides.
func Load(projectDir string) (Config, error) {
	cfg := Config{
		ProjectDir: projectDir,
		StateDir:   filepath.Join(projectDir, GuidedDir, "state"),
		StaleDays:  defaultStaleDays,
	}
	path := filepath.Join(projectDir, GuidedDir, "config.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		var file FileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
		if file.StateDir != "" {
			cfg.StateDir = file.StateDir
			if !filepath.IsAbs(cfg.StateDir) {
				cfg.StateDir = filepath.Join(projectDir, cfg.StateDir)
			}
		}
		if file.StaleDays > 0 {
			cfg.StaleDays = file.StaleDays
		}
		cfg.NoPersist = file.NoPersist
		cfg.PlainChoices = file.PlainChoices
	}
	if dir := strings.TrimSpace(os.Getenv(StateDirEnv)); dir != "" {
		cfg.StateDir = dir
	}
	if raw := strings.TrimSpace(os.Getenv(NoPersistEnv)); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			cfg.NoPersist = v
		}
	}
	return cfg, nil
}

// InitDir creates the .guided directory structure with a commented default
// config. Existing files are left alone.
func InitDir(projectDir string) error {
	base := filepath.Join(projectDir, GuidedDir)
	for _, dir := range []string{base, filepath.Join(base, "state"), filepath.Join(base, "logs")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	path := filepath.Join(base, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("config: write default config: %w", err)
	}
	return nil
}
