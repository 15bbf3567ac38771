// Package scaffold defines the built-in guided sessions: project
// initialization and spec authoring. Workflows are constructed in process
// by these factories; the Apply functions alone perform the real side
// effects, consuming the value map a finished run returns.
package scaffold

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haldane/guided/internal/workflow"
	"github.com/haldane/guided/internal/workflow/validate"
)

const (
	slugPattern = `[a-z][a-z0-9-]*`
	slugHint    = "lowercase letters, digits and dashes, starting with a letter"
)

// Registry returns the validator registry the built-in workflows reference.
func Registry() *validate.Registry {
	r := validate.NewDefaultRegistry()
	r.Register("slug", validate.MustPattern(slugPattern, slugHint))
	return r
}

// InitWorkflow is the guided session behind `guided init`.
func InitWorkflow() (workflow.Workflow, error) {
	return workflow.New("project-init", "init", "initialize a new project", []workflow.Step{
		{
			ID: "name", Name: "Project name", Order: 0, Required: true,
			Prompt:    "What is the project called?",
			Validator: "slug",
		},
		{
			ID: "kind", Name: "Project kind", Order: 1, Required: true,
			Prompt:  "What kind of project is this?",
			Default: "cli",
			Options: []workflow.Option{
				{Key: "library", Description: "a reusable package"},
				{Key: "service", Description: "a long-running process"},
				{Key: "cli", Description: "a command-line tool"},
			},
		},
		{
			ID: "path", Name: "Target path", Order: 2,
			Prompt:    "Where should the project live? (must exist)",
			Default:   ".",
			Validator: "path_exists",
		},
		{
			ID: "license", Name: "License", Order: 3,
			Prompt:  "Which license applies?",
			Default: "mit",
			Options: []workflow.Option{
				{Key: "mit", Description: "MIT"},
				{Key: "apache-2.0", Description: "Apache License 2.0"},
				{Key: "none", Description: "no license file"},
			},
		},
		{
			ID: "description", Name: "Description", Order: 4,
			Prompt: "One-line description (optional)",
		},
	})
}

// SpecWorkflow is the guided session behind `guided spec`.
func SpecWorkflow() (workflow.Workflow, error) {
	return workflow.New("spec-author", "spec", "author a specification", []workflow.Step{
		{
			ID: "title", Name: "Title", Order: 0, Required: true,
			Prompt: "Spec title?",
		},
		{
			ID: "slug", Name: "Slug", Order: 1, Required: true,
			Prompt:    "File slug for the spec?",
			Validator: "slug",
		},
		{
			ID: "priority", Name: "Priority", Order: 2,
			Prompt:  "How urgent is this?",
			Default: "medium",
			Options: []workflow.Option{
				{Key: "low", Description: "nice to have"},
				{Key: "medium", Description: "planned work"},
				{Key: "high", Description: "blocking work"},
			},
		},
		{
			ID: "summary", Name: "Summary", Order: 3,
			Prompt: "Short summary (optional)",
		},
	})
}

// Manifest models the guided.yaml a project scaffold writes.
type Manifest struct {
	Name        string `yaml:"name"`
	Kind        string `yaml:"kind"`
	License     string `yaml:"license,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// ApplyInit performs the side effects of a completed init session: the
// project directory skeleton and its guided.yaml manifest.
func ApplyInit(values map[string]string) (string, error) {
	name := values["name"]
	if name == "" {
		return "", fmt.Errorf("scaffold: init result is missing the project name")
	}
	root := values["path"]
	if root == "" {
		root = "."
	}
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scaffold: create project dir: %w", err)
	}
	manifest := Manifest{
		Name:        name,
		Kind:        values["kind"],
		Description: values["description"],
	}
	if values["license"] != "none" {
		manifest.License = values["license"]
	}
	encoded, err := yaml.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("scaffold: encode manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "guided.yaml"), encoded, 0o644); err != nil {
		return "", fmt.Errorf("scaffold: write manifest: %w", err)
	}
	subdirs := []string{"docs"}
	switch values["kind"] {
	case "cli", "service":
		subdirs = append(subdirs, "cmd")
	}
	for _, sub := range subdirs {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("scaffold: create %s: %w", sub, err)
		}
	}
	return dir, nil
}

// ApplySpec performs the side effects of a completed spec session: a
// markdown document under docs/specs.
func ApplySpec(projectDir string, values map[string]string, now time.Time) (string, error) {
	slug := values["slug"]
	if slug == "" {
		return "", fmt.Errorf("scaffold: spec result is missing the slug")
	}
	dir := filepath.Join(projectDir, "docs", "specs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("scaffold: create specs dir: %w", err)
	}
	var doc strings.Builder
	fmt.Fprintf(&doc, "# %s\n\n", values["title"])
	fmt.Fprintf(&doc, "- Priority: %s\n", values["priority"])
	fmt.Fprintf(&doc, "- Created: %s\n\n", now.Format("2006-01-02"))
	if summary := strings.TrimSpace(values["summary"]); summary != "" {
		fmt.Fprintf(&doc, "%s\n", summary)
	} else {
		fmt.Fprint(&doc, "_Summary to be written._\n")
	}
	path := filepath.Join(dir, slug+".md")
	if err := os.WriteFile(path, []byte(doc.String()), 0o644); err != nil {
		return "", fmt.Errorf("scaffold: write spec: %w", err)
	}
	return path, nil
}
