package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/haldane/guided/internal/workflow"
)

// Required fails when a trimmed answer is empty on a required step. Optional
// steps treat an empty answer as "use the default", not as a failure.
func Required(value string, step workflow.Step, _ map[string]workflow.StepResponse) Result {
	if !step.Required {
		return Pass()
	}
	if strings.TrimSpace(value) == "" {
		return Fail(
			fmt.Sprintf("%s is required", step.Name),
			"enter a non-empty value",
		)
	}
	return Pass()
}

// PathExists checks that the answer names an existing filesystem path.
// Home-relative answers (~/...) are expanded and relative answers resolved
// against the working directory before the check.
func PathExists(value string, step workflow.Step, _ map[string]workflow.StepResponse) Result {
	raw := strings.TrimSpace(value)
	if raw == "" && !step.Required {
		return Pass()
	}
	path := raw
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	if !filepath.IsAbs(path) {
		if cwd, err := os.Getwd(); err == nil {
			path = filepath.Join(cwd, path)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return Pass()
	}
	suggestion := "check the spelling or create the path first"
	if !filepath.IsAbs(raw) && strings.Contains(raw, string(filepath.Separator)) {
		suggestion = fmt.Sprintf("relative paths resolve against the current directory; did you mean %s?", filepath.Clean(raw))
	}
	return Fail(fmt.Sprintf("no such path: %s", raw), suggestion)
}

// Choice checks the answer against the step's option keys, trimmed and
// case-insensitive. The failure message enumerates the valid keys.
func Choice(value string, step workflow.Step, _ map[string]workflow.StepResponse) Result {
	if !step.IsChoice() {
		return Pass()
	}
	if strings.TrimSpace(value) == "" && !step.Required {
		return Pass()
	}
	if _, ok := step.MatchOption(value); ok {
		return Pass()
	}
	return Fail(
		fmt.Sprintf("%q is not a valid choice for %s", strings.TrimSpace(value), step.Name),
		fmt.Sprintf("valid choices: %s", strings.Join(step.OptionKeys(), ", ")),
	)
}

// Pattern builds a full-string regular-expression validator. The hint, not
// the raw pattern, is what the user sees on failure.
func Pattern(expr, hint string) (Func, error) {
	re, err := regexp.Compile("^(?:" + expr + ")$")
	if err != nil {
		return nil, fmt.Errorf("validate: bad pattern %q: %w", expr, err)
	}
	return func(value string, step workflow.Step, _ map[string]workflow.StepResponse) Result {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" && !step.Required {
			return Pass()
		}
		if re.MatchString(trimmed) {
			return Pass()
		}
		return Fail(fmt.Sprintf("%s has an invalid format", step.Name), hint)
	}, nil
}

// MustPattern is Pattern for compile-time-constant expressions.
func MustPattern(expr, hint string) Func {
	fn, err := Pattern(expr, hint)
	if err != nil {
		panic(err)
	}
	return fn
}
