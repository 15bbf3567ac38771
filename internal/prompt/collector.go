package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/haldane/guided/internal/workflow"
)

// NonInteractiveEnv force-disables prompting when set to a truthy value.
const NonInteractiveEnv = "GUIDED_NO_INTERACTIVE"

// ErrMissingDefault marks a required step that cannot be resolved without a
// human: non-interactive mode and no default value.
var ErrMissingDefault = errors.New("prompt: required step has no default")

var (
	promptStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	optionKeyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
)

// Collector abstracts how step answers are obtained. Implementations return
// exactly one Outcome per call; the engine owns the validation retry loop.
type Collector interface {
	// Interactive reports whether a human is on the other end.
	Interactive() bool
	// Prompt requests a free-form value for the step.
	Prompt(step workflow.Step) (Outcome, error)
	// Choice requests one of the step's option keys.
	Choice(step workflow.Step) (Outcome, error)
	// Confirm asks a yes/no question; empty input returns def.
	Confirm(text string, def bool) (bool, error)
	// ShowError surfaces a validation failure before the engine re-asks.
	ShowError(message, suggestion string)
}

// TerminalOptions configures a Terminal collector. The zero value reads
// stdin and writes stdout.
type TerminalOptions struct {
	In  io.Reader
	Out io.Writer
	// ForceNonInteractive disables prompting regardless of the TTY.
	ForceNonInteractive bool
	// DisableChooser falls back to line input for choice steps even on a
	// real terminal.
	DisableChooser bool
	// AssumeTTY treats the input stream as a terminal without probing it.
	// Tests drive interactive behavior through pipes with this.
	AssumeTTY bool
	// LookupEnv overrides os.LookupEnv (tests).
	LookupEnv func(string) (string, bool)
}

// Terminal collects answers from a terminal session, or resolves defaults
// when no human is available.
type Terminal struct {
	in          *bufio.Reader
	rawIn       io.Reader
	out         io.Writer
	interactive bool
	useChooser  bool
}

// NewTerminal builds a collector from the options. Interactivity requires
// all of: not force-disabled, no truthy environment override, and an input
// stream that is a terminal.
func NewTerminal(opts TerminalOptions) *Terminal {
	in := opts.In
	if in == nil {
		in = os.Stdin
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	interactive := !opts.ForceNonInteractive
	if interactive {
		if raw, ok := lookup(NonInteractiveEnv); ok && truthy(raw) {
			interactive = false
		}
	}
	inTTY := opts.AssumeTTY
	if interactive && !inTTY {
		if f, ok := in.(*os.File); ok {
			inTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		}
	}
	interactive = interactive && inTTY
	useChooser := interactive && !opts.DisableChooser
	if useChooser && !opts.AssumeTTY {
		f, ok := out.(*os.File)
		useChooser = ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
	}
	return &Terminal{
		in:          bufio.NewReader(in),
		rawIn:       in,
		out:         out,
		interactive: interactive,
		useChooser:  useChooser,
	}
}

func truthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// Interactive reports whether prompting a human is possible.
func (t *Terminal) Interactive() bool { return t.interactive }

// Prompt renders the step's prompt text and reads one line. The literal
// tokens back/skip/cancel become navigation outcomes; skip is only legal on
// optional steps and re-asks otherwise. An empty answer falls back to the
// step's default when one exists.
func (t *Terminal) Prompt(step workflow.Step) (Outcome, error) {
	if !t.interactive {
		return resolveBatch(step)
	}
	for {
		fmt.Fprintln(t.out, promptStyle.Render(step.Prompt))
		fmt.Fprint(t.out, t.inputHint(step))
		line, err := t.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Cancel(), nil
			}
			return Outcome{}, fmt.Errorf("prompt: read answer for %s: %w", step.ID, err)
		}
		outcome, retry := t.interpret(step, line)
		if retry {
			continue
		}
		return outcome, nil
	}
}

// Choice renders the step's options and reads a selection. On a real
// terminal the list chooser takes over; otherwise a plain line loop matches
// keys case-insensitively and re-asks on an invalid choice.
func (t *Terminal) Choice(step workflow.Step) (Outcome, error) {
	if !t.interactive {
		return resolveBatchChoice(step)
	}
	if t.useChooser {
		return runChooser(step, t.rawIn, t.out)
	}
	for {
		fmt.Fprintln(t.out, promptStyle.Render(step.Prompt))
		for _, opt := range step.Options {
			fmt.Fprintf(t.out, "  %s  %s\n", optionKeyStyle.Render(opt.Key), opt.Description)
		}
		fmt.Fprint(t.out, t.inputHint(step))
		line, err := t.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Cancel(), nil
			}
			return Outcome{}, fmt.Errorf("prompt: read choice for %s: %w", step.ID, err)
		}
		outcome, retry := t.interpret(step, line)
		if retry {
			continue
		}
		if outcome.Kind != KindValue {
			return outcome, nil
		}
		if key, ok := step.MatchOption(outcome.Value); ok {
			return Value(key), nil
		}
		t.ShowError(
			fmt.Sprintf("%q is not a valid choice", strings.TrimSpace(outcome.Value)),
			fmt.Sprintf("valid choices: %s", strings.Join(step.OptionKeys(), ", ")),
		)
	}
}

// Confirm asks a yes/no question. Accepts y/yes/n/no case-insensitively,
// returns def on empty input, and re-asks on anything else.
func (t *Terminal) Confirm(text string, def bool) (bool, error) {
	if !t.interactive {
		return def, nil
	}
	hint := "[Y/n]"
	if !def {
		hint = "[y/N]"
	}
	for {
		fmt.Fprintf(t.out, "%s %s ", promptStyle.Render(text), hintStyle.Render(hint))
		line, err := t.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return def, nil
			}
			return false, fmt.Errorf("prompt: read confirmation: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, errorStyle.Render("please answer y or n"))
	}
}

// ShowError prints a validation failure and its suggestion.
func (t *Terminal) ShowError(message, suggestion string) {
	if !t.interactive {
		return
	}
	fmt.Fprintln(t.out, errorStyle.Render("✗ "+message))
	if suggestion != "" {
		fmt.Fprintln(t.out, suggestionStyle.Render("  hint: "+suggestion))
	}
}

// interpret maps a raw line to an outcome. The second return asks the
// caller to re-prompt (illegal skip on a required step).
func (t *Terminal) interpret(step workflow.Step, line string) (Outcome, bool) {
	trimmed := strings.TrimSpace(line)
	switch strings.ToLower(trimmed) {
	case "back":
		return Back(), false
	case "cancel":
		return Cancel(), false
	case "skip":
		if step.Required {
			t.ShowError(fmt.Sprintf("%s is required and cannot be skipped", step.Name), "")
			return Outcome{}, true
		}
		return Skip(), false
	}
	if trimmed == "" {
		// An empty answer on an optional step means "use the default",
		// recorded as a skip. Required steps fall back to their default
		// when they carry one; otherwise the empty value flows on to
		// validation.
		if !step.Required {
			return Skip(), false
		}
		if step.HasDefault() {
			return Value(step.Default), false
		}
	}
	return Value(trimmed), false
}

func (t *Terminal) readLine() (string, error) {
	line, err := t.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return line, nil
		}
		return "", err
	}
	return line, nil
}

func (t *Terminal) inputHint(step workflow.Step) string {
	parts := []string{}
	if step.HasDefault() {
		parts = append(parts, fmt.Sprintf("default: %s", step.Default))
	}
	if !step.Required {
		parts = append(parts, "skip to use default")
	}
	parts = append(parts, "back, cancel")
	return hintStyle.Render(fmt.Sprintf("(%s) ", strings.Join(parts, " · "))) + "> "
}

// resolveBatch resolves a plain step without a human: the default when one
// exists, a named fatal error when the step is required without one.
func resolveBatch(step workflow.Step) (Outcome, error) {
	if step.HasDefault() {
		return Value(step.Default), nil
	}
	if step.Required {
		return Outcome{}, fmt.Errorf("step %s (%s): %w", step.ID, step.Name, ErrMissingDefault)
	}
	return Skip(), nil
}

// resolveBatchChoice resolves a choice step without a human; the default
// must name a valid option key.
func resolveBatchChoice(step workflow.Step) (Outcome, error) {
	if !step.HasDefault() {
		if step.Required {
			return Outcome{}, fmt.Errorf("step %s (%s): %w", step.ID, step.Name, ErrMissingDefault)
		}
		return Skip(), nil
	}
	key, ok := step.MatchOption(step.Default)
	if !ok {
		return Outcome{}, fmt.Errorf("prompt: step %s default %q is not one of %s",
			step.ID, step.Default, strings.Join(step.OptionKeys(), ", "))
	}
	return Value(key), nil
}
