// cmd/guided/main.go
//
// Entry point for the guided CLI. Subcommands drive multi-step interactive
// sessions through the workflow engine; this layer owns everything the
// engine deliberately does not: signal handling, exit codes, locks, and the
// real side effects performed with a finished run's values.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/haldane/guided/internal/lockrun"
	"github.com/haldane/guided/internal/prompt"
	"github.com/haldane/guided/internal/workflow/engine"
)

// Exit codes the host honors: cancellation is a success, configuration
// problems are distinct from ordinary failures, and signal-driven
// interruption follows the 128+signal convention (handled in run()).
const (
	exitOK     = 0
	exitError  = 1
	exitConfig = 2
)

func main() {
	// A project-local .env may carry GUIDED_* overrides; absence is fine.
	godotenv.Load()

	if err := Execute(); err != nil {
		if errors.Is(err, engine.ErrCancelled) {
			// Deliberate cancellation exits quietly.
			os.Exit(exitOK)
		}
		fmt.Fprintf(os.Stderr, "guided: %v\n", err)
		if errors.Is(err, prompt.ErrMissingDefault) || errors.Is(err, lockrun.ErrLocked) {
			os.Exit(exitConfig)
		}
		os.Exit(exitError)
	}
}
