package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haldane/guided/internal/config"
	"github.com/haldane/guided/internal/lockrun"
	"github.com/haldane/guided/internal/logging"
	"github.com/haldane/guided/internal/prompt"
	"github.com/haldane/guided/internal/scaffold"
	"github.com/haldane/guided/internal/workflow"
	"github.com/haldane/guided/internal/workflow/engine"
	"github.com/haldane/guided/internal/workflow/state"
)

// cliFlags are the global overrides layered on top of the file and
// environment configuration.
type cliFlags struct {
	nonInteractive bool
	stateDir       string
	noPersist      bool
	plainChoices   bool
}

// Execute builds the command tree and runs it.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	rootCmd := &cobra.Command{
		Use:           "guided",
		Short:         "Guided multi-step sessions for project setup and spec authoring",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().BoolVar(&flags.nonInteractive, "non-interactive", false,
		"resolve every step from defaults without prompting")
	rootCmd.PersistentFlags().StringVar(&flags.stateDir, "state-dir", "",
		"override where checkpoints are stored")
	rootCmd.PersistentFlags().BoolVar(&flags.noPersist, "no-persist", false,
		"run without writing checkpoints (resume becomes impossible)")
	rootCmd.PersistentFlags().BoolVar(&flags.plainChoices, "plain-choices", false,
		"answer choice steps with line input instead of the selector")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a project through a guided session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// First contact with a project: lay down .guided/ with the
			// commented default config so later runs pick it up.
			if err := config.InitDir(cfg.ProjectDir); err != nil {
				return err
			}
			wf, err := scaffold.InitWorkflow()
			if err != nil {
				return err
			}
			return runSession(cfg, wf, func(values map[string]string) error {
				dir, err := scaffold.ApplyInit(values)
				if err != nil {
					return err
				}
				fmt.Printf("Project initialized at %s\n", dir)
				return nil
			})
		},
	}

	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Author a specification through a guided session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			wf, err := scaffold.SpecWorkflow()
			if err != nil {
				return err
			}
			return runSession(cfg, wf, func(values map[string]string) error {
				path, err := scaffold.ApplySpec(cfg.ProjectDir, values, time.Now())
				if err != nil {
					return err
				}
				fmt.Printf("Spec written to %s\n", path)
				return nil
			})
		},
	}

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and clean up persisted run checkpoints",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List interrupted runs eligible for resume",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, err := state.NewDirStore(cfg.StateDir)
			if err != nil {
				return err
			}
			states, err := store.ListInterrupted()
			if err != nil {
				return err
			}
			if len(states) == 0 {
				fmt.Println("No interrupted runs.")
				return nil
			}
			for _, st := range states {
				fmt.Printf("%s  command=%s  step=%d  updated=%s\n",
					st.ID, st.Command, st.CurrentStep, st.UpdatedAt.Format(time.RFC3339))
			}
			return nil
		},
	}

	var cleanupDays int
	cleanupCmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove checkpoints older than the retention threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			days := cleanupDays
			if days <= 0 {
				days = cfg.StaleDays
			}
			store, err := state.NewDirStore(cfg.StateDir)
			if err != nil {
				return err
			}
			removed, err := store.CleanupStale(days)
			if err != nil {
				return err
			}
			fmt.Printf("Removed %d stale checkpoint file(s).\n", removed)
			return nil
		},
	}
	cleanupCmd.Flags().IntVar(&cleanupDays, "days", 0, "age threshold in days (default from config)")

	stateCmd.AddCommand(listCmd, cleanupCmd)
	rootCmd.AddCommand(initCmd, specCmd, stateCmd)
	return rootCmd
}

// loadConfig resolves file and environment configuration, then applies the
// command-line overrides.
func loadConfig(flags *cliFlags) (config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return config.Config{}, fmt.Errorf("resolve working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return config.Config{}, err
	}
	if flags.nonInteractive {
		cfg.NonInteractive = true
	}
	if flags.stateDir != "" {
		cfg.StateDir = flags.stateDir
	}
	if flags.noPersist {
		cfg.NoPersist = true
	}
	if flags.plainChoices {
		cfg.PlainChoices = true
	}
	return cfg, nil
}

// runSession wires a workflow to the engine, guards the command against a
// concurrent invocation, traps interrupts, and hands the finished value map
// to apply.
func runSession(cfg config.Config, wf workflow.Workflow, apply func(map[string]string) error) error {
	var store state.Store
	if cfg.NoPersist {
		store = state.NopStore{}
	} else {
		dirStore, err := state.NewDirStore(cfg.StateDir)
		if err != nil {
			return err
		}
		store = dirStore

		lock, err := lockrun.Acquire(cfg.StateDir, wf.Command)
		if err != nil {
			return err
		}
		defer lock.Release()
	}

	// Logging failures must never block a run.
	log, err := logging.New(cfg.StateDir)
	if err != nil {
		log = nil
	}
	defer log.Close()

	collector := prompt.NewTerminal(prompt.TerminalOptions{
		ForceNonInteractive: cfg.NonInteractive,
		DisableChooser:      cfg.PlainChoices,
	})
	eng, err := engine.New(collector, store, scaffold.Registry(),
		engine.WithLogger(log))
	if err != nil {
		return err
	}

	// A process interrupt marks the in-flight run INTERRUPTED (eligible for
	// resume) and exits with the conventional signal-derived code. This is
	// the one asynchronous path into the engine.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		sig, ok := <-signals
		if !ok {
			return
		}
		if err := eng.CancelCurrent(); err != nil {
			log.Printf("interrupt: %v", err)
		}
		code := 128 + int(syscall.SIGINT)
		if s, isSyscall := sig.(syscall.Signal); isSyscall {
			code = 128 + int(s)
		}
		os.Exit(code)
	}()

	values, err := eng.Run(wf)
	if err != nil {
		if errors.Is(err, engine.ErrCancelled) {
			fmt.Println("Cancelled.")
		}
		return err
	}
	return apply(values)
}
