package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/acadrec/devstack/internal/bootstrap"
	"github.com/acadrec/devstack/internal/compose"
	"github.com/acadrec/devstack/internal/history"
	"github.com/acadrec/devstack/internal/readiness"
	"github.com/acadrec/devstack/pkg/stack"
)

func newUpCmd(log *logrus.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Bring the stack to a running, verified state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), log, opts)
		},
	}
}

// runUp executes the full bootstrap pipeline
func runUp(ctx context.Context, log *logrus.Logger, opts *options) error {
	settings, err := opts.settings()
	if err != nil {
		return err
	}

	runner := compose.NewRunner(settings.RuntimeBinary, settings.ProjectDir, log)
	waiter := readiness.NewWaiter(readiness.DefaultBackoffConfig())

	manager := bootstrap.NewManager(settings, log).
		WithRuntime(runner).
		WithWaiter(waiter)

	// The history store is opened lazily, after the manager has verified
	// the runtime: a missing prerequisite must leave the filesystem
	// untouched.
	var store *history.Store
	defer func() {
		if store != nil {
			store.Close()
		}
	}()
	manager.WithRecorder(recorderFunc(func(record stack.RunRecord) error {
		if store == nil {
			s, err := history.NewStore(settings.DataDir, log)
			if err != nil {
				return err
			}
			store = s
		}
		return store.Save(record)
	}))

	if s := newSpinner(opts); s != nil {
		manager.WithStepHook(func(step bootstrap.Step) {
			switch step {
			case bootstrap.StepWait:
				s.Suffix = " waiting for services..."
				s.Start()
			case bootstrap.StepStatus:
				s.Stop()
			}
		})
		defer s.Stop()
	}

	return manager.Run(ctx)
}

// recorderFunc adapts a function to the bootstrap.Recorder interface
type recorderFunc func(record stack.RunRecord) error

// Save implements bootstrap.Recorder
func (f recorderFunc) Save(record stack.RunRecord) error {
	return f(record)
}

// newSpinner returns a spinner when stdout is an interactive terminal,
// nil otherwise
func newSpinner(opts *options) *spinner.Spinner {
	if opts.noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	return spinner.New(spinner.CharSets[14], 100*time.Millisecond)
}

func newDownCmd(log *logrus.Logger, opts *options) *cobra.Command {
	var wipeVolumes bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Stop the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}

			runner := compose.NewRunner(settings.RuntimeBinary, settings.ProjectDir, log)
			if err := runner.EnsureAvailable(cmd.Context()); err != nil {
				return err
			}
			return runner.Down(cmd.Context(), wipeVolumes, os.Stdout, os.Stderr)
		},
	}

	cmd.Flags().BoolVar(&wipeVolumes, "volumes", false, "Also remove named volumes")

	return cmd
}

func newStatusCmd(log *logrus.Logger, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current state of all services",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}

			runner := compose.NewRunner(settings.RuntimeBinary, settings.ProjectDir, log)
			if err := runner.EnsureAvailable(cmd.Context()); err != nil {
				return err
			}

			statuses, err := runner.Status(cmd.Context())
			if err != nil {
				return err
			}

			bootstrap.RenderStatusTable(os.Stdout, statuses)
			return nil
		},
	}
}

func newLogsCmd(log *logrus.Logger, opts *options) *cobra.Command {
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [service]",
		Short: "Tail service logs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.settings()
			if err != nil {
				return err
			}

			service := ""
			if len(args) == 1 {
				service = args[0]
			}

			runner := compose.NewRunner(settings.RuntimeBinary, settings.ProjectDir, log)
			if err := runner.EnsureAvailable(cmd.Context()); err != nil {
				return err
			}
			return runner.Logs(cmd.Context(), service, follow, os.Stdout)
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep the log stream attached")

	return cmd
}

func newHistoryCmd(log *logrus.Logger, opts *options) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent bootstrap runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewStore(opts.resolveDataDir(), log)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(limit)
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No bootstrap runs recorded yet")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tDURATION\tOUTCOME\tFAILED STEP")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.RFC3339),
					r.FinishedAt.Sub(r.StartedAt).Round(time.Second),
					renderOutcome(r.Outcome),
					r.FailedStep)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func renderOutcome(outcome stack.RunOutcome) string {
	if outcome == stack.RunSucceeded {
		return color.GreenString(string(outcome))
	}
	return color.RedString(string(outcome))
}
