// Package main provides the entry point for the cadence CLI.
package main

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/git"
	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/runner"
	"github.com/gorewood/cadence/internal/state"
)

// newRunCmd creates the run command.
func newRunCmd() *cobra.Command {
	var record bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the test command and classify the result",
		Long: `Run the configured test command once and classify the result.

The outcome is one of: pass, test_failure, compile_error, timeout, error.
With --record and a passing run, test evidence is attached to the task
currently in progress.

Examples:
  cadence run            # Run tests, print the classified outcome
  cadence run --record   # Also record evidence on a passing run
  cadence run --json     # JSON outcome for scripting`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, record)
		},
	}
	cmd.Flags().BoolVar(&record, "record", false, "Record test evidence on a passing run")
	return cmd
}

// runRun executes the run command.
func runRun(cmd *cobra.Command, record bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}

	testRunner := runner.New(
		proj.Config.Test.Command,
		proj.Root,
		time.Duration(proj.Config.Test.Timeout),
	)

	result, err := testRunner.Run(cmd.Context())
	if err != nil {
		printer.Error(err)
		return err
	}

	if record && result.Outcome == runner.OutcomePass {
		if err := recordPassEvidence(proj, result); err != nil {
			printer.Warn("could not record evidence: %v", err)
		}
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"outcome":     string(result.Outcome),
			"failed_test": result.FailedTest,
			"duration_ms": result.Duration.Milliseconds(),
		})
	}

	printer.KeyValue("Outcome", string(result.Outcome))
	printer.KeyValue("Duration", result.Duration.Round(time.Millisecond).String())
	if result.FailedTest != "" {
		printer.KeyValue("Failed", result.FailedTest)
	}
	if result.Outcome != runner.OutcomePass && result.Output != "" {
		printer.Section("Output")
		printer.Print("%s\n", strings.TrimSpace(tail(result.Output, 2000)))
	}
	return nil
}

// recordPassEvidence attaches test evidence to the in-progress task, if any.
func recordPassEvidence(proj *project, result *runner.Result) error {
	st, err := proj.Store.Load()
	if err != nil {
		return err
	}
	for i := range st.Tasks {
		if st.Tasks[i].Status != state.StatusInProgress {
			continue
		}
		now := time.Now()
		summary := "tests passed in " + result.Duration.Round(time.Millisecond).String()
		if git.IsRepo() {
			if sha, headErr := git.HEAD(); headErr == nil {
				summary += " at " + sha[:12]
			}
		}
		if _, err := st.AddEvidence(st.Tasks[i].ID, state.EvidenceTestPass, summary, now); err != nil {
			return err
		}
		return proj.Store.Save(st, now)
	}
	return nil
}

// tail returns the last max bytes of s.
func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}
