// Package main provides the entry point for the cadence CLI.
package main

import (
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/decision"
	"github.com/gorewood/cadence/internal/hook"
	"github.com/gorewood/cadence/internal/llm"
	"github.com/gorewood/cadence/internal/lock"
	"github.com/gorewood/cadence/internal/runner"
)

// newHookCmd creates the hidden hook parent command for internal hook execution.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Internal hook runner",
		Long:   `Internal command for running hook logic. Called by installed hooks.`,
		Hidden: true,
	}

	cmd.AddCommand(newHookRunCmd())
	return cmd
}

// newHookRunCmd creates the hook run subcommand.
func newHookRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <hook-name>",
		Short: "Execute hook logic",
		Long:  `Execute the logic for the specified hook. Called by installed agent and git hooks.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runHookRun,
	}
}

// runHookRun executes the hook run command. Hooks never fail: every error
// path degrades to a continue directive (or silence for git hooks) so a
// broken harness cannot wedge the agent or block a commit.
func runHookRun(cmd *cobra.Command, args []string) error {
	switch args[0] {
	case "stop":
		return runStopHook(cmd)
	case "post-tool-use":
		return runPostToolUseHook(cmd)
	case "pre-commit":
		return runPreCommitHook(cmd)
	default:
		// Unknown hook - silently succeed to not block operations
		return nil
	}
}

// runStopHook executes the stop hook: it answers whether the agent may stop.
func runStopHook(cmd *cobra.Command) error {
	payload, err := hook.ParsePayload(cmd.InOrStdin())
	if err != nil {
		return hook.WriteDirective(cmd.OutOrStdout(), hook.Continue("unreadable hook payload"))
	}

	proj, err := openProject()
	if err != nil {
		return hook.WriteDirective(cmd.OutOrStdout(), hook.Continue("cadence unavailable: "+err.Error()))
	}

	stop := &hook.Stop{
		Store:     proj.Store,
		Engine:    newDecisionEngine(proj),
		Runner:    newTestRunner(proj),
		LeasePath: proj.LeasePath(),
		LeaseTTL:  leaseTTL(proj),
		History:   hook.NewHistory(filepath.Join(proj.StateDir(), hook.HistoryFileName)),
	}

	directive := stop.Run(cmd.Context(), payload)
	return hook.WriteDirective(cmd.OutOrStdout(), directive)
}

// runPostToolUseHook executes the post-tool-use hook.
func runPostToolUseHook(cmd *cobra.Command) error {
	payload, err := hook.ParsePayload(cmd.InOrStdin())
	if err != nil {
		return hook.WriteDirective(cmd.OutOrStdout(), hook.Continue("unreadable hook payload"))
	}

	post := &hook.Post{}
	if proj, projErr := openProject(); projErr == nil {
		post.History = hook.NewHistory(filepath.Join(proj.StateDir(), hook.HistoryFileName))
	}

	return hook.WriteDirective(cmd.OutOrStdout(), post.Run(payload))
}

// runPreCommitHook executes the pre-commit hook logic. It warns about
// in-progress tasks on stderr and always lets the commit proceed.
func runPreCommitHook(cmd *cobra.Command) error {
	proj, err := openProject()
	if err != nil {
		return nil //nolint:nilerr // intentional: hook must not block git operations
	}

	pc := &hook.PreCommit{
		Store:   proj.Store,
		History: hook.NewHistory(filepath.Join(proj.StateDir(), hook.HistoryFileName)),
	}
	return pc.Run(cmd.ErrOrStderr())
}

// newDecisionEngine builds the decision engine from project config. When
// offline or unconfigured, the engine runs on heuristics alone.
func newDecisionEngine(proj *project) *decision.Engine {
	history := decision.NewHistory(filepath.Join(proj.StateDir(), decision.HistoryFileName))

	var completer llm.Completer
	if !proj.Config.Offline && llm.Configured() {
		if client, err := llm.New(proj.Config.Model, llm.Provider(proj.Config.Provider)); err == nil {
			completer = client
		}
	}

	return decision.NewEngine(completer, proj.Config.IterationBudget, history)
}

// newTestRunner builds the test runner from project config.
func newTestRunner(proj *project) *runner.Runner {
	return runner.New(
		proj.Config.Test.Command,
		proj.Root,
		time.Duration(proj.Config.Test.Timeout),
	)
}

// leaseTTL returns the configured lease TTL, falling back to the default.
func leaseTTL(proj *project) time.Duration {
	if ttl := time.Duration(proj.Config.LeaseTTL); ttl > 0 {
		return ttl
	}
	return lock.DefaultTTL
}
