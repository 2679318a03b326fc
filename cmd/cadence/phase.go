// Package main provides the entry point for the cadence CLI.
package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/phase"
)

// newPhaseCmd creates the phase parent command with subcommands.
func newPhaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Inspect and advance the workflow phase",
		Long: `Inspect and advance the workflow phase.

The workflow moves through a fixed sequence: overview, architecture,
tests, implementation, review. Each phase has a gate (a required
artifact, a minimum size, a passing test run) that must hold before
the loop moves on.

Examples:
  cadence phase status    # Show the current phase and its gate
  cadence phase advance   # Move to the next phase if the gate passes`,
	}

	cmd.AddCommand(newPhaseStatusCmd())
	cmd.AddCommand(newPhaseAdvanceCmd())
	return cmd
}

// newPhaseStatusCmd creates the phase status subcommand.
func newPhaseStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current phase and its gate",
		RunE:  runPhaseStatus,
	}
}

// runPhaseStatus executes the phase status command.
func runPhaseStatus(cmd *cobra.Command, _ []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	seq := phase.DefaultSequence().WithGates(proj.Config.Gates)
	result := seq.Check(st.Phase, proj.Root, st)

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"phase":  st.Phase,
			"index":  seq.Index(st.Phase),
			"phases": seq.Labels(),
			"gate": map[string]any{
				"passed":  result.Passed,
				"reason":  result.Reason,
				"missing": result.Missing,
			},
			"next": seq.Next(st.Phase),
		})
	}

	printer.Section("Phase")
	printer.KeyValue("Current", st.Phase)
	printer.KeyValue("Next", orDash(seq.Next(st.Phase)))

	printer.Section("Gate")
	printer.KeyValue("Passed", formatBool(result.Passed))
	if result.Reason != "" {
		printer.KeyValue("Reason", result.Reason)
	}
	return nil
}

// newPhaseAdvanceCmd creates the phase advance subcommand.
func newPhaseAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance",
		Short: "Move to the next phase if the gate passes",
		RunE:  runPhaseAdvance,
	}
}

// runPhaseAdvance executes the phase advance command.
func runPhaseAdvance(cmd *cobra.Command, _ []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}
	st, err := proj.Store.Load()
	if err != nil {
		printer.Error(err)
		return err
	}

	seq := phase.DefaultSequence().WithGates(proj.Config.Gates)
	next, err := seq.Advance(st, proj.Root)
	if err != nil {
		printer.Error(err)
		return err
	}
	if err := proj.Store.Save(st, time.Now()); err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{"phase": next})
	}
	printer.Print("Advanced to %s\n", next)
	return nil
}

// orDash substitutes a dash for an empty value in key/value output.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatBool returns a human-readable boolean string.
func formatBool(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
