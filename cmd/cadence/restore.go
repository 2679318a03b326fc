// Package main provides the entry point for the cadence CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
)

// newRestoreCmd creates the restore command.
func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore state from the newest valid backup",
		Long: `Restore state from the newest valid backup.

Backups are written on every state change and rotated. Restore walks
them newest-first and installs the first one that parses and validates,
so a corrupted state file never strands the loop.`,
		RunE: runRestore,
	}
}

// runRestore executes the restore command.
func runRestore(cmd *cobra.Command, _ []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}

	st, backup, err := proj.Store.Restore()
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"restored_from": backup,
			"phase":         st.Phase,
			"tasks":         len(st.Tasks),
		})
	}
	printer.Print("Restored from %s (%d tasks, phase %s)\n", backup, len(st.Tasks), st.Phase)
	return nil
}
