// Package main provides the entry point for the cadence CLI.
package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/phase"
	"github.com/gorewood/cadence/internal/state"
)

// initFlags holds the command-line flags for the init command.
type initFlags struct {
	project string
	force   bool
}

// newInitCmd creates the init command.
func newInitCmd() *cobra.Command {
	flags := &initFlags{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize cadence in the current project",
		Long: `Initialize cadence in the current project.

This command sets up everything needed to run the TDD loop:
  - Creates the .cadence/ directory
  - Writes a fresh state file starting at the overview phase
  - Writes a default config.yaml you can edit

The command refuses to overwrite existing state unless --force is given.

Examples:
  cadence init                   # Initialize with the directory name as project
  cadence init --project myapp   # Initialize with an explicit project name
  cadence init --force           # Re-initialize, discarding existing state`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInit(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.project, "project", "", "Project name (defaults to directory name)")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Overwrite existing state")

	return cmd
}

// runInit executes the init command.
func runInit(cmd *cobra.Command, flags *initFlags) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}

	if proj.Store.Exists() && !flags.force {
		conflictErr := output.NewConflictError("cadence is already initialized; use --force to start over")
		printer.Error(conflictErr)
		return conflictErr
	}

	name := flags.project
	if name == "" {
		name = filepath.Base(proj.Root)
	}

	if err := os.MkdirAll(proj.StateDir(), 0o755); err != nil {
		sysErr := output.NewSystemErrorWithCause("failed to create state directory", err)
		printer.Error(sysErr)
		return sysErr
	}

	now := time.Now()
	seq := phase.DefaultSequence().WithGates(proj.Config.Gates)
	st := state.New(name, seq.First(), now)
	if err := proj.Store.Save(st, now); err != nil {
		printer.Error(err)
		return err
	}

	// Write the config file only when absent so --force keeps user edits.
	if _, statErr := os.Stat(proj.ConfigPath()); os.IsNotExist(statErr) {
		if err := proj.Config.Save(proj.ConfigPath()); err != nil {
			printer.Error(err)
			return err
		}
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"status":    "ok",
			"project":   name,
			"phase":     st.Phase,
			"state_dir": proj.StateDir(),
		})
	}

	printer.Section("Initialized")
	printer.KeyValue("Project", name)
	printer.KeyValue("Phase", st.Phase)
	printer.KeyValue("State", proj.Store.Path())
	printer.Println()
	printer.Print("Next: add tasks with 'cadence task add', then start the loop.\n")
	return nil
}
