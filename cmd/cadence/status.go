// Package main provides the entry point for the cadence CLI.
package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/git"
	"github.com/gorewood/cadence/internal/lock"
	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/state"
)

// statusResult holds the data for status output.
type statusResult struct {
	Project    string                   `json:"project"`
	Phase      string                   `json:"phase"`
	Branch     string                   `json:"branch,omitempty"`
	StateDir   string                   `json:"state_dir"`
	Tasks      map[state.TaskStatus]int `json:"tasks"`
	Evidence   int                      `json:"evidence"`
	LeaseState string                   `json:"lease"`
	UpdatedAt  string                   `json:"updated_at"`
}

// newStatusCmd creates the status command.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project and loop state",
		Long: `Show the current state of the cadence loop.

Displays the project name, workflow phase, task counts by status,
recorded evidence, and whether a hook currently holds the lease.

Examples:
  cadence status          # Human-readable status
  cadence status --json   # JSON for scripting`,
		RunE: runStatus,
	}
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, _ []string) error {
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

	result := &statusResult{
		Project:    st.Project,
		Phase:      st.Phase,
		Branch:     currentBranch(),
		StateDir:   proj.StateDir(),
		Tasks:      st.CountByStatus(),
		Evidence:   len(st.Evidence),
		LeaseState: describeLease(proj.LeasePath()),
		UpdatedAt:  st.UpdatedAt.Format("2006-01-02 15:04:05 MST"),
	}

	if printer.IsJSON() {
		counts := map[string]int{}
		for status, n := range result.Tasks {
			counts[string(status)] = n
		}
		return printer.Success(map[string]any{
			"project":    result.Project,
			"phase":      result.Phase,
			"branch":     result.Branch,
			"state_dir":  result.StateDir,
			"tasks":      counts,
			"evidence":   result.Evidence,
			"lease":      result.LeaseState,
			"updated_at": result.UpdatedAt,
		})
	}

	printHumanStatus(printer, result)
	return nil
}

// currentBranch returns the git branch, or empty outside a repository.
func currentBranch() string {
	if !git.IsRepo() {
		return ""
	}
	branch, err := git.CurrentBranch()
	if err != nil {
		return ""
	}
	return branch
}

// describeLease reports the lease file state without taking it.
func describeLease(path string) string {
	status := lock.Inspect(path, time.Now())
	switch {
	case !status.Present:
		return "free"
	case status.Stale:
		return "stale"
	default:
		return "held by " + status.Session
	}
}

// printHumanStatus outputs status in human-readable format.
func printHumanStatus(printer *output.Printer, result *statusResult) {
	printer.Section("Project")
	printer.KeyValue("Name", result.Project)
	printer.KeyValue("Phase", result.Phase)
	if result.Branch != "" {
		printer.KeyValue("Branch", result.Branch)
	}
	printer.KeyValue("Updated", result.UpdatedAt)

	printer.Section("Tasks")
	for _, status := range []state.TaskStatus{
		state.StatusPending, state.StatusReady, state.StatusInProgress,
		state.StatusBlocked, state.StatusDone,
	} {
		printer.KeyValue(string(status), strconv.Itoa(result.Tasks[status]))
	}

	printer.Section("Loop")
	printer.KeyValue("Evidence", strconv.Itoa(result.Evidence))
	printer.KeyValue("Lease", result.LeaseState)
}
