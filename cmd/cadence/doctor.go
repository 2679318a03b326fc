// Package main provides the entry point for the cadence CLI.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/git"
	"github.com/gorewood/cadence/internal/llm"
	"github.com/gorewood/cadence/internal/lock"
	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/setup"
)

// checkStatus represents the result of a health check.
type checkStatus string

const (
	checkPass checkStatus = "pass"
	checkWarn checkStatus = "warn"
	checkFail checkStatus = "fail"
)

// checkResult holds the result of a single health check.
type checkResult struct {
	Name    string      `json:"name"`
	Status  checkStatus `json:"status"`
	Message string      `json:"message"`
	Hint    string      `json:"hint,omitempty"`
}

// doctorResult holds all check results organized by category.
type doctorResult struct {
	Version     string         `json:"version"`
	Core        []checkResult  `json:"core"`
	Loop        []checkResult  `json:"loop"`
	Integration []checkResult  `json:"integration"`
	Summary     *doctorSummary `json:"summary"`
}

// doctorSummary holds the counts of check results.
type doctorSummary struct {
	Passed   int `json:"passed"`
	Warnings int `json:"warnings"`
	Failed   int `json:"failed"`
}

// newDoctorCmd creates the doctor command.
func newDoctorCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check installation health and suggest fixes",
		Long: `Check cadence installation health and suggest fixes.

Runs a series of health checks across three categories:
  CORE        - State file, config, and backups
  LOOP        - LLM configuration, test command, lease
  INTEGRATION - Git hooks and agent hook scripts

Each check reports:
  Pass    - Check passed successfully
  Warning - Non-critical issue found
  Fail    - Critical issue that needs attention

Examples:
  cadence doctor              # Run all health checks
  cadence doctor --quiet      # Only show failures and warnings
  cadence doctor --json       # Output results as JSON`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, quiet)
		},
	}

	cmd.Flags().BoolVar(&quiet, "quiet", false, "Only show failures and warnings")
	return cmd
}

// runDoctor executes the doctor command.
func runDoctor(cmd *cobra.Command, quiet bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	proj, err := openProject()
	if err != nil {
		printer.Error(err)
		return err
	}

	result := gatherDoctorChecks(proj)

	if printer.IsJSON() {
		return outputDoctorJSON(printer, result)
	}

	outputDoctorHuman(printer, result, quiet)
	return nil
}

// gatherDoctorChecks runs all health checks and returns results.
func gatherDoctorChecks(proj *project) *doctorResult {
	result := &doctorResult{
		Version:     version,
		Core:        runCoreChecks(proj),
		Loop:        runLoopChecks(proj),
		Integration: runIntegrationChecks(),
		Summary:     &doctorSummary{},
	}

	allChecks := append(append(result.Core, result.Loop...), result.Integration...)
	for _, check := range allChecks {
		switch check.Status {
		case checkPass:
			result.Summary.Passed++
		case checkWarn:
			result.Summary.Warnings++
		case checkFail:
			result.Summary.Failed++
		}
	}

	return result
}

// runCoreChecks verifies state storage health.
func runCoreChecks(proj *project) []checkResult {
	var checks []checkResult

	if !proj.Store.Exists() {
		checks = append(checks, checkResult{
			Name:    "state",
			Status:  checkFail,
			Message: "no state file",
			Hint:    "run 'cadence init'",
		})
		return checks
	}

	st, err := proj.Store.Load()
	if err != nil {
		checks = append(checks, checkResult{
			Name:    "state",
			Status:  checkFail,
			Message: "state file unreadable: " + err.Error(),
			Hint:    "run 'cadence restore'",
		})
	} else {
		checks = append(checks, checkResult{
			Name:    "state",
			Status:  checkPass,
			Message: fmt.Sprintf("%d tasks, phase %s", len(st.Tasks), st.Phase),
		})
	}

	checks = append(checks, checkConfigFile(proj))
	return checks
}

// checkConfigFile reports on the project config file.
func checkConfigFile(proj *project) checkResult {
	if _, err := os.Stat(proj.ConfigPath()); err != nil {
		return checkResult{
			Name:    "config",
			Status:  checkWarn,
			Message: "no config.yaml, using defaults",
			Hint:    "run 'cadence init' to write one",
		}
	}
	return checkResult{
		Name:    "config",
		Status:  checkPass,
		Message: filepath.Base(proj.ConfigPath()) + " loaded",
	}
}

// runLoopChecks verifies the decision loop's moving parts.
func runLoopChecks(proj *project) []checkResult {
	var checks []checkResult

	switch {
	case proj.Config.Offline:
		checks = append(checks, checkResult{
			Name:    "llm",
			Status:  checkWarn,
			Message: "offline mode, heuristics only",
		})
	case !llm.Configured():
		checks = append(checks, checkResult{
			Name:    "llm",
			Status:  checkWarn,
			Message: "no API key found, heuristics only",
			Hint:    "set one of " + strings.Join(llm.APIKeyEnvVars(), ", "),
		})
	default:
		checks = append(checks, checkLLMClient(proj))
	}

	checks = append(checks, checkTestCommand(proj))
	checks = append(checks, checkLease(proj))
	return checks
}

// checkLLMClient verifies the configured model resolves to a client.
func checkLLMClient(proj *project) checkResult {
	client, err := llm.New(proj.Config.Model, llm.Provider(proj.Config.Provider))
	if err != nil {
		return checkResult{
			Name:    "llm",
			Status:  checkFail,
			Message: err.Error(),
			Hint:    "check the model and provider in config.yaml",
		}
	}
	return checkResult{
		Name:    "llm",
		Status:  checkPass,
		Message: "model " + client.Model(),
	}
}

// checkTestCommand verifies the test binary exists in PATH.
func checkTestCommand(proj *project) checkResult {
	command := proj.Config.Test.Command
	if len(command) == 0 {
		return checkResult{
			Name:    "tests",
			Status:  checkFail,
			Message: "no test command configured",
		}
	}
	if _, err := exec.LookPath(command[0]); err != nil {
		return checkResult{
			Name:    "tests",
			Status:  checkFail,
			Message: command[0] + " not found in PATH",
		}
	}
	return checkResult{
		Name:    "tests",
		Status:  checkPass,
		Message: strings.Join(command, " "),
	}
}

// checkLease reports on the lease file.
func checkLease(proj *project) checkResult {
	status := lock.Inspect(proj.LeasePath(), time.Now())
	switch {
	case !status.Present:
		return checkResult{Name: "lease", Status: checkPass, Message: "free"}
	case status.Stale:
		return checkResult{
			Name:    "lease",
			Status:  checkWarn,
			Message: "stale lease present",
			Hint:    "it will be stolen on the next hook run",
		}
	default:
		return checkResult{
			Name:    "lease",
			Status:  checkPass,
			Message: "held by " + status.Session,
		}
	}
}

// runIntegrationChecks verifies hooks are wired up.
func runIntegrationChecks() []checkResult {
	var checks []checkResult

	if !git.IsRepo() {
		checks = append(checks, checkResult{
			Name:    "git",
			Status:  checkWarn,
			Message: "not in a git repository",
		})
	} else {
		if git.HasUncommittedChanges() {
			checks = append(checks, checkResult{
				Name:    "worktree",
				Status:  checkWarn,
				Message: "uncommitted changes present",
			})
		} else {
			checks = append(checks, checkResult{
				Name:    "worktree",
				Status:  checkPass,
				Message: "clean",
			})
		}
		checks = append(checks, checkGitHook())
	}

	checks = append(checks, checkAgentHooks())
	return checks
}

// checkGitHook reports whether the pre-commit hook is installed.
func checkGitHook() checkResult {
	hooksDir, err := setup.GetHooksDir()
	if err != nil {
		return checkResult{
			Name:    "git hook",
			Status:  checkWarn,
			Message: "cannot locate hooks dir: " + err.Error(),
		}
	}
	status := setup.CheckHookStatus(filepath.Join(hooksDir, "pre-commit"))
	if status.Installed {
		return checkResult{
			Name:    "git hook",
			Status:  checkPass,
			Message: "pre-commit installed",
		}
	}
	return checkResult{
		Name:    "git hook",
		Status:  checkWarn,
		Message: "pre-commit not installed",
		Hint:    "run 'cadence hooks install'",
	}
}

// checkAgentHooks reports on the agent hook scripts (any scope).
func checkAgentHooks() checkResult {
	for _, projectScope := range []bool{true, false} {
		statuses, err := setup.CheckAgentHooks(projectScope)
		if err != nil {
			continue
		}
		installed := 0
		for _, s := range statuses {
			if s.Installed {
				installed++
			}
		}
		if installed == len(statuses) {
			scope := "global"
			if projectScope {
				scope = "project"
			}
			return checkResult{
				Name:    "agent hooks",
				Status:  checkPass,
				Message: "installed (" + scope + ")",
			}
		}
	}
	return checkResult{
		Name:    "agent hooks",
		Status:  checkWarn,
		Message: "not installed",
		Hint:    "run 'cadence setup install'",
	}
}

// outputDoctorJSON outputs the doctor result as JSON.
func outputDoctorJSON(printer *output.Printer, result *doctorResult) error {
	data := map[string]any{
		"version":     result.Version,
		"core":        result.Core,
		"loop":        result.Loop,
		"integration": result.Integration,
		"summary": map[string]any{
			"passed":   result.Summary.Passed,
			"warnings": result.Summary.Warnings,
			"failed":   result.Summary.Failed,
		},
	}
	return printer.WriteJSON(data)
}

// outputDoctorHuman outputs the doctor result in human-readable format.
func outputDoctorHuman(printer *output.Printer, result *doctorResult, quiet bool) {
	printer.Println()
	printer.Print("cadence doctor v%s\n", result.Version)

	printCheckSection(printer, "CORE", result.Core, quiet)
	printCheckSection(printer, "LOOP", result.Loop, quiet)
	printCheckSection(printer, "INTEGRATION", result.Integration, quiet)

	printer.Println()
	printer.Print("%s %d passed  %s %d warnings  %s %d failed\n",
		statusIcon(checkPass), result.Summary.Passed,
		statusIcon(checkWarn), result.Summary.Warnings,
		statusIcon(checkFail), result.Summary.Failed,
	)
}

// printCheckSection prints a section of checks.
func printCheckSection(printer *output.Printer, title string, checks []checkResult, quiet bool) {
	if quiet {
		hasNonPass := false
		for _, check := range checks {
			if check.Status != checkPass {
				hasNonPass = true
				break
			}
		}
		if !hasNonPass {
			return
		}
	}

	printer.Println()
	printer.Println(title)

	for _, check := range checks {
		if quiet && check.Status == checkPass {
			continue
		}

		printer.Print("  %s  %s %s\n", statusIcon(check.Status), check.Name, check.Message)
		if check.Hint != "" {
			printer.Print("     -> %s\n", check.Hint)
		}
	}
}

// statusIcon returns the icon for a check status.
func statusIcon(status checkStatus) string {
	switch status {
	case checkPass:
		return "ok"
	case checkWarn:
		return "!!"
	case checkFail:
		return "XX"
	default:
		return "??"
	}
}
