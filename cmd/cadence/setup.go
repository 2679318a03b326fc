package main

import (
	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/setup"
)

// newSetupCmd creates the setup parent command for agent hook scripts.
func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Manage agent hook scripts",
		Long: `Manage the agent hook scripts that drive the TDD loop.

Cadence installs two scripts into the agent's hooks directory: a stop
hook that decides whether the agent may stop working, and a
post-tool-use hook that keeps the cross-reference index fresh. Each
script is a marked section, so your own hook content in the same file
survives install and uninstall.

Subcommands:
  install    Install the agent hook scripts
  uninstall  Remove the cadence sections from the hook scripts
  status     Show install status per hook

Examples:
  cadence setup install              # Install globally (~/.claude/hooks)
  cadence setup install --project    # Install into this project only
  cadence setup status`,
	}

	cmd.AddCommand(newSetupInstallCmd())
	cmd.AddCommand(newSetupUninstallCmd())
	cmd.AddCommand(newSetupStatusCmd())
	return cmd
}

// newSetupInstallCmd creates the setup install subcommand.
func newSetupInstallCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the agent hook scripts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetupInstall(cmd, project)
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Install into the project's .claude/hooks instead of globally")
	return cmd
}

// runSetupInstall executes the setup install command.
func runSetupInstall(cmd *cobra.Command, project bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	var installed []map[string]any
	for _, event := range setup.Events {
		path, scope, err := setup.ResolveAgentHookPath(event, project)
		if err != nil {
			printer.Error(err)
			return err
		}
		if err := setup.InstallSection(path, event); err != nil {
			printer.Error(err)
			return err
		}
		installed = append(installed, map[string]any{
			"event": event,
			"path":  path,
			"scope": scope,
		})
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"status": "ok",
			"hooks":  installed,
		})
	}

	printer.Section("Agent Hooks")
	for _, h := range installed {
		printer.KeyValue(h["event"].(string), h["path"].(string))
	}
	return nil
}

// newSetupUninstallCmd creates the setup uninstall subcommand.
func newSetupUninstallCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the cadence sections from the hook scripts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetupUninstall(cmd, project)
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Remove from the project's .claude/hooks instead of globally")
	return cmd
}

// runSetupUninstall executes the setup uninstall command.
func runSetupUninstall(cmd *cobra.Command, project bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	for _, event := range setup.Events {
		path, _, err := setup.ResolveAgentHookPath(event, project)
		if err != nil {
			printer.Error(err)
			return err
		}
		if err := setup.RemoveSectionFromHook(path); err != nil {
			printer.Error(err)
			return err
		}
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{"status": "ok"})
	}
	return printer.Success(map[string]any{"message": "Removed agent hook sections"})
}

// newSetupStatusCmd creates the setup status subcommand.
func newSetupStatusCmd() *cobra.Command {
	var project bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show install status per hook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSetupStatus(cmd, project)
		},
	}
	cmd.Flags().BoolVar(&project, "project", false, "Check the project's .claude/hooks instead of the global ones")
	return cmd
}

// runSetupStatus executes the setup status command.
func runSetupStatus(cmd *cobra.Command, project bool) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	statuses, err := setup.CheckAgentHooks(project)
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{"hooks": statuses})
	}

	printer.Section("Agent Hooks")
	for _, s := range statuses {
		label := "not installed"
		if s.Installed {
			label = "installed (" + s.Scope + ")"
		}
		printer.KeyValue(s.Event, label)
	}
	return nil
}
