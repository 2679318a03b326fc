// Package setup provides business logic for installing and managing
// cadence integrations: agent hook scripts and the git pre-commit hook.
//
// This package contains pure functions for hook generation, installation,
// backup, and removal. Command-layer adapters in cmd/cadence/ handle
// CLI concerns (flags, output formatting, cobra wiring) and delegate
// to this package for the actual work.
//
// # Agent Hooks
//
// Cadence installs two hook scripts into the agent's hooks directory: a
// stop hook that keeps the TDD loop running, and a post-tool-use hook for
// bookkeeping. Both are managed as marked sections so user content in the
// same file survives install and uninstall:
//
//	path, scope, err := setup.ResolveAgentHookPath(setup.EventStop, false)
//	installed := setup.IsSectionInstalled(path)
//	err := setup.InstallSection(path, setup.EventStop)
//	err := setup.RemoveSectionFromHook(path)
//
// # Git Hooks
//
// Git hook operations (pre-commit install, uninstall, backup, status):
//
//	status := setup.CheckHookStatus(hookPath)
//	content := setup.GeneratePreCommitHook(true)
//	err := setup.BackupExistingHook(hookPath)
package setup
