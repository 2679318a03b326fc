package setup

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gorewood/cadence/internal/git"
	"github.com/gorewood/cadence/internal/output"
)

// GitHookStatus represents the status of the git pre-commit hook.
type GitHookStatus struct {
	Installed bool
	Chained   bool
}

// GetHooksDir returns the path to the .git/hooks directory.
func GetHooksDir() (string, error) {
	root, err := git.RepoRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".git", "hooks"), nil
}

// HookExists checks if a hook file exists at the given path.
func HookExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CheckHookStatus checks if the hook is installed and whether it chains to a backup.
func CheckHookStatus(hookPath string) GitHookStatus {
	status := GitHookStatus{}

	content, err := os.ReadFile(hookPath)
	if err != nil {
		return status // Not installed
	}

	contentStr := string(content)
	if strings.Contains(contentStr, "cadence hook run") {
		status.Installed = true
		status.Chained = strings.Contains(contentStr, ".backup")
	}

	return status
}

// GeneratePreCommitHook generates the pre-commit hook script content.
// The hook warns about tasks stuck in progress; it never blocks the commit.
// If withChain is true, the hook chains to the backed-up original hook.
func GeneratePreCommitHook(withChain bool) string {
	script := `#!/bin/sh
# cadence pre-commit hook
# Warns about tasks still in progress (non-blocking)

if command -v cadence >/dev/null 2>&1; then
  cadence hook run pre-commit "$@"
fi
`

	if withChain {
		script += `
# Chain to original hook if it exists
if [ -x ".git/hooks/pre-commit.backup" ]; then
  exec .git/hooks/pre-commit.backup "$@"
fi
`
	}

	return script
}

// BackupExistingHook moves an existing hook to a .backup location.
func BackupExistingHook(hookPath string) error {
	backupPath := hookPath + ".backup"
	if err := os.Rename(hookPath, backupPath); err != nil {
		return output.NewSystemErrorWithCause("failed to backup existing hook", err)
	}
	return nil
}

// RemoveGitHook removes the pre-commit hook and optionally restores a backup.
// Returns whether the hook was removed and whether the backup was restored.
func RemoveGitHook(hookPath string, hasBackup bool, backupPath string) (removed, restored bool, err error) {
	if err := os.Remove(hookPath); err != nil && !os.IsNotExist(err) {
		return false, false, output.NewSystemErrorWithCause("failed to remove hook", err)
	}
	if !hasBackup {
		return true, false, nil
	}
	if err := os.Rename(backupPath, hookPath); err != nil {
		return true, false, output.NewSystemErrorWithCause("failed to restore backup hook", err)
	}
	return true, true, nil
}

// DescribeInstallAction returns a human-readable description of what the
// install operation would do given the current state.
func DescribeInstallAction(existingHook, chain, force bool) string {
	if !existingHook {
		return "would install"
	}
	switch {
	case force:
		return "would overwrite existing hook"
	case chain:
		return "would backup and chain existing hook"
	default:
		return "would fail (hook exists, use --chain or --force)"
	}
}

// DescribeUninstallAction returns a human-readable description of what the
// uninstall operation would do given the current state.
func DescribeUninstallAction(installed, hasBackup bool) string {
	switch {
	case !installed:
		return "no cadence hook installed"
	case hasBackup:
		return "would remove and restore backup"
	default:
		return "would remove"
	}
}
