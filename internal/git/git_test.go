package git

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gorewood/cadence/internal/output"
)

// chdirToRepoRoot changes to the git repo root for the duration of the test.
// Skips the test if not running inside a git repository.
func chdirToRepoRoot(t *testing.T) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current dir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	out, err := exec.CommandContext(context.Background(), "git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		t.Skip("not running inside a git repository")
	}
	root := strings.TrimSpace(string(out))
	if err := os.Chdir(root); err != nil {
		t.Skipf("cannot change to repo root: %v", err)
	}
}

// chdirTemp changes to a fresh temp dir for the duration of the test.
func chdirTemp(t *testing.T) {
	t.Helper()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get current dir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("failed to change to temp dir: %v", err)
	}
}

func TestRun(t *testing.T) {
	t.Run("git version succeeds", func(t *testing.T) {
		out, err := Run("version")
		if err != nil {
			t.Fatalf("Run() unexpected error: %v", err)
		}
		if out == "" {
			t.Error("Run() expected non-empty output for 'git version'")
		}
	})

	t.Run("invalid git command", func(t *testing.T) {
		_, err := Run("invalid-command-that-does-not-exist")
		if err == nil {
			t.Fatal("Run() expected error, got nil")
		}
		var exitErr *output.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("Run() error should be *output.ExitError, got %T", err)
		}
		if exitErr.Code != output.ExitSystemError {
			t.Errorf("Run() exit code = %d, want %d", exitErr.Code, output.ExitSystemError)
		}
		if !strings.Contains(err.Error(), "git command failed") {
			t.Errorf("Run() error = %v, want git command failed", err)
		}
	})
}

func TestIsRepo(t *testing.T) {
	t.Run("in git repo", func(t *testing.T) {
		chdirToRepoRoot(t)
		if !IsRepo() {
			t.Error("IsRepo() = false, expected true in git repo")
		}
	})

	t.Run("not in git repo", func(t *testing.T) {
		chdirTemp(t)
		if IsRepo() {
			t.Error("IsRepo() = true, expected false outside git repo")
		}
	})
}

func TestRepoRoot(t *testing.T) {
	t.Run("in git repo", func(t *testing.T) {
		chdirToRepoRoot(t)

		root, err := RepoRoot()
		if err != nil {
			t.Fatalf("RepoRoot() error = %v, expected nil", err)
		}
		if !filepath.IsAbs(root) {
			t.Errorf("RepoRoot() = %q, expected absolute path", root)
		}
	})

	t.Run("not in git repo", func(t *testing.T) {
		chdirTemp(t)

		_, err := RepoRoot()
		if err == nil {
			t.Fatal("RepoRoot() expected error outside git repo")
		}
		var exitErr *output.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("RepoRoot() error should be *output.ExitError, got %T", err)
		}
		if exitErr.Code != output.ExitSystemError {
			t.Errorf("RepoRoot() exit code = %d, want %d", exitErr.Code, output.ExitSystemError)
		}
	})
}

func TestCurrentBranch(t *testing.T) {
	t.Run("in git repo", func(t *testing.T) {
		chdirToRepoRoot(t)

		branch, err := CurrentBranch()
		if err != nil {
			t.Fatalf("CurrentBranch() error = %v, expected nil", err)
		}
		if branch == "" {
			t.Error("CurrentBranch() returned empty string")
		}
	})

	t.Run("not in git repo", func(t *testing.T) {
		chdirTemp(t)
		if _, err := CurrentBranch(); err == nil {
			t.Error("CurrentBranch() expected error outside git repo")
		}
	})
}

func TestHEAD(t *testing.T) {
	t.Run("in git repo", func(t *testing.T) {
		chdirToRepoRoot(t)

		sha, err := HEAD()
		if err != nil {
			t.Fatalf("HEAD() error = %v, expected nil", err)
		}
		if len(sha) != 40 {
			t.Errorf("HEAD() returned SHA of length %d, expected 40", len(sha))
		}
	})

	t.Run("not in git repo", func(t *testing.T) {
		chdirTemp(t)
		if _, err := HEAD(); err == nil {
			t.Error("HEAD() expected error outside git repo")
		}
	})
}

func TestHasUncommittedChanges(t *testing.T) {
	t.Run("not in git repo", func(t *testing.T) {
		chdirTemp(t)
		if HasUncommittedChanges() {
			t.Error("HasUncommittedChanges() = true outside git repo")
		}
	})
}
