package main

import (
	"os"
	"path/filepath"

	"github.com/gorewood/cadence/internal/config"
	"github.com/gorewood/cadence/internal/git"
	"github.com/gorewood/cadence/internal/state"
)

// stateDirName is the per-project state directory.
const stateDirName = ".cadence"

// leaseFileName is the advisory lease file inside the state directory.
const leaseFileName = "cadence.lock"

// projectRoot resolves the project root: the git repo root when inside a
// repository, the working directory otherwise.
func projectRoot() (string, error) {
	if git.IsRepo() {
		return git.RepoRoot()
	}
	return os.Getwd()
}

// project bundles everything a command needs to operate on a cadence project.
type project struct {
	Root   string
	Config *config.Config
	Store  *state.Store
}

// StateDir returns the state directory path.
func (p *project) StateDir() string {
	return filepath.Join(p.Root, stateDirName)
}

// ConfigPath returns the project config file path.
func (p *project) ConfigPath() string {
	return filepath.Join(p.StateDir(), config.FileName)
}

// LeasePath returns the lease file path.
func (p *project) LeasePath() string {
	return filepath.Join(p.StateDir(), leaseFileName)
}

// openProject resolves the root, loads config, and builds the state store.
// It does not require state to exist; commands decide how to handle that.
func openProject() (*project, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}

	stateDir := filepath.Join(root, stateDirName)
	cfg, err := config.Load(filepath.Join(stateDir, config.FileName))
	if err != nil {
		return nil, err
	}

	return &project{
		Root:   root,
		Config: cfg,
		Store:  state.NewStore(stateDir, cfg.BackupKeep),
	}, nil
}
