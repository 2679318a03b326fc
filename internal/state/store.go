package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorewood/cadence/internal/output"
)

// StateFileName is the name of the state document inside the cadence directory.
const StateFileName = "state.json"

// backupDirName is the backup subdirectory inside the cadence directory.
const backupDirName = "backups"

// DefaultBackupKeep is how many rotating backups are retained by default.
const DefaultBackupKeep = 5

// ErrNoState is returned when no state document exists yet.
var ErrNoState = errors.New("no cadence state found (run 'cadence init')")

// Store provides load/save access to the state document with hashed change
// detection and rotating backups. Not safe for concurrent use; hook runs
// serialize through the lease lock instead.
type Store struct {
	dir        string
	keep       int
	loadedHash string
}

// NewStore creates a store rooted at the given cadence directory
// (typically <project>/.cadence). keep bounds backup retention; values
// below 1 fall back to DefaultBackupKeep.
func NewStore(dir string, keep int) *Store {
	if keep < 1 {
		keep = DefaultBackupKeep
	}
	return &Store{dir: dir, keep: keep}
}

// Dir returns the cadence directory this store operates on.
func (st *Store) Dir() string {
	return st.dir
}

// Path returns the full path of the state document.
func (st *Store) Path() string {
	return filepath.Join(st.dir, StateFileName)
}

// Exists reports whether a state document is present.
func (st *Store) Exists() bool {
	_, err := os.Stat(st.Path())
	return err == nil
}

// Load reads and validates the state document, remembering its hash for
// change detection on the next Save. Returns ErrNoState when the file is
// missing.
func (st *Store) Load() (*SystemState, error) {
	data, err := os.ReadFile(st.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoState
		}
		return nil, output.NewSystemErrorWithCause("failed to read state file", err)
	}

	s, err := FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("state file %s: %w", st.Path(), err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	hash, err := s.Hash()
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to hash state", err)
	}
	st.loadedHash = hash
	return s, nil
}

// Save validates and writes the state document atomically. When the state
// hash is unchanged since Load, the write and backup are skipped entirely.
// A good existing state file is backed up before being replaced.
func (st *Store) Save(s *SystemState, now time.Time) error {
	if err := s.Validate(); err != nil {
		return output.NewUserError(err.Error())
	}

	hash, err := s.Hash()
	if err != nil {
		return output.NewSystemErrorWithCause("failed to hash state", err)
	}
	if hash == st.loadedHash {
		return nil
	}

	s.UpdatedAt = now.UTC()
	data, err := s.ToJSON()
	if err != nil {
		return output.NewSystemError("failed to serialize state: " + err.Error())
	}

	if err := os.MkdirAll(st.dir, 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to create cadence directory", err)
	}

	if st.Exists() {
		if err := st.backup(now); err != nil {
			return err
		}
	}

	if err := atomicWrite(st.Path(), data); err != nil {
		return output.NewSystemErrorWithCause("failed to write state", err)
	}

	st.loadedHash = hash
	return nil
}

// backup copies the current state file into the backup directory with a
// timestamped name, then prunes old backups beyond the retention limit.
func (st *Store) backup(now time.Time) error {
	data, err := os.ReadFile(st.Path())
	if err != nil {
		return output.NewSystemErrorWithCause("failed to read state for backup", err)
	}

	backupDir := filepath.Join(st.dir, backupDirName)
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return output.NewSystemErrorWithCause("failed to create backup directory", err)
	}

	name := "state-" + now.UTC().Format("20060102T150405.000000000Z") + ".json"
	if err := atomicWrite(filepath.Join(backupDir, name), data); err != nil {
		return output.NewSystemErrorWithCause("failed to write backup", err)
	}

	return st.pruneBackups()
}

// pruneBackups removes the oldest backups beyond the retention limit.
// Backup names sort lexicographically by timestamp, so the newest are last.
func (st *Store) pruneBackups() error {
	names, err := st.backupNames()
	if err != nil || len(names) <= st.keep {
		return err
	}
	for _, name := range names[:len(names)-st.keep] {
		if err := os.Remove(filepath.Join(st.dir, backupDirName, name)); err != nil {
			return output.NewSystemErrorWithCause("failed to prune backup", err)
		}
	}
	return nil
}

// backupNames returns backup file names sorted ascending (oldest first).
func (st *Store) backupNames() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(st.dir, backupDirName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, output.NewSystemErrorWithCause("failed to list backups", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Restore replaces a corrupt state document with the newest parseable
// backup. Returns the restored state and the backup name used, or an error
// when no usable backup exists.
func (st *Store) Restore() (*SystemState, string, error) {
	names, err := st.backupNames()
	if err != nil {
		return nil, "", err
	}

	for i := len(names) - 1; i >= 0; i-- {
		data, readErr := os.ReadFile(filepath.Join(st.dir, backupDirName, names[i]))
		if readErr != nil {
			continue
		}
		s, parseErr := FromJSON(data)
		if parseErr != nil || s.Validate() != nil {
			continue
		}

		if err := atomicWrite(st.Path(), data); err != nil {
			return nil, "", output.NewSystemErrorWithCause("failed to restore state", err)
		}
		hash, hashErr := s.Hash()
		if hashErr != nil {
			return nil, "", output.NewSystemErrorWithCause("failed to hash restored state", hashErr)
		}
		st.loadedHash = hash
		return s, names[i], nil
	}

	return nil, "", output.NewSystemError("no usable backup found")
}

// atomicWrite writes data to path using write-to-temp-then-rename.
// The temp file is created in the same directory as path.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
