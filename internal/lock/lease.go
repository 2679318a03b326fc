// Package lock provides a TTL lease file that serializes hook runs.
//
// The lease is a JSON file created with O_EXCL. A held lease can be stolen
// when the owning process is dead or the lease has expired; this replaces
// blind existence checks with an explicit staleness rule, so a crashed hook
// never wedges the loop.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorewood/cadence/internal/output"
)

// DefaultTTL is the lease duration when none is configured.
const DefaultTTL = 2 * time.Minute

// ErrHeld is returned when the lease is held by a live, unexpired owner.
var ErrHeld = errors.New("lease held by another session")

// Lease is the on-disk lease record.
type Lease struct {
	PID        int       `json:"pid"`
	Session    string    `json:"session"`
	AcquiredAt time.Time `json:"acquired_at"`
	TTLSeconds int64     `json:"ttl_seconds"`
}

// Expired reports whether the lease TTL has elapsed at the given time.
func (l *Lease) Expired(now time.Time) bool {
	return now.After(l.AcquiredAt.Add(time.Duration(l.TTLSeconds) * time.Second))
}

// Stale reports whether the lease can be stolen: TTL elapsed or owner dead.
func (l *Lease) Stale(now time.Time) bool {
	return l.Expired(now) || !pidAlive(l.PID)
}

// Acquire takes the lease at path for the given session. If the file exists
// and its lease is stale, the stale lease is removed and acquisition retried
// once. Returns a conflict error wrapping ErrHeld when the lease is live.
func Acquire(path, session string, ttl time.Duration, now time.Time) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	for attempt := 0; attempt < 2; attempt++ {
		err := tryCreate(path, session, ttl, now)
		if err == nil {
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return output.NewSystemErrorWithCause("failed to create lease file", err)
		}

		existing, readErr := Read(path)
		if readErr != nil {
			// Unreadable lease file: treat as stale debris.
			_ = os.Remove(path)
			continue
		}
		if !existing.Stale(now) {
			return &output.ExitError{
				Code:    output.ExitConflict,
				Message: fmt.Sprintf("lease held by session %s (pid %d)", existing.Session, existing.PID),
				Cause:   ErrHeld,
			}
		}
		_ = os.Remove(path)
	}

	return output.NewSystemError("failed to acquire lease after clearing stale lock")
}

// tryCreate writes a fresh lease with O_EXCL semantics.
func tryCreate(path, session string, ttl time.Duration, now time.Time) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	lease := Lease{
		PID:        os.Getpid(),
		Session:    session,
		AcquiredAt: now.UTC(),
		TTLSeconds: int64(ttl / time.Second),
	}
	data, err := json.MarshalIndent(&lease, "", "  ")
	if err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	return f.Close()
}

// Read parses the lease file at path.
func Read(path string) (*Lease, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lease Lease
	if err := json.Unmarshal(data, &lease); err != nil {
		return nil, fmt.Errorf("parsing lease file: %w", err)
	}
	return &lease, nil
}

// Release removes the lease if it belongs to the given session.
// Releasing a missing lease is a no-op; releasing someone else's lease is a
// conflict.
func Release(path, session string) error {
	lease, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		// Unparseable lease: remove it rather than leak a wedge.
		_ = os.Remove(path)
		return nil
	}

	if lease.Session != session {
		return output.NewConflictError("lease belongs to session " + lease.Session)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return output.NewSystemErrorWithCause("failed to remove lease file", err)
	}
	return nil
}

// Status describes the lease at path for doctor-style reporting.
type Status struct {
	Present bool   `json:"present"`
	Stale   bool   `json:"stale,omitempty"`
	Session string `json:"session,omitempty"`
	PID     int    `json:"pid,omitempty"`
}

// Inspect reports on the lease at path without modifying it.
func Inspect(path string, now time.Time) Status {
	lease, err := Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Status{Present: false}
		}
		return Status{Present: true, Stale: true}
	}
	return Status{
		Present: true,
		Stale:   lease.Stale(now),
		Session: lease.Session,
		PID:     lease.PID,
	}
}
