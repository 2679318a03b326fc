// Package state provides the system state aggregate for the cadence harness:
// the task graph, evidence records, phase position, and iteration counters,
// persisted as a single schema-versioned JSON document.
package state

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SchemaVersion is the current schema version for cadence state documents.
const SchemaVersion = "cadence.state/v1"

// idPrefix is the prefix for all task IDs.
const idPrefix = "ca_"

// shortHashLength is the number of hex characters of the title hash used in task IDs.
const shortHashLength = 6

// TaskStatus is the lifecycle status of a task.
type TaskStatus string

// Task lifecycle statuses. A task moves pending -> ready -> in_progress -> done;
// blocked is set on parents during decomposition and clears when children finish.
const (
	StatusPending    TaskStatus = "pending"
	StatusReady      TaskStatus = "ready"
	StatusInProgress TaskStatus = "in_progress"
	StatusDone       TaskStatus = "done"
	StatusBlocked    TaskStatus = "blocked"
)

// knownStatuses lists every valid task status.
var knownStatuses = []TaskStatus{StatusPending, StatusReady, StatusInProgress, StatusDone, StatusBlocked}

// Task is a node in the task graph.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Status       TaskStatus `json:"status"`
	Dependencies []string   `json:"dependencies,omitempty"`
	Priority     int        `json:"priority"`
	Parent       string     `json:"parent,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// EvidenceKind classifies an evidence record.
type EvidenceKind string

// Evidence kinds.
const (
	EvidenceTestPass EvidenceKind = "test_pass"
	EvidenceArtifact EvidenceKind = "artifact"
	EvidenceManual   EvidenceKind = "manual"
)

// Evidence is a record asserting that some work was completed and verified.
type Evidence struct {
	ID        string       `json:"id"`
	TaskID    string       `json:"task_id,omitempty"`
	Kind      EvidenceKind `json:"kind"`
	Summary   string       `json:"summary"`
	CreatedAt time.Time    `json:"created_at"`
}

// SystemState is the whole-system aggregate. It is loaded whole, mutated in
// memory, and written back whole; there are no partial updates.
type SystemState struct {
	Schema     string         `json:"schema"`
	Project    string         `json:"project"`
	Phase      string         `json:"phase"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Tasks      []Task         `json:"tasks"`
	Evidence   []Evidence     `json:"evidence,omitempty"`
	Iterations map[string]int `json:"iterations,omitempty"`
}

// ValidationError is returned when state validation fails.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Problems) == 0 {
		return "invalid state"
	}
	return "invalid state: " + strings.Join(e.Problems, "; ")
}

// ErrWrongSchema indicates a state document with an unknown schema version.
var ErrWrongSchema = errors.New("not a cadence state document")

// New creates an empty system state for the given project, positioned at
// the first phase label.
func New(project, firstPhase string, now time.Time) *SystemState {
	return &SystemState{
		Schema:     SchemaVersion,
		Project:    project,
		Phase:      firstPhase,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
		Tasks:      []Task{},
		Iterations: map[string]int{},
	}
}

// GenerateTaskID creates a deterministic task ID from a title and timestamp.
// Format: ca_<ISO8601-timestamp>_<short-title-hash>
func GenerateTaskID(title string, timestamp time.Time) string {
	sum := sha256.Sum256([]byte(title))
	short := hex.EncodeToString(sum[:])[:shortHashLength]
	return idPrefix + timestamp.UTC().Format(time.RFC3339) + "_" + short
}

// Validate checks the aggregate invariants: schema version, unique task ids,
// dependencies that reference existing tasks, and readiness consistency
// (a ready or in_progress task must have all dependencies done).
// This is a linear scan over the graph, deliberately nothing more.
func (s *SystemState) Validate() error {
	var problems []string

	if s.Schema != SchemaVersion {
		return fmt.Errorf("%w: schema %q", ErrWrongSchema, s.Schema)
	}
	if s.Project == "" {
		problems = append(problems, "missing project name")
	}
	if s.Phase == "" {
		problems = append(problems, "missing phase")
	}

	byID := make(map[string]*Task, len(s.Tasks))
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.ID == "" {
			problems = append(problems, "task with empty id")
			continue
		}
		if _, dup := byID[task.ID]; dup {
			problems = append(problems, "duplicate task id: "+task.ID)
			continue
		}
		byID[task.ID] = task
		if !validStatus(task.Status) {
			problems = append(problems, fmt.Sprintf("task %s: unknown status %q", task.ID, task.Status))
		}
	}

	for i := range s.Tasks {
		problems = appendDependencyProblems(problems, &s.Tasks[i], byID)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// appendDependencyProblems checks one task's dependency edges.
func appendDependencyProblems(problems []string, task *Task, byID map[string]*Task) []string {
	for _, dep := range task.Dependencies {
		if dep == task.ID {
			problems = append(problems, "task "+task.ID+" depends on itself")
			continue
		}
		depTask, ok := byID[dep]
		if !ok {
			problems = append(problems, "task "+task.ID+" depends on unknown task "+dep)
			continue
		}
		if (task.Status == StatusReady || task.Status == StatusInProgress) && depTask.Status != StatusDone {
			problems = append(problems,
				fmt.Sprintf("task %s is %s but dependency %s is %s", task.ID, task.Status, dep, depTask.Status))
		}
	}
	return problems
}

// validStatus reports whether the status is one of the known statuses.
func validStatus(status TaskStatus) bool {
	for _, s := range knownStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// ToJSON serializes the state to indented JSON.
func (s *SystemState) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing state to JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a state document from JSON.
// Returns ErrWrongSchema if the document parses but carries an unknown schema.
func FromJSON(data []byte) (*SystemState, error) {
	if len(data) == 0 {
		return nil, errors.New("empty JSON data")
	}

	var st SystemState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing state JSON: %w", err)
	}
	if st.Schema != SchemaVersion {
		return nil, fmt.Errorf("%w: schema %q", ErrWrongSchema, st.Schema)
	}
	if st.Iterations == nil {
		st.Iterations = map[string]int{}
	}
	return &st, nil
}

// Hash computes the SHA-256 hash of the canonical JSON serialization,
// used for change detection between load and save.
func (s *SystemState) Hash() (string, error) {
	// Canonical form: compact JSON with updated_at zeroed so that pure
	// timestamp bumps do not count as changes.
	clone := *s
	clone.UpdatedAt = time.Time{}
	data, err := json.Marshal(&clone)
	if err != nil {
		return "", fmt.Errorf("hashing state: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
