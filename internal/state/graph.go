package state

import (
	"time"

	"github.com/google/uuid"

	"github.com/gorewood/cadence/internal/output"
)

// FindTask returns a pointer to the task with the given id, or nil.
func (s *SystemState) FindTask(id string) *Task {
	for i := range s.Tasks {
		if s.Tasks[i].ID == id {
			return &s.Tasks[i]
		}
	}
	return nil
}

// AddTask appends a new task with the given title, dependencies, and
// priority. The task starts pending; Refresh promotes it to ready when its
// dependencies are satisfied. Returns the created task's id.
func (s *SystemState) AddTask(title string, deps []string, priority int, now time.Time) (string, error) {
	if title == "" {
		return "", output.NewUserError("task title must not be empty")
	}
	for _, dep := range deps {
		if s.FindTask(dep) == nil {
			return "", output.NewUserError("unknown dependency: " + dep)
		}
	}

	id := GenerateTaskID(title, now)
	if s.FindTask(id) != nil {
		return "", output.NewConflictError("task already exists: " + id)
	}

	s.Tasks = append(s.Tasks, Task{
		ID:           id,
		Title:        title,
		Status:       StatusPending,
		Dependencies: deps,
		Priority:     priority,
		CreatedAt:    now.UTC(),
	})
	s.Refresh()
	return id, nil
}

// Refresh recomputes derived statuses in a single pass: pending and blocked
// tasks whose dependencies are all done become ready. It never demotes
// in_progress or done tasks.
func (s *SystemState) Refresh() {
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.Status != StatusPending && task.Status != StatusBlocked {
			continue
		}
		if s.depsDone(task) {
			task.Status = StatusReady
		}
	}
}

// depsDone reports whether every dependency of the task is done.
func (s *SystemState) depsDone(task *Task) bool {
	for _, dep := range task.Dependencies {
		depTask := s.FindTask(dep)
		if depTask == nil || depTask.Status != StatusDone {
			return false
		}
	}
	return true
}

// NextTask returns the highest-priority ready task, breaking ties by
// creation time (earliest first). Returns nil when no task is ready.
// This is a plain linear scan; cadence has no scheduler.
func (s *SystemState) NextTask() *Task {
	s.Refresh()

	var best *Task
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.Status != StatusReady {
			continue
		}
		if best == nil || task.Priority > best.Priority ||
			(task.Priority == best.Priority && task.CreatedAt.Before(best.CreatedAt)) {
			best = task
		}
	}
	return best
}

// StartTask marks a ready task as in_progress.
func (s *SystemState) StartTask(id string) error {
	task := s.FindTask(id)
	if task == nil {
		return output.NewUserError("unknown task: " + id)
	}
	s.Refresh()
	if task.Status != StatusReady {
		return output.NewConflictError("task " + id + " is " + string(task.Status) + ", not ready")
	}
	task.Status = StatusInProgress
	return nil
}

// CompleteTask marks a task as done and refreshes downstream readiness.
func (s *SystemState) CompleteTask(id string) error {
	task := s.FindTask(id)
	if task == nil {
		return output.NewUserError("unknown task: " + id)
	}
	if task.Status == StatusDone {
		return output.NewConflictError("task already done: " + id)
	}
	task.Status = StatusDone
	s.Refresh()
	return nil
}

// Subtask describes one child produced by decomposition.
type Subtask struct {
	Title    string `json:"title"`
	Priority int    `json:"priority"`
}

// Decompose replaces a task with child tasks. The parent becomes blocked
// and gains a dependency on each child, so it turns ready again only when
// every child is done. Children inherit the parent's dependencies.
func (s *SystemState) Decompose(id string, subtasks []Subtask, now time.Time) ([]string, error) {
	parent := s.FindTask(id)
	if parent == nil {
		return nil, output.NewUserError("unknown task: " + id)
	}
	if parent.Status == StatusDone {
		return nil, output.NewConflictError("cannot decompose a done task: " + id)
	}
	if len(subtasks) == 0 {
		return nil, output.NewUserError("decomposition produced no subtasks")
	}

	inherited := append([]string(nil), parent.Dependencies...)
	childIDs := make([]string, 0, len(subtasks))
	for i, sub := range subtasks {
		// Offset timestamps so sibling ids stay unique and ordered.
		childID := GenerateTaskID(sub.Title, now.Add(time.Duration(i)*time.Second))
		s.Tasks = append(s.Tasks, Task{
			ID:           childID,
			Title:        sub.Title,
			Status:       StatusPending,
			Dependencies: append([]string(nil), inherited...),
			Priority:     sub.Priority,
			Parent:       id,
			CreatedAt:    now.UTC(),
		})
		childIDs = append(childIDs, childID)
	}

	parent = s.FindTask(id) // re-resolve: appends may have reallocated
	parent.Status = StatusBlocked
	parent.Dependencies = append(parent.Dependencies, childIDs...)
	s.Refresh()
	return childIDs, nil
}

// AddEvidence appends an evidence record and returns its id.
func (s *SystemState) AddEvidence(taskID string, kind EvidenceKind, summary string, now time.Time) (string, error) {
	if summary == "" {
		return "", output.NewUserError("evidence summary must not be empty")
	}
	if taskID != "" && s.FindTask(taskID) == nil {
		return "", output.NewUserError("unknown task: " + taskID)
	}

	id := uuid.NewString()
	s.Evidence = append(s.Evidence, Evidence{
		ID:        id,
		TaskID:    taskID,
		Kind:      kind,
		Summary:   summary,
		CreatedAt: now.UTC(),
	})
	return id, nil
}

// HasEvidence reports whether any evidence of the given kind exists.
func (s *SystemState) HasEvidence(kind EvidenceKind) bool {
	for _, ev := range s.Evidence {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

// CountByStatus returns the number of tasks per status.
func (s *SystemState) CountByStatus() map[TaskStatus]int {
	counts := make(map[TaskStatus]int, len(knownStatuses))
	for _, task := range s.Tasks {
		counts[task.Status]++
	}
	return counts
}

// BumpIteration increments and returns the iteration counter for a hook.
func (s *SystemState) BumpIteration(hook string) int {
	if s.Iterations == nil {
		s.Iterations = map[string]int{}
	}
	s.Iterations[hook]++
	return s.Iterations[hook]
}

// ResetIteration zeroes the iteration counter for a hook.
func (s *SystemState) ResetIteration(hook string) {
	if s.Iterations != nil {
		delete(s.Iterations, hook)
	}
}
