package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/cadence/internal/state"
)

// TaskSummary is a simplified task for output.
type TaskSummary struct {
	ID       string `json:"id"                 jsonschema:"task ID"`
	Title    string `json:"title"              jsonschema:"task title"`
	Status   string `json:"status"             jsonschema:"lifecycle status"`
	Priority int    `json:"priority"           jsonschema:"scheduling priority, higher first"`
	Parent   string `json:"parent,omitempty"   jsonschema:"parent task ID for decomposed tasks"`
}

func toTaskSummary(t *state.Task) *TaskSummary {
	return &TaskSummary{
		ID:       t.ID,
		Title:    t.Title,
		Status:   string(t.Status),
		Priority: t.Priority,
		Parent:   t.Parent,
	}
}

// --- status tool ---

// StatusInput is the input for the status tool (no parameters needed).
type StatusInput struct{}

// StatusOutput is the output for the status tool.
type StatusOutput struct {
	Project    string         `json:"project"     jsonschema:"project name"`
	Phase      string         `json:"phase"       jsonschema:"current workflow phase"`
	StateDir   string         `json:"state_dir"   jsonschema:"path to the state directory"`
	TaskCounts map[string]int `json:"task_counts" jsonschema:"number of tasks per status"`
	Evidence   int            `json:"evidence"    jsonschema:"number of evidence records"`
	UpdatedAt  string         `json:"updated_at"  jsonschema:"last state update timestamp"`
}

func handleStatus(env *Env) mcp.ToolHandlerFor[StatusInput, StatusOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
		st, err := env.Store.Load()
		if err != nil {
			return nil, StatusOutput{}, loadError(err)
		}

		counts := map[string]int{}
		for status, n := range st.CountByStatus() {
			counts[string(status)] = n
		}

		return nil, StatusOutput{
			Project:    st.Project,
			Phase:      st.Phase,
			StateDir:   env.Store.Dir(),
			TaskCounts: counts,
			Evidence:   len(st.Evidence),
			UpdatedAt:  st.UpdatedAt.Format(time.RFC3339),
		}, nil
	}
}

// --- next_task tool ---

// NextTaskInput is the input for the next_task tool.
type NextTaskInput struct {
	Start bool `json:"start,omitempty" jsonschema:"mark the returned task in_progress"`
}

// NextTaskOutput is the output for the next_task tool.
type NextTaskOutput struct {
	Task   *TaskSummary `json:"task,omitempty" jsonschema:"the picked task, absent when nothing is ready"`
	Reason string       `json:"reason"         jsonschema:"why this task, or why none"`
}

func handleNextTask(env *Env) mcp.ToolHandlerFor[NextTaskInput, NextTaskOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input NextTaskInput) (*mcp.CallToolResult, NextTaskOutput, error) {
		st, err := env.Store.Load()
		if err != nil {
			return nil, NextTaskOutput{}, loadError(err)
		}

		next := st.NextTask()
		if next == nil {
			return nil, NextTaskOutput{Reason: "no task is ready"}, nil
		}

		if input.Start {
			if err := st.StartTask(next.ID); err != nil {
				return nil, NextTaskOutput{}, fmt.Errorf("starting task: %w", err)
			}
			if err := env.Store.Save(st, env.now()); err != nil {
				return nil, NextTaskOutput{}, fmt.Errorf("saving state: %w", err)
			}
		}

		return nil, NextTaskOutput{
			Task:   toTaskSummary(next),
			Reason: fmt.Sprintf("highest-priority ready task (priority %d)", next.Priority),
		}, nil
	}
}

// --- record_evidence tool ---

// RecordEvidenceInput is the input for the record_evidence tool.
type RecordEvidenceInput struct {
	TaskID  string `json:"task_id,omitempty" jsonschema:"task the evidence belongs to"`
	Kind    string `json:"kind"              jsonschema:"evidence kind: test_pass, artifact, or manual"`
	Summary string `json:"summary"           jsonschema:"what was verified"`
}

// RecordEvidenceOutput is the output for the record_evidence tool.
type RecordEvidenceOutput struct {
	ID string `json:"id" jsonschema:"the new evidence record ID"`
}

func handleRecordEvidence(env *Env) mcp.ToolHandlerFor[RecordEvidenceInput, RecordEvidenceOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input RecordEvidenceInput) (*mcp.CallToolResult, RecordEvidenceOutput, error) {
		kind := state.EvidenceKind(input.Kind)
		switch kind {
		case state.EvidenceTestPass, state.EvidenceArtifact, state.EvidenceManual:
		default:
			return nil, RecordEvidenceOutput{}, fmt.Errorf("unknown evidence kind %q", input.Kind)
		}

		st, err := env.Store.Load()
		if err != nil {
			return nil, RecordEvidenceOutput{}, loadError(err)
		}

		id, err := st.AddEvidence(input.TaskID, kind, input.Summary, env.now())
		if err != nil {
			return nil, RecordEvidenceOutput{}, fmt.Errorf("adding evidence: %w", err)
		}
		if err := env.Store.Save(st, env.now()); err != nil {
			return nil, RecordEvidenceOutput{}, fmt.Errorf("saving state: %w", err)
		}

		return nil, RecordEvidenceOutput{ID: id}, nil
	}
}

// --- complete_task tool ---

// CompleteTaskInput is the input for the complete_task tool.
type CompleteTaskInput struct {
	ID string `json:"id" jsonschema:"task ID to mark done"`
}

// CompleteTaskOutput is the output for the complete_task tool.
type CompleteTaskOutput struct {
	Task  *TaskSummary  `json:"task"            jsonschema:"the completed task"`
	Ready []TaskSummary `json:"ready,omitempty" jsonschema:"tasks that became ready"`
}

func handleCompleteTask(env *Env) mcp.ToolHandlerFor[CompleteTaskInput, CompleteTaskOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input CompleteTaskInput) (*mcp.CallToolResult, CompleteTaskOutput, error) {
		st, err := env.Store.Load()
		if err != nil {
			return nil, CompleteTaskOutput{}, loadError(err)
		}

		readyBefore := readyIDs(st)

		if err := st.CompleteTask(input.ID); err != nil {
			return nil, CompleteTaskOutput{}, fmt.Errorf("completing task: %w", err)
		}
		if err := env.Store.Save(st, env.now()); err != nil {
			return nil, CompleteTaskOutput{}, fmt.Errorf("saving state: %w", err)
		}

		out := CompleteTaskOutput{Task: toTaskSummary(st.FindTask(input.ID))}
		for i := range st.Tasks {
			task := &st.Tasks[i]
			if task.Status == state.StatusReady && !readyBefore[task.ID] {
				out.Ready = append(out.Ready, *toTaskSummary(task))
			}
		}
		return nil, out, nil
	}
}

func readyIDs(st *state.SystemState) map[string]bool {
	ids := map[string]bool{}
	for i := range st.Tasks {
		if st.Tasks[i].Status == state.StatusReady {
			ids[st.Tasks[i].ID] = true
		}
	}
	return ids
}

// --- related_files tool ---

// RelatedFilesInput is the input for the related_files tool.
type RelatedFilesInput struct {
	Path  string `json:"path"            jsonschema:"file path relative to the project root"`
	Depth int    `json:"depth,omitempty" jsonschema:"graph distance to walk (default 3, max 5)"`
}

// RelatedFilesOutput is the output for the related_files tool.
type RelatedFilesOutput struct {
	Files []string `json:"files" jsonschema:"related file paths, sorted"`
}

func handleRelatedFiles(env *Env) mcp.ToolHandlerFor[RelatedFilesInput, RelatedFilesOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RelatedFilesInput) (*mcp.CallToolResult, RelatedFilesOutput, error) {
		if input.Path == "" {
			return nil, RelatedFilesOutput{}, errors.New("path is required")
		}
		if _, err := env.Index.Scan(ctx); err != nil {
			return nil, RelatedFilesOutput{}, fmt.Errorf("scanning source tree: %w", err)
		}

		files := env.Index.Related(input.Path, input.Depth)
		if files == nil {
			files = []string{}
		}
		return nil, RelatedFilesOutput{Files: files}, nil
	}
}

// --- phase_gate tool ---

// PhaseGateInput is the input for the phase_gate tool (no parameters needed).
type PhaseGateInput struct{}

// PhaseGateOutput is the output for the phase_gate tool.
type PhaseGateOutput struct {
	Phase  string `json:"phase"            jsonschema:"current phase"`
	Passed bool   `json:"passed"           jsonschema:"whether the gate passes"`
	Reason string `json:"reason,omitempty" jsonschema:"why the gate fails"`
	Next   string `json:"next,omitempty"   jsonschema:"the phase after this one"`
}

func handlePhaseGate(env *Env) mcp.ToolHandlerFor[PhaseGateInput, PhaseGateOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ PhaseGateInput) (*mcp.CallToolResult, PhaseGateOutput, error) {
		st, err := env.Store.Load()
		if err != nil {
			return nil, PhaseGateOutput{}, loadError(err)
		}

		result := env.Seq.Check(st.Phase, env.Root, st)
		return nil, PhaseGateOutput{
			Phase:  st.Phase,
			Passed: result.Passed,
			Reason: result.Reason,
			Next:   env.Seq.Next(st.Phase),
		}, nil
	}
}

// loadError rephrases a state load failure for tool consumers.
func loadError(err error) error {
	if errors.Is(err, state.ErrNoState) {
		return errors.New("no cadence state found; run 'cadence init' first")
	}
	return fmt.Errorf("loading state: %w", err)
}
