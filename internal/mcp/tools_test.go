package mcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorewood/cadence/internal/phase"
	"github.com/gorewood/cadence/internal/state"
	"github.com/gorewood/cadence/internal/xref"
)

// --- Test helpers ---

func makeTestEnv(t *testing.T) *Env {
	t.Helper()
	root := t.TempDir()
	stateDir := filepath.Join(root, ".cadence")
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	now := time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC)
	st := state.New("demo", phase.Overview, now)
	if _, err := st.AddTask("write overview", nil, 2, now); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := st.AddTask("sketch architecture", nil, 1, now.Add(time.Second)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	store := state.NewStore(stateDir, 3)
	if err := store.Save(st, now); err != nil {
		t.Fatalf("Save: %v", err)
	}

	return &Env{
		Store: store,
		Seq:   phase.DefaultSequence(),
		Index: xref.New(root),
		Root:  root,
		Now:   func() time.Time { return now },
	}
}

func taskByTitle(t *testing.T, env *Env, title string) *state.Task {
	t.Helper()
	st, err := env.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := range st.Tasks {
		if st.Tasks[i].Title == title {
			task := st.Tasks[i]
			return &task
		}
	}
	t.Fatalf("no task titled %q", title)
	return nil
}

// --- status ---

func TestHandleStatus(t *testing.T) {
	env := makeTestEnv(t)

	_, out, err := handleStatus(env)(context.Background(), nil, StatusInput{})
	if err != nil {
		t.Fatalf("status error = %v", err)
	}
	if out.Project != "demo" || out.Phase != phase.Overview {
		t.Errorf("status = %+v", out)
	}
	if out.TaskCounts["ready"] != 2 {
		t.Errorf("ready count = %d, want 2", out.TaskCounts["ready"])
	}
}

func TestHandleStatus_NoState(t *testing.T) {
	env := makeTestEnv(t)
	env.Store = state.NewStore(t.TempDir(), 3)

	_, _, err := handleStatus(env)(context.Background(), nil, StatusInput{})
	if err == nil || !strings.Contains(err.Error(), "cadence init") {
		t.Errorf("error = %v, want a pointer at init", err)
	}
}

// --- next_task ---

func TestHandleNextTask(t *testing.T) {
	env := makeTestEnv(t)

	_, out, err := handleNextTask(env)(context.Background(), nil, NextTaskInput{})
	if err != nil {
		t.Fatalf("next_task error = %v", err)
	}
	if out.Task == nil || out.Task.Title != "write overview" {
		t.Fatalf("picked %+v, want the priority-2 task", out.Task)
	}

	// Without start, nothing changes on disk.
	if got := taskByTitle(t, env, "write overview").Status; got != state.StatusReady {
		t.Errorf("status = %s, want still ready", got)
	}
}

func TestHandleNextTask_Start(t *testing.T) {
	env := makeTestEnv(t)

	_, out, err := handleNextTask(env)(context.Background(), nil, NextTaskInput{Start: true})
	if err != nil {
		t.Fatalf("next_task error = %v", err)
	}
	if got := taskByTitle(t, env, out.Task.Title).Status; got != state.StatusInProgress {
		t.Errorf("status = %s, want in_progress", got)
	}
}

// --- record_evidence ---

func TestHandleRecordEvidence(t *testing.T) {
	env := makeTestEnv(t)
	task := taskByTitle(t, env, "write overview")

	_, out, err := handleRecordEvidence(env)(context.Background(), nil, RecordEvidenceInput{
		TaskID:  task.ID,
		Kind:    "test_pass",
		Summary: "unit tests green",
	})
	if err != nil {
		t.Fatalf("record_evidence error = %v", err)
	}
	if out.ID == "" {
		t.Error("want an evidence id")
	}

	st, err := env.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.HasEvidence(state.EvidenceTestPass) {
		t.Error("evidence not persisted")
	}
}

func TestHandleRecordEvidence_BadKind(t *testing.T) {
	env := makeTestEnv(t)

	_, _, err := handleRecordEvidence(env)(context.Background(), nil, RecordEvidenceInput{
		Kind:    "vibes",
		Summary: "looks fine",
	})
	if err == nil {
		t.Error("want error for unknown evidence kind")
	}
}

// --- complete_task ---

func TestHandleCompleteTask(t *testing.T) {
	env := makeTestEnv(t)

	// Chain the two tasks so completion unblocks the second.
	st, err := env.Store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	first := st.Tasks[0].ID
	st.Tasks[1].Dependencies = []string{first}
	st.Tasks[1].Status = state.StatusPending
	if err := env.Store.Save(st, time.Now()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, out, err := handleCompleteTask(env)(context.Background(), nil, CompleteTaskInput{ID: first})
	if err != nil {
		t.Fatalf("complete_task error = %v", err)
	}
	if out.Task.Status != "done" {
		t.Errorf("task status = %s, want done", out.Task.Status)
	}
	if len(out.Ready) != 1 || out.Ready[0].Title != "sketch architecture" {
		t.Errorf("ready = %+v, want the unblocked dependent", out.Ready)
	}
}

func TestHandleCompleteTask_Unknown(t *testing.T) {
	env := makeTestEnv(t)
	_, _, err := handleCompleteTask(env)(context.Background(), nil, CompleteTaskInput{ID: "ca_nope"})
	if err == nil {
		t.Error("want error for unknown task")
	}
}

// --- related_files ---

func TestHandleRelatedFiles(t *testing.T) {
	env := makeTestEnv(t)

	// A tiny tree: note.md points at target.md.
	if err := os.WriteFile(filepath.Join(env.Root, "note.md"), []byte("see RELATES_TO: target.md\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(env.Root, "target.md"), []byte("target\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	_, out, err := handleRelatedFiles(env)(context.Background(), nil, RelatedFilesInput{Path: "note.md", Depth: 1})
	if err != nil {
		t.Fatalf("related_files error = %v", err)
	}
	found := false
	for _, f := range out.Files {
		if f == "target.md" {
			found = true
		}
	}
	if !found {
		t.Errorf("files = %v, want target.md", out.Files)
	}
}

func TestHandleRelatedFiles_RequiresPath(t *testing.T) {
	env := makeTestEnv(t)
	_, _, err := handleRelatedFiles(env)(context.Background(), nil, RelatedFilesInput{})
	if err == nil {
		t.Error("want error when path is missing")
	}
}

// --- phase_gate ---

func TestHandlePhaseGate(t *testing.T) {
	env := makeTestEnv(t)

	t.Run("fails while the artifact is missing", func(t *testing.T) {
		_, out, err := handlePhaseGate(env)(context.Background(), nil, PhaseGateInput{})
		if err != nil {
			t.Fatalf("phase_gate error = %v", err)
		}
		if out.Passed {
			t.Error("gate should fail without docs/overview.md")
		}
		if out.Next != phase.Architecture {
			t.Errorf("next = %q, want architecture", out.Next)
		}
	})

	t.Run("passes once the artifact exists", func(t *testing.T) {
		docs := filepath.Join(env.Root, "docs")
		if err := os.MkdirAll(docs, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		content := strings.Repeat("overview text ", 100)
		if err := os.WriteFile(filepath.Join(docs, "overview.md"), []byte(content), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}

		_, out, err := handlePhaseGate(env)(context.Background(), nil, PhaseGateInput{})
		if err != nil {
			t.Fatalf("phase_gate error = %v", err)
		}
		if !out.Passed {
			t.Errorf("gate should pass, got %+v", out)
		}
	})
}
