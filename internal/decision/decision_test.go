package decision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gorewood/cadence/internal/llm"
	"github.com/gorewood/cadence/internal/runner"
	"github.com/gorewood/cadence/internal/state"
)

// cannedCompleter returns a fixed completion or error.
type cannedCompleter struct {
	content string
	err     error
}

func (c *cannedCompleter) Complete(_ context.Context, _ llm.Request) (*llm.Response, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.Response{Content: c.content, Model: "test"}, nil
}

func testState(t *testing.T) *state.SystemState {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	st := state.New("demo", "implementation", now)
	if _, err := st.AddTask("write parser", nil, 2, now); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if _, err := st.AddTask("write printer", nil, 1, now.Add(time.Second)); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	return st
}

func TestDecide_Heuristic_NextTask(t *testing.T) {
	st := testState(t)
	engine := NewEngine(nil, 0, nil)

	dec, err := engine.Decide(context.Background(), Input{State: st})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if dec.Kind != KindNextTask {
		t.Fatalf("kind = %s, want next_task", dec.Kind)
	}
	// Highest priority ready task wins.
	if task := st.FindTask(dec.TaskID); task == nil || task.Title != "write parser" {
		t.Errorf("picked task %q, want the priority-2 task", dec.TaskID)
	}
}

func TestDecide_Heuristic_Failures(t *testing.T) {
	tests := []struct {
		name       string
		test       *runner.Result
		wantInText string
	}{
		{
			name:       "compile error",
			test:       &runner.Result{Outcome: runner.OutcomeCompileError},
			wantInText: "compile",
		},
		{
			name:       "test failure names the test",
			test:       &runner.Result{Outcome: runner.OutcomeTestFailure, FailedTest: "TestParse"},
			wantInText: "TestParse",
		},
		{
			name:       "timeout",
			test:       &runner.Result{Outcome: runner.OutcomeTimeout},
			wantInText: "timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(nil, 0, nil)
			dec, err := engine.Decide(context.Background(), Input{State: testState(t), Test: tt.test})
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			if dec.Kind != KindDiagnoseFailure {
				t.Errorf("kind = %s, want diagnose_failure", dec.Kind)
			}
			if !strings.Contains(dec.Reason, tt.wantInText) {
				t.Errorf("reason = %q, want mention of %q", dec.Reason, tt.wantInText)
			}
		})
	}
}

func TestDecide_Heuristic_PassingRunPicksNextTask(t *testing.T) {
	engine := NewEngine(nil, 0, nil)
	dec, err := engine.Decide(context.Background(), Input{
		State: testState(t),
		Test:  &runner.Result{Outcome: runner.OutcomePass},
	})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if dec.Kind != KindNextTask || dec.TaskID == "" {
		t.Errorf("decision = %+v, want a next_task pick", dec)
	}
}

func TestDecide_AllDone(t *testing.T) {
	st := testState(t)
	for i := range st.Tasks {
		st.Tasks[i].Status = state.StatusDone
	}

	engine := NewEngine(nil, 0, nil)
	dec, err := engine.Decide(context.Background(), Input{State: st})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if dec.Kind != KindNextTask || dec.TaskID != "" {
		t.Errorf("decision = %+v, want next_task with no task", dec)
	}
}

func TestDecide_StuckGraphEscalates(t *testing.T) {
	st := testState(t)
	for i := range st.Tasks {
		st.Tasks[i].Status = state.StatusPending
		st.Tasks[i].Dependencies = nil
	}
	// Make each task depend on the other so nothing can become ready.
	st.Tasks[0].Dependencies = []string{st.Tasks[1].ID}
	st.Tasks[1].Dependencies = []string{st.Tasks[0].ID}

	engine := NewEngine(nil, 0, nil)
	dec, err := engine.Decide(context.Background(), Input{State: st})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if dec.Kind != KindEscalate {
		t.Errorf("kind = %s, want escalate for a stuck graph", dec.Kind)
	}
}

func TestDecide_EscalatesOverBudget(t *testing.T) {
	st := testState(t)
	taskID := st.Tasks[0].ID
	if err := st.StartTask(taskID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	for i := 0; i < 5; i++ {
		st.BumpIteration(taskID)
	}

	engine := NewEngine(&cannedCompleter{content: `{"kind":"next_task","reason":"x"}`}, 5, nil)
	dec, err := engine.Decide(context.Background(), Input{State: st})
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	// Budget exhaustion wins even with a willing LLM.
	if dec.Kind != KindEscalate || dec.TaskID != taskID {
		t.Errorf("decision = %+v, want escalate for %s", dec, taskID)
	}
}

func TestDecide_LLM(t *testing.T) {
	st := testState(t)
	taskID := st.Tasks[1].ID

	t.Run("valid fenced reply", func(t *testing.T) {
		completer := &cannedCompleter{
			content: "```json\n{\"kind\": \"next_task\", \"task_id\": \"" + taskID + "\", \"reason\": \"printer first\"}\n```",
		}
		engine := NewEngine(completer, 0, nil)
		dec, err := engine.Decide(context.Background(), Input{State: st})
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if dec.Kind != KindNextTask || dec.TaskID != taskID || dec.Reason != "printer first" {
			t.Errorf("decision = %+v", dec)
		}
	})

	t.Run("decompose reply", func(t *testing.T) {
		completer := &cannedCompleter{
			content: `{"kind": "decompose_task", "task_id": "` + taskID + `", "reason": "too big",
				"subtasks": [{"title": "lexer", "priority": 2}, {"title": "emitter", "priority": 1}]}`,
		}
		engine := NewEngine(completer, 0, nil)
		dec, err := engine.Decide(context.Background(), Input{State: st})
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if dec.Kind != KindDecomposeTask || len(dec.Subtasks) != 2 {
			t.Errorf("decision = %+v, want decompose with 2 subtasks", dec)
		}
	})

	t.Run("unknown task id falls back to heuristic", func(t *testing.T) {
		completer := &cannedCompleter{content: `{"kind": "next_task", "task_id": "ca_bogus", "reason": "x"}`}
		engine := NewEngine(completer, 0, nil)
		dec, err := engine.Decide(context.Background(), Input{State: st})
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if st.FindTask(dec.TaskID) == nil {
			t.Errorf("fallback picked nonexistent task %q", dec.TaskID)
		}
	})

	t.Run("completer error falls back to heuristic", func(t *testing.T) {
		engine := NewEngine(&cannedCompleter{err: errors.New("api down")}, 0, nil)
		dec, err := engine.Decide(context.Background(), Input{State: st})
		if err != nil {
			t.Fatalf("Decide() error = %v", err)
		}
		if dec.Kind != KindNextTask {
			t.Errorf("kind = %s, want heuristic next_task", dec.Kind)
		}
	})
}

func TestValidateLLMDecision(t *testing.T) {
	st := testState(t)
	taskID := st.Tasks[0].ID

	tests := []struct {
		name    string
		parsed  llmDecision
		wantErr bool
	}{
		{
			name:   "valid escalate",
			parsed: llmDecision{Kind: "escalate", Reason: "stuck"},
		},
		{
			name:    "unknown kind",
			parsed:  llmDecision{Kind: "retire", Reason: "x"},
			wantErr: true,
		},
		{
			name:    "empty reason",
			parsed:  llmDecision{Kind: "next_task", TaskID: taskID},
			wantErr: true,
		},
		{
			name:    "decompose without task",
			parsed:  llmDecision{Kind: "decompose_task", Reason: "x", Subtasks: []state.Subtask{{Title: "a"}, {Title: "b"}}},
			wantErr: true,
		},
		{
			name:    "decompose with one subtask",
			parsed:  llmDecision{Kind: "decompose_task", TaskID: taskID, Reason: "x", Subtasks: []state.Subtask{{Title: "a"}}},
			wantErr: true,
		},
		{
			name:    "decompose with untitled subtask",
			parsed:  llmDecision{Kind: "decompose_task", TaskID: taskID, Reason: "x", Subtasks: []state.Subtask{{Title: "a"}, {Title: "  "}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validateLLMDecision(&tt.parsed, st)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLLMDecision() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

