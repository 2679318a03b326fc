package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gorewood/cadence/internal/llm"
	"github.com/gorewood/cadence/internal/state"
)

// maxOutputExcerpt caps how much test output goes into the prompt.
const maxOutputExcerpt = 2000

// systemPrompt frames the LLM's role and the reply contract.
const systemPrompt = `You are the decision engine of an autonomous TDD loop.
Reply with a single JSON object and nothing else:
{"kind": "next_task"|"diagnose_failure"|"decompose_task"|"escalate",
 "task_id": "...", "reason": "...",
 "subtasks": [{"title": "...", "priority": 0}]}
Rules: task_id must be an existing task id. Use decompose_task only when a
task is too large for one sitting; give 2 to 6 subtasks. Use escalate only
when a human must intervene. The reason is shown to the coding agent.`

// llmDecision mirrors the JSON reply contract.
type llmDecision struct {
	Kind     string          `json:"kind"`
	TaskID   string          `json:"task_id"`
	Reason   string          `json:"reason"`
	Subtasks []state.Subtask `json:"subtasks"`
}

// decideLLM asks the completer for a decision and validates the reply.
func (e *Engine) decideLLM(ctx context.Context, in Input) (*Decision, error) {
	resp, err := e.completer.Complete(ctx, llm.Request{
		System: systemPrompt,
		Prompt: buildPrompt(in),
	})
	if err != nil {
		return nil, err
	}

	raw := llm.ExtractJSON(resp.Content)
	if raw == "" {
		return nil, fmt.Errorf("completion contained no JSON object")
	}

	var parsed llmDecision
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parsing decision JSON: %w", err)
	}
	return validateLLMDecision(&parsed, in.State)
}

// validateLLMDecision checks the reply against the state so a hallucinated
// task id or malformed decomposition never reaches the loop.
func validateLLMDecision(parsed *llmDecision, st *state.SystemState) (*Decision, error) {
	kind := Kind(parsed.Kind)
	switch kind {
	case KindNextTask, KindDiagnoseFailure, KindDecomposeTask, KindEscalate:
	default:
		return nil, fmt.Errorf("unknown decision kind %q", parsed.Kind)
	}
	if parsed.Reason == "" {
		return nil, fmt.Errorf("decision has no reason")
	}
	if parsed.TaskID != "" && st.FindTask(parsed.TaskID) == nil {
		return nil, fmt.Errorf("decision references unknown task %q", parsed.TaskID)
	}

	dec := &Decision{Kind: kind, TaskID: parsed.TaskID, Reason: parsed.Reason}
	if kind == KindDecomposeTask {
		if parsed.TaskID == "" {
			return nil, fmt.Errorf("decompose_task needs a task_id")
		}
		if len(parsed.Subtasks) < 2 || len(parsed.Subtasks) > 6 {
			return nil, fmt.Errorf("decompose_task needs 2 to 6 subtasks, got %d", len(parsed.Subtasks))
		}
		for _, sub := range parsed.Subtasks {
			if strings.TrimSpace(sub.Title) == "" {
				return nil, fmt.Errorf("decompose_task has a subtask with no title")
			}
		}
		dec.Subtasks = parsed.Subtasks
	}
	return dec, nil
}

// buildPrompt renders a compact view of the state and the last test run.
func buildPrompt(in Input) string {
	var b strings.Builder
	st := in.State

	fmt.Fprintf(&b, "Project: %s\nPhase: %s\n", st.Project, st.Phase)

	counts := st.CountByStatus()
	fmt.Fprintf(&b, "Tasks: %d done, %d ready, %d in progress, %d pending, %d blocked\n",
		counts[state.StatusDone], counts[state.StatusReady], counts[state.StatusInProgress],
		counts[state.StatusPending], counts[state.StatusBlocked])

	b.WriteString("\nOpen tasks:\n")
	listed := 0
	for i := range st.Tasks {
		task := &st.Tasks[i]
		if task.Status == state.StatusDone || listed >= 10 {
			continue
		}
		fmt.Fprintf(&b, "- %s [%s, priority %d] %s", task.ID, task.Status, task.Priority, task.Title)
		if n := st.Iterations[task.ID]; n > 0 {
			fmt.Fprintf(&b, " (%d iterations)", n)
		}
		b.WriteString("\n")
		listed++
	}
	if listed == 0 {
		b.WriteString("- none\n")
	}

	if in.Test != nil {
		fmt.Fprintf(&b, "\nLast test run: %s\n", in.Test.Outcome)
		if in.Test.FailedTest != "" {
			fmt.Fprintf(&b, "First failing test: %s\n", in.Test.FailedTest)
		}
		if out := strings.TrimSpace(in.Test.Output); out != "" {
			if len(out) > maxOutputExcerpt {
				out = out[len(out)-maxOutputExcerpt:]
			}
			fmt.Fprintf(&b, "Output tail:\n%s\n", out)
		}
	}

	b.WriteString("\nWhat should the agent do next?")
	return b.String()
}
