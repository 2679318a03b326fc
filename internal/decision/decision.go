// Package decision chooses what the agent should do next. Judgment calls
// are delegated to an LLM when one is configured; without one the engine
// falls back to deterministic heuristics, so the loop keeps working offline.
// Every decision is appended to a JSON-lines history for audit.
package decision

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gorewood/cadence/internal/llm"
	"github.com/gorewood/cadence/internal/runner"
	"github.com/gorewood/cadence/internal/state"
)

// Kind classifies a decision.
type Kind string

// Decision kinds.
const (
	KindNextTask        Kind = "next_task"
	KindDiagnoseFailure Kind = "diagnose_failure"
	KindDecomposeTask   Kind = "decompose_task"
	KindEscalate        Kind = "escalate"
)

// DefaultIterationBudget is the number of attempts a task gets before the
// engine escalates to a human.
const DefaultIterationBudget = 5

// Decision is the engine's verdict for one loop iteration.
type Decision struct {
	Kind     Kind            `json:"kind"`
	TaskID   string          `json:"task_id,omitempty"`
	Reason   string          `json:"reason"`
	Subtasks []state.Subtask `json:"subtasks,omitempty"`
}

// Input carries everything the engine may consider.
type Input struct {
	State *state.SystemState
	Test  *runner.Result // nil when no test run happened this iteration
}

// Engine makes decisions. A nil completer means offline mode.
type Engine struct {
	completer llm.Completer
	budget    int
	history   *History
	now       func() time.Time
}

// NewEngine creates an engine. Completer may be nil for offline mode,
// history may be nil to skip recording, budget <= 0 uses the default.
func NewEngine(completer llm.Completer, budget int, history *History) *Engine {
	if budget <= 0 {
		budget = DefaultIterationBudget
	}
	return &Engine{completer: completer, budget: budget, history: history, now: time.Now}
}

// Budget returns the iteration budget in effect.
func (e *Engine) Budget() int {
	return e.budget
}

// Decide produces a decision for the current loop iteration. Escalation is
// checked before anything else; the LLM is consulted next when configured,
// and heuristics cover both offline mode and unusable LLM replies.
func (e *Engine) Decide(ctx context.Context, in Input) (*Decision, error) {
	if in.State == nil {
		return nil, fmt.Errorf("decide: nil state")
	}

	if dec := e.checkEscalation(in.State); dec != nil {
		e.record(in, dec, "policy")
		return dec, nil
	}

	if e.completer != nil {
		if dec, err := e.decideLLM(ctx, in); err == nil {
			e.record(in, dec, "llm")
			return dec, nil
		}
		// Fall through to heuristics on any LLM or parse failure.
	}

	dec := e.decideHeuristic(in)
	e.record(in, dec, "heuristic")
	return dec, nil
}

// checkEscalation returns an escalate decision when the in-progress task
// has exhausted its iteration budget.
func (e *Engine) checkEscalation(st *state.SystemState) *Decision {
	for i := range st.Tasks {
		task := &st.Tasks[i]
		if task.Status != state.StatusInProgress {
			continue
		}
		if count := st.Iterations[task.ID]; count >= e.budget {
			return &Decision{
				Kind:   KindEscalate,
				TaskID: task.ID,
				Reason: fmt.Sprintf("task %q has gone %d iterations without completing; stopping for human review", task.Title, count),
			}
		}
	}
	return nil
}

// decideHeuristic is the deterministic fallback: diagnose failures from the
// test classification, otherwise pick the highest-priority ready task.
// Heuristics never decompose.
func (e *Engine) decideHeuristic(in Input) *Decision {
	if in.Test != nil {
		switch in.Test.Outcome {
		case runner.OutcomeCompileError:
			return &Decision{
				Kind:   KindDiagnoseFailure,
				Reason: "the build is broken; fix compile errors before anything else",
			}
		case runner.OutcomeTestFailure:
			reason := "tests are failing; make them pass before moving on"
			if in.Test.FailedTest != "" {
				reason = fmt.Sprintf("test %s is failing; make it pass before moving on", in.Test.FailedTest)
			}
			return &Decision{Kind: KindDiagnoseFailure, Reason: reason}
		case runner.OutcomeTimeout:
			return &Decision{
				Kind:   KindDiagnoseFailure,
				Reason: "the test run timed out; look for hangs or runaway loops",
			}
		}
	}

	if next := in.State.NextTask(); next != nil {
		return &Decision{
			Kind:   KindNextTask,
			TaskID: next.ID,
			Reason: fmt.Sprintf("work on %q next", next.Title),
		}
	}

	counts := in.State.CountByStatus()
	if counts[state.StatusInProgress] > 0 {
		return &Decision{Kind: KindNextTask, Reason: "finish the task already in progress"}
	}
	if counts[state.StatusPending]+counts[state.StatusBlocked] > 0 {
		return &Decision{
			Kind:   KindEscalate,
			Reason: "no task is ready but unfinished tasks remain; the dependency graph needs human attention",
		}
	}
	return &Decision{Kind: KindNextTask, Reason: "all tasks are done"}
}

// record appends the decision to history. History failures are ignored; a
// full disk must not take the loop down.
func (e *Engine) record(in Input, dec *Decision, source string) {
	if e.history == nil {
		return
	}
	_ = e.history.Append(Record{
		Timestamp:   e.now().UTC(),
		Kind:        dec.Kind,
		TaskID:      dec.TaskID,
		Reason:      dec.Reason,
		Source:      source,
		InputDigest: digestInput(in),
	})
}

// digestInput produces a short stable digest of the decision input, enough
// to correlate history entries with state snapshots.
func digestInput(in Input) string {
	h := sha256.New()
	if hash, err := in.State.Hash(); err == nil {
		h.Write([]byte(hash))
	}
	if in.Test != nil {
		h.Write([]byte(in.Test.Outcome))
		h.Write([]byte(in.Test.FailedTest))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}
