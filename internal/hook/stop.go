package hook

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorewood/cadence/internal/decision"
	"github.com/gorewood/cadence/internal/lock"
	"github.com/gorewood/cadence/internal/runner"
	"github.com/gorewood/cadence/internal/state"
)

// TestRunner runs the project's tests. Satisfied by runner.Runner.
type TestRunner interface {
	Run(ctx context.Context) (*runner.Result, error)
}

// Stop is the stop hook: it decides whether the agent may stop working.
type Stop struct {
	Store     *state.Store
	Engine    *decision.Engine
	Runner    TestRunner
	LeasePath string
	LeaseTTL  time.Duration
	History   *History
	Now       func() time.Time
}

// Run executes one stop-hook iteration. It never returns an error; every
// failure mode maps to a continue directive so the agent is released.
func (s *Stop) Run(ctx context.Context, payload *Payload) Directive {
	now := s.now()
	directive := s.run(ctx, payload, now)

	if s.History != nil {
		_ = s.History.Append(Record{
			Timestamp: now.UTC(),
			Hook:      "stop",
			Decision:  directive.Decision,
			Reason:    directive.Reason,
			Duration:  s.now().Sub(now),
		})
	}
	return directive
}

func (s *Stop) run(ctx context.Context, payload *Payload, now time.Time) Directive {
	session := payload.SessionID
	if session == "" {
		session = fmt.Sprintf("pid-%d", os.Getpid())
	}

	if err := lock.Acquire(s.LeasePath, session, s.LeaseTTL, now); err != nil {
		if errors.Is(err, lock.ErrHeld) {
			return Continue("another cadence hook is already running")
		}
		return Continue("could not take the cadence lease: " + err.Error())
	}
	defer func() { _ = lock.Release(s.LeasePath, session) }()

	st, err := s.Store.Load()
	if err != nil {
		if errors.Is(err, state.ErrNoState) {
			return Continue("no cadence state found; run 'cadence init' first")
		}
		return Continue("could not load cadence state: " + err.Error())
	}

	current := inProgressTask(st)
	if current != nil {
		st.BumpIteration(current.ID)
	}

	// A failed start of the test command is not the agent's problem.
	result, err := s.Runner.Run(ctx)
	if err != nil {
		result = nil
	}

	if result != nil && result.Outcome == runner.OutcomePass && current != nil {
		st.ResetIteration(current.ID)
		_, _ = st.AddEvidence(current.ID, state.EvidenceTestPass,
			fmt.Sprintf("tests passed in %s", result.Duration.Round(time.Millisecond)), now)
	}

	dec, err := s.Engine.Decide(ctx, decision.Input{State: st, Test: result})
	if err != nil {
		_ = s.Store.Save(st, now)
		return Continue("decision engine failed: " + err.Error())
	}

	directive := s.apply(st, dec, now)
	_ = s.Store.Save(st, now)
	return directive
}

// apply turns a decision into a directive, mutating state where the
// decision calls for it.
func (s *Stop) apply(st *state.SystemState, dec *decision.Decision, now time.Time) Directive {
	switch dec.Kind {
	case decision.KindEscalate:
		return Continue(dec.Reason)

	case decision.KindDiagnoseFailure:
		return Block(dec.Reason)

	case decision.KindDecomposeTask:
		if _, err := st.Decompose(dec.TaskID, dec.Subtasks, now); err != nil {
			return Block(dec.Reason)
		}
		return Block(fmt.Sprintf("%s (split into %d subtasks)", dec.Reason, len(dec.Subtasks)))

	case decision.KindNextTask:
		if dec.TaskID != "" {
			if task := st.FindTask(dec.TaskID); task != nil && task.Status == state.StatusReady {
				_ = st.StartTask(dec.TaskID)
			}
			return Block(dec.Reason)
		}
		if openTasks(st) == 0 {
			return Continue(dec.Reason)
		}
		return Block(dec.Reason)

	default:
		return Continue("unrecognized decision: " + string(dec.Kind))
	}
}

func (s *Stop) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func inProgressTask(st *state.SystemState) *state.Task {
	for i := range st.Tasks {
		if st.Tasks[i].Status == state.StatusInProgress {
			return &st.Tasks[i]
		}
	}
	return nil
}

func openTasks(st *state.SystemState) int {
	counts := st.CountByStatus()
	return counts[state.StatusPending] + counts[state.StatusReady] +
		counts[state.StatusInProgress] + counts[state.StatusBlocked]
}
