package hook

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorewood/cadence/internal/decision"
	"github.com/gorewood/cadence/internal/lock"
	"github.com/gorewood/cadence/internal/runner"
	"github.com/gorewood/cadence/internal/state"
)

// fakeRunner returns a canned test result.
type fakeRunner struct {
	result *runner.Result
}

func (f *fakeRunner) Run(_ context.Context) (*runner.Result, error) {
	return f.result, nil
}

// stopFixture wires a Stop hook against a temp state directory.
type stopFixture struct {
	stop  *Stop
	store *state.Store
	dir   string
}

func newStopFixture(t *testing.T, result *runner.Result) *stopFixture {
	t.Helper()
	dir := t.TempDir()
	store := state.NewStore(dir, 3)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	st := state.New("demo", "implementation", now)
	if _, err := st.AddTask("build the parser", nil, 1, now); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := store.Save(st, now); err != nil {
		t.Fatalf("Save: %v", err)
	}

	return &stopFixture{
		stop: &Stop{
			Store:     store,
			Engine:    decision.NewEngine(nil, 3, nil),
			Runner:    &fakeRunner{result: result},
			LeasePath: filepath.Join(dir, "cadence.lock"),
			LeaseTTL:  time.Minute,
			History:   NewHistory(filepath.Join(dir, HistoryFileName)),
		},
		store: store,
		dir:   dir,
	}
}

func TestStop_BlocksWithNextTask(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomePass})

	d := fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionBlock {
		t.Fatalf("decision = %s, want block while tasks remain", d.Decision)
	}
	if !strings.Contains(d.Reason, "build the parser") {
		t.Errorf("reason = %q, want the picked task named", d.Reason)
	}

	// The picked task was started and the lease released.
	st, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := st.CountByStatus()[state.StatusInProgress]; got != 1 {
		t.Errorf("in_progress count = %d, want 1", got)
	}
	if status := lock.Inspect(fx.stop.LeasePath, time.Now()); status.Present {
		t.Error("lease should be released after the hook")
	}
}

func TestStop_BlocksWithDiagnosisOnFailure(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomeTestFailure, FailedTest: "TestParse"})

	d := fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionBlock || !strings.Contains(d.Reason, "TestParse") {
		t.Errorf("directive = %+v, want block naming the failing test", d)
	}
}

func TestStop_ContinuesWhenAllDone(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomePass})

	st, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := range st.Tasks {
		st.Tasks[i].Status = state.StatusDone
	}
	if err := fx.store.Save(st, time.Now()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionContinue {
		t.Errorf("decision = %s, want continue when everything is done", d.Decision)
	}
}

func TestStop_EscalatesOverBudget(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomeTestFailure})

	st, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	taskID := st.Tasks[0].ID
	if err := st.StartTask(taskID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	// One below budget: the next hook run bumps it over.
	st.Iterations = map[string]int{taskID: 2}
	if err := fx.store.Save(st, time.Now()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	d := fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionContinue {
		t.Fatalf("decision = %s, want continue on escalation", d.Decision)
	}
	if !strings.Contains(d.Reason, "human") {
		t.Errorf("reason = %q, want a hand-back to the human", d.Reason)
	}
}

func TestStop_ContinuesWithoutState(t *testing.T) {
	dir := t.TempDir()
	stop := &Stop{
		Store:     state.NewStore(dir, 3),
		Engine:    decision.NewEngine(nil, 3, nil),
		Runner:    &fakeRunner{result: &runner.Result{Outcome: runner.OutcomePass}},
		LeasePath: filepath.Join(dir, "cadence.lock"),
	}

	d := stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionContinue || !strings.Contains(d.Reason, "cadence init") {
		t.Errorf("directive = %+v, want continue pointing at init", d)
	}
}

func TestStop_ContinuesWhenLeaseHeld(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomePass})

	// A live lease from another session wins.
	if err := lock.Acquire(fx.stop.LeasePath, "other", time.Hour, time.Now()); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	d := fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})
	if d.Decision != DecisionContinue {
		t.Errorf("decision = %s, want continue when the lease is held", d.Decision)
	}
}

func TestStop_RecordsEvidenceOnPass(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomePass, Duration: 2 * time.Second})

	st, err := fx.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := st.StartTask(st.Tasks[0].ID); err != nil {
		t.Fatalf("StartTask: %v", err)
	}
	if err := fx.store.Save(st, time.Now()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})

	st, err = fx.store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !st.HasEvidence(state.EvidenceTestPass) {
		t.Error("passing run should record test_pass evidence")
	}
}

func TestStop_WritesHistory(t *testing.T) {
	fx := newStopFixture(t, &runner.Result{Outcome: runner.OutcomePass})

	fx.stop.Run(context.Background(), &Payload{SessionID: "s1"})

	records, err := fx.stop.History.Tail(0)
	if err != nil {
		t.Fatalf("Tail: %v", err)
	}
	if len(records) != 1 || records[0].Hook != "stop" {
		t.Errorf("history = %+v, want one stop record", records)
	}
}
