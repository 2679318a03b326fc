package hook

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorewood/cadence/internal/phase"
	"github.com/gorewood/cadence/internal/state"
)

func TestPreCommitWarnsOnInProgress(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	st := state.New("demo", phase.Implementation, now)
	id, err := st.AddTask("wire the parser", nil, 1, now)
	if err != nil {
		t.Fatal(err)
	}
	if err := st.StartTask(id); err != nil {
		t.Fatal(err)
	}

	store := state.NewStore(dir, 3)
	if err := store.Save(st, now); err != nil {
		t.Fatal(err)
	}

	pc := &PreCommit{
		Store:   store,
		History: NewHistory(filepath.Join(dir, HistoryFileName)),
		Now:     func() time.Time { return now },
	}

	var buf bytes.Buffer
	if err := pc.Run(&buf); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(buf.String(), "wire the parser") {
		t.Errorf("output = %q, want a warning naming the task", buf.String())
	}

	recs, err := pc.History.Tail(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Hook != "pre-commit" {
		t.Errorf("history = %+v, want one pre-commit record", recs)
	}
}

func TestPreCommitQuietWhenIdle(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

	st := state.New("demo", phase.Implementation, now)
	store := state.NewStore(dir, 3)
	if err := store.Save(st, now); err != nil {
		t.Fatal(err)
	}

	pc := &PreCommit{Store: store}

	var buf bytes.Buffer
	if err := pc.Run(&buf); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want silence", buf.String())
	}
}

func TestPreCommitNoState(t *testing.T) {
	pc := &PreCommit{Store: state.NewStore(t.TempDir(), 3)}

	var buf bytes.Buffer
	if err := pc.Run(&buf); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("output = %q, want silence without state", buf.String())
	}
}
