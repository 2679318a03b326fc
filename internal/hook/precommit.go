package hook

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gorewood/cadence/internal/state"
)

// PreCommit is the git pre-commit hook: it warns about tasks still in
// progress but never fails the commit.
type PreCommit struct {
	Store   *state.Store
	History *History
	Now     func() time.Time
}

// Run prints warnings to w and always returns nil so the commit proceeds.
func (p *PreCommit) Run(w io.Writer) error {
	now := time.Now()
	if p.Now != nil {
		now = p.Now()
	}

	warning := p.check()
	if warning != "" {
		fmt.Fprintf(w, "cadence: %s\n", warning)
	}

	if p.History != nil {
		_ = p.History.Append(Record{
			Timestamp: now.UTC(),
			Hook:      "pre-commit",
			Decision:  DecisionContinue,
			Reason:    warning,
		})
	}
	return nil
}

func (p *PreCommit) check() string {
	st, err := p.Store.Load()
	if err != nil {
		if errors.Is(err, state.ErrNoState) {
			return ""
		}
		return "could not read state: " + err.Error()
	}

	counts := st.CountByStatus()
	if n := counts[state.StatusInProgress]; n > 0 {
		current := inProgressTask(st)
		if current != nil {
			return fmt.Sprintf("task %q is still in progress; consider finishing it before committing", current.Title)
		}
		return fmt.Sprintf("%d tasks are still in progress", n)
	}
	return ""
}
