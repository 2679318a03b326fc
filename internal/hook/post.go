package hook

import (
	"time"

	"github.com/gorewood/cadence/internal/xref"
)

// Post is the post-tool-use hook: cheap bookkeeping after every tool call.
// It never blocks.
type Post struct {
	Index   *xref.Index // optional, set in serve mode
	History *History
	Now     func() time.Time
}

// Run records the tool call and invalidates the xref cache entry for any
// file the tool touched.
func (p *Post) Run(payload *Payload) Directive {
	now := p.now()

	reason := ""
	if file := payload.TouchedFile(); file != "" {
		if p.Index != nil {
			p.Index.Invalidate(file)
		}
		reason = "noted change to " + file
	}

	directive := Continue(reason)
	if p.History != nil {
		_ = p.History.Append(Record{
			Timestamp: now.UTC(),
			Hook:      "post-tool-use",
			Decision:  directive.Decision,
			Reason:    directive.Reason,
			Duration:  p.now().Sub(now),
		})
	}
	return directive
}

func (p *Post) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
