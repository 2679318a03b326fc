// Package hook implements the agent hook protocol: a JSON payload arrives
// on stdin, a directive leaves on stdout. Directives either block the agent
// from stopping (with a reason telling it what to do next) or let it
// continue. Hook failures always degrade to continue; a broken harness must
// never wedge the agent.
package hook

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"
)

// Directive decisions.
const (
	DecisionBlock    = "block"
	DecisionContinue = "continue"
)

// HistoryFileName is the hook run history file inside the state directory.
const HistoryFileName = "hooks.jsonl"

// Payload is the JSON the agent sends a hook. Unknown fields are ignored so
// newer agent versions keep working.
type Payload struct {
	SessionID      string         `json:"session_id"`
	ToolName       string         `json:"tool_name,omitempty"`
	TranscriptPath string         `json:"transcript_path,omitempty"`
	ToolInput      map[string]any `json:"tool_input,omitempty"`
}

// Directive is the hook's reply.
type Directive struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason,omitempty"`
}

// Continue builds a continue directive.
func Continue(reason string) Directive {
	return Directive{Decision: DecisionContinue, Reason: reason}
}

// Block builds a block directive.
func Block(reason string) Directive {
	return Directive{Decision: DecisionBlock, Reason: reason}
}

// ParsePayload reads a payload from r. Empty input yields an empty payload;
// malformed JSON is an error the caller should swallow into a continue.
func ParsePayload(r io.Reader) (*Payload, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	payload := &Payload{}
	if len(data) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteDirective writes the directive as JSON to w.
func WriteDirective(w io.Writer, d Directive) error {
	enc := json.NewEncoder(w)
	return enc.Encode(d)
}

// TouchedFile extracts a file path from the tool input, if the tool call
// carried one. Different tools name the field differently.
func (p *Payload) TouchedFile() string {
	for _, key := range []string{"file_path", "path", "notebook_path"} {
		if v, ok := p.ToolInput[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Record is one line of hook run history.
type Record struct {
	Timestamp time.Time     `json:"ts"`
	Hook      string        `json:"hook"`
	Decision  string        `json:"decision"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// History appends hook run records to a JSON-lines file.
type History struct {
	path string
}

// NewHistory creates a history writer for the given file path.
func NewHistory(path string) *History {
	return &History{path: path}
}

// Append writes one record as a single JSON line.
func (h *History) Append(rec Record) error {
	data, err := json.Marshal(&rec)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	_, err = f.Write(append(data, '\n'))
	return err
}

// Tail returns up to n most recent records, oldest first.
func (h *History) Tail(n int) ([]Record, error) {
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}
