package decision

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"time"
)

// HistoryFileName is the decision history file inside the state directory.
const HistoryFileName = "decisions.jsonl"

// Record is one line of decision history.
type Record struct {
	Timestamp   time.Time `json:"ts"`
	Kind        Kind      `json:"kind"`
	TaskID      string    `json:"task_id,omitempty"`
	Reason      string    `json:"reason"`
	Source      string    `json:"source"`
	InputDigest string    `json:"input_digest"`
}

// History appends decision records to a JSON-lines file.
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

// Tail returns up to n most recent records, oldest first. A missing file
// yields an empty slice. Unparseable lines are skipped.
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
