// Package phase implements the fixed, ordered workflow phases of the cadence
// harness and the artifact gates that guard advancement between them.
//
// The sequence is hard-coded by design: overview, architecture, tests,
// implementation, review. There are no dynamic transitions; the only
// operation is advancing to the next phase once the current gate passes.
package phase

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/state"
)

// Phase labels in workflow order.
const (
	Overview       = "overview"
	Architecture   = "architecture"
	Tests          = "tests"
	Implementation = "implementation"
	Review         = "review"
)

// Gate is the artifact condition a phase must satisfy before the workflow
// may advance past it.
type Gate struct {
	// Artifact is the path of the required file, relative to the project root.
	// Empty means the phase has no artifact gate.
	Artifact string `yaml:"artifact"`
	// MinBytes is the minimum size of the artifact file.
	MinBytes int64 `yaml:"min_bytes"`
	// RequireTestPass additionally requires a recorded test_pass evidence.
	RequireTestPass bool `yaml:"require_test_pass"`
}

// Sequence is the ordered list of phases with their gates.
type Sequence struct {
	labels []string
	gates  map[string]Gate
}

// DefaultSequence returns the built-in phase order and gates.
func DefaultSequence() *Sequence {
	return &Sequence{
		labels: []string{Overview, Architecture, Tests, Implementation, Review},
		gates: map[string]Gate{
			Overview:       {Artifact: "docs/overview.md", MinBytes: 1000},
			Architecture:   {Artifact: "docs/architecture.md", MinBytes: 1000},
			Tests:          {Artifact: "", MinBytes: 0},
			Implementation: {Artifact: "", MinBytes: 0, RequireTestPass: true},
			Review:         {Artifact: "docs/review.md", MinBytes: 200, RequireTestPass: true},
		},
	}
}

// WithGates returns a copy of the sequence with per-phase gate overrides
// applied. Unknown labels are ignored; the phase order never changes.
func (seq *Sequence) WithGates(overrides map[string]Gate) *Sequence {
	merged := make(map[string]Gate, len(seq.gates))
	for label, gate := range seq.gates {
		merged[label] = gate
	}
	for label, gate := range overrides {
		if _, known := merged[label]; known {
			merged[label] = gate
		}
	}
	return &Sequence{labels: seq.labels, gates: merged}
}

// Labels returns the phase labels in workflow order.
func (seq *Sequence) Labels() []string {
	return append([]string(nil), seq.labels...)
}

// First returns the first phase label.
func (seq *Sequence) First() string {
	return seq.labels[0]
}

// Index returns the position of a label, or -1 if unknown.
func (seq *Sequence) Index(label string) int {
	for i, l := range seq.labels {
		if l == label {
			return i
		}
	}
	return -1
}

// Next returns the label after the given one. Returns empty when the label
// is the last phase or unknown.
func (seq *Sequence) Next(label string) string {
	i := seq.Index(label)
	if i < 0 || i+1 >= len(seq.labels) {
		return ""
	}
	return seq.labels[i+1]
}

// Gate returns the gate for a label. Unknown labels get a zero gate.
func (seq *Sequence) Gate(label string) Gate {
	return seq.gates[label]
}

// GateResult describes the outcome of checking one phase gate.
type GateResult struct {
	Phase   string `json:"phase"`
	Passed  bool   `json:"passed"`
	Reason  string `json:"reason,omitempty"`
	Missing string `json:"missing,omitempty"`
}

// Check evaluates the gate for the given phase against the project root and
// recorded state. It never errors; a gate that cannot be evaluated fails
// with the reason attached.
func (seq *Sequence) Check(label string, root string, s *state.SystemState) GateResult {
	gate, ok := seq.gates[label]
	if !ok {
		return GateResult{Phase: label, Passed: false, Reason: "unknown phase: " + label}
	}

	if gate.Artifact != "" {
		path := filepath.Join(root, gate.Artifact)
		info, err := os.Stat(path)
		switch {
		case err != nil:
			return GateResult{
				Phase:   label,
				Passed:  false,
				Reason:  "required artifact missing: " + gate.Artifact,
				Missing: gate.Artifact,
			}
		case info.Size() < gate.MinBytes:
			return GateResult{
				Phase:   label,
				Passed:  false,
				Reason:  fmt.Sprintf("artifact %s is %d bytes, needs at least %d", gate.Artifact, info.Size(), gate.MinBytes),
				Missing: gate.Artifact,
			}
		}
	}

	if gate.RequireTestPass && !s.HasEvidence(state.EvidenceTestPass) {
		return GateResult{
			Phase:  label,
			Passed: false,
			Reason: "no passing test run recorded yet",
		}
	}

	return GateResult{Phase: label, Passed: true}
}

// Advance moves the state to the next phase if the current gate passes.
// Returns the new phase label, or a conflict error carrying the gate reason.
func (seq *Sequence) Advance(s *state.SystemState, root string) (string, error) {
	current := s.Phase
	if seq.Index(current) < 0 {
		return "", output.NewUserError("state has unknown phase: " + current)
	}

	result := seq.Check(current, root, s)
	if !result.Passed {
		return "", output.NewConflictError("phase gate failed: " + result.Reason)
	}

	next := seq.Next(current)
	if next == "" {
		return "", output.NewConflictError("already at the final phase: " + current)
	}

	s.Phase = next
	return next, nil
}
