// Package mcp provides a Model Context Protocol server for cadence.
// It exposes harness operations as MCP tools that any MCP-capable agent can
// use: state inspection, task flow, evidence, phase gates, and the
// cross-reference index.
package mcp

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/cadence/internal/phase"
	"github.com/gorewood/cadence/internal/state"
	"github.com/gorewood/cadence/internal/xref"
)

// Env is everything the tool handlers operate on.
type Env struct {
	Store *state.Store
	Seq   *phase.Sequence
	Index *xref.Index
	Root  string // project root, for gate checks
	Now   func() time.Time
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// NewServer creates an MCP server with all cadence tools registered.
func NewServer(version string, env *Env) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "cadence",
		Version: version,
	}, nil)
	registerTools(server, env)
	return server
}

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// readOnlyAnnotations returns annotations for read-only tools.
func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// writeAnnotations returns annotations for write tools (additive, not destructive).
func writeAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(false),
	}
}

// registerTools adds all cadence tools to the server.
func registerTools(server *mcp.Server, env *Env) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "status",
		Description: "Show harness state: project, current phase, task counts per status, and evidence count.",
		Annotations: readOnlyAnnotations(),
	}, handleStatus(env))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "next_task",
		Description: "Return the highest-priority ready task, and optionally mark it in progress.",
		Annotations: writeAnnotations(),
	}, handleNextTask(env))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "record_evidence",
		Description: "Record evidence that work was completed and verified (test_pass, artifact, or manual).",
		Annotations: writeAnnotations(),
	}, handleRecordEvidence(env))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "complete_task",
		Description: "Mark a task done. Dependent tasks whose dependencies are now all done become ready.",
		Annotations: writeAnnotations(),
	}, handleCompleteTask(env))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "related_files",
		Description: "List files related to a given file via imports and RELATES_TO annotations, within a bounded graph distance.",
		Annotations: readOnlyAnnotations(),
	}, handleRelatedFiles(env))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "phase_gate",
		Description: "Check whether the current phase's gate passes and name the next phase.",
		Annotations: readOnlyAnnotations(),
	}, handlePhaseGate(env))
}
