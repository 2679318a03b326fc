// Package main provides the entry point for the cadence CLI.
package main

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	cadencemcp "github.com/gorewood/cadence/internal/mcp"
	"github.com/gorewood/cadence/internal/phase"
	"github.com/gorewood/cadence/internal/xref"
)

// newServeCmd creates the serve command for running as an MCP server.
func newServeCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run as MCP server (stdio transport)",
		Long: `Run cadence as a Model Context Protocol (MCP) server over stdio.

This exposes cadence operations as MCP tools that any MCP-capable agent
environment can use (Claude Code, Cursor, Windsurf, Gemini CLI, etc).

Configure in your agent's MCP settings:
  {
    "mcpServers": {
      "cadence": {
        "command": "cadence",
        "args": ["serve"]
      }
    }
  }

With --watch, the cross-reference index tracks file changes while the
server runs, so related_files answers stay fresh without rescans.

Available tools: status, next_task, record_evidence, complete_task,
related_files, phase_gate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep the xref index fresh via file watching")
	return cmd
}

// runServe executes the serve command.
func runServe(cmd *cobra.Command, watch bool) error {
	proj, err := openProject()
	if err != nil {
		return err
	}

	env := &cadencemcp.Env{
		Store: proj.Store,
		Seq:   phase.DefaultSequence().WithGates(proj.Config.Gates),
		Index: xref.New(proj.Root),
		Root:  proj.Root,
		Now:   time.Now,
	}

	server := cadencemcp.NewServer(buildVersion(), env)

	if !watch {
		return server.Run(cmd.Context(), &mcp.StdioTransport{})
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go func() { _ = env.Index.Watch(ctx, nil) }()
	return server.Run(ctx, &mcp.StdioTransport{})
}
