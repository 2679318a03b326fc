// Package main provides the entry point for the cadence CLI.
package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/xref"
)

// newXrefCmd creates the xref parent command with subcommands.
func newXrefCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xref",
		Short: "Cross-reference files by imports and markers",
		Long: `Cross-reference files by Go imports and RELATES_TO: markers.

The index links a file to the files it references; 'related' follows
those links in both directions up to a bounded depth, so an agent can
see what else a change is likely to touch.

Examples:
  cadence xref scan                        # Build the index, print stats
  cadence xref related internal/foo.go     # Files related at default depth
  cadence xref related foo.go --depth 5    # Deeper traversal`,
	}

	cmd.AddCommand(newXrefScanCmd())
	cmd.AddCommand(newXrefRelatedCmd())
	return cmd
}

// newXrefScanCmd creates the xref scan subcommand.
func newXrefScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Build the cross-reference index",
		RunE:  runXrefScan,
	}
}

// runXrefScan executes the xref scan command.
func runXrefScan(cmd *cobra.Command, _ []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	root, err := projectRoot()
	if err != nil {
		printer.Error(err)
		return err
	}

	index := xref.New(root)
	stats, err := index.Scan(cmd.Context())
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"files":       stats.Files,
			"scanned":     stats.Scanned,
			"cached":      stats.Cached,
			"refs":        stats.Refs,
			"duration_ms": stats.Duration.Milliseconds(),
		})
	}

	printer.Section("Cross-reference Index")
	printer.KeyValue("Files", strconv.Itoa(stats.Files))
	printer.KeyValue("Scanned", strconv.Itoa(stats.Scanned))
	printer.KeyValue("Cached", strconv.Itoa(stats.Cached))
	printer.KeyValue("References", strconv.Itoa(stats.Refs))
	printer.KeyValue("Duration", stats.Duration.String())
	return nil
}

// newXrefRelatedCmd creates the xref related subcommand.
func newXrefRelatedCmd() *cobra.Command {
	var depth int

	cmd := &cobra.Command{
		Use:   "related <path>",
		Short: "List files related to a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runXrefRelated(cmd, args[0], depth)
		},
	}
	cmd.Flags().IntVar(&depth, "depth", xref.DefaultDepth, "Traversal depth (max 5)")
	return cmd
}

// runXrefRelated executes the xref related command.
func runXrefRelated(cmd *cobra.Command, path string, depth int) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), useColor(cmd))

	root, err := projectRoot()
	if err != nil {
		printer.Error(err)
		return err
	}

	index := xref.New(root)
	if _, err := index.Scan(cmd.Context()); err != nil {
		printer.Error(err)
		return err
	}

	files := index.Related(path, depth)

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"path":  path,
			"depth": depth,
			"files": files,
		})
	}

	if len(files) == 0 {
		printer.Print("No related files found for %s\n", path)
		return nil
	}
	for _, f := range files {
		printer.Print("%s\n", f)
	}
	return nil
}
