// Package main provides the entry point for the flipscout CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/market"
	"github.com/gorewood/cadence/internal/output"
)

// newScanCmd creates the scan command.
func newScanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scan [query]...",
		Short: "Scan queries for arbitrage opportunities",
		Long: `Scan queries for arbitrage opportunities.

Queries come from the arguments, or from market.queries in the config
when no arguments are given. Opportunities are sorted by margin.

Examples:
  flipscout scan "mechanical keyboard"
  flipscout scan                 # Use configured queries
  flipscout scan --json`,
		RunE: runScan,
	}
}

// runScan executes the scan command.
func runScan(cmd *cobra.Command, args []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), output.IsTTY(cmd.OutOrStdout()))

	mc, err := loadMarketConfig()
	if err != nil {
		printer.Error(err)
		return err
	}

	queries := args
	if len(queries) == 0 {
		queries = mc.Queries
	}
	if len(queries) == 0 {
		userErr := output.NewUserError("no queries given and none configured under market.queries")
		printer.Error(userErr)
		return userErr
	}

	source, err := newSource(mc)
	if err != nil {
		printer.Error(err)
		return err
	}

	scanner := &market.Scanner{
		Source:      source,
		Evaluator:   newEvaluator(mc),
		SearchLimit: mc.SearchLimit,
	}

	opportunities, err := scanner.Scan(cmd.Context(), queries)
	if err != nil {
		printer.Error(err)
		return err
	}

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"queries":       queries,
			"opportunities": opportunities,
		})
	}

	printHumanScan(printer, opportunities)
	return nil
}

// printHumanScan outputs opportunities in human-readable format.
func printHumanScan(printer *output.Printer, opportunities []market.Opportunity) {
	if len(opportunities) == 0 {
		printer.Print("No opportunities found.\n")
		return
	}

	rows := make([][]string, 0, len(opportunities))
	for i := range opportunities {
		op := &opportunities[i]
		rows = append(rows, []string{
			op.Listing.Title,
			formatCents(op.Listing.TotalCents()),
			formatCents(op.MedianCents),
			formatCents(op.ProfitCents),
			fmt.Sprintf("%.0f%%", op.Margin*100),
			fmt.Sprintf("%d", op.Comparables),
		})
	}
	printer.Table([]string{"Listing", "Cost", "Median Sold", "Profit", "Margin", "Comps"}, rows)
}

// formatCents renders an integer cent amount as dollars.
func formatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%d.%02d", sign, cents/100, cents%100)
}
