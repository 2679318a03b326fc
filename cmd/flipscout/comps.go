// Package main provides the entry point for the flipscout CLI.
package main

import (
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/market"
	"github.com/gorewood/cadence/internal/output"
)

// newCompsCmd creates the comps command.
func newCompsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "comps <title>",
		Short: "Show sold comparables for a listing title",
		Long: `Show sold comparables for a listing title.

Searches sold listings for the title, filters them by fuzzy title
similarity, and reports the comparable pool with its median price.
Useful for sanity-checking a single listing before buying.

Examples:
  flipscout comps "mechanical keyboard 87 key"
  flipscout comps "vintage lens" --json`,
		Args: cobra.ExactArgs(1),
		RunE: runComps,
	}
}

// runComps executes the comps command.
func runComps(cmd *cobra.Command, args []string) error {
	printer := output.NewPrinter(cmd.OutOrStdout(), isJSONMode(cmd), output.IsTTY(cmd.OutOrStdout()))
	title := args[0]

	mc, err := loadMarketConfig()
	if err != nil {
		printer.Error(err)
		return err
	}

	source, err := newSource(mc)
	if err != nil {
		printer.Error(err)
		return err
	}

	sold, err := source.SearchSold(cmd.Context(), title, mc.SearchLimit)
	if err != nil {
		printer.Error(err)
		return err
	}

	evaluator := newEvaluator(mc)
	comparables := evaluator.Comparables(title, sold)
	median := medianTotal(comparables)

	if printer.IsJSON() {
		return printer.Success(map[string]any{
			"title":        title,
			"sold":         len(sold),
			"comparables":  comparables,
			"median_cents": median,
		})
	}

	printHumanComps(printer, title, len(sold), comparables, median)
	return nil
}

// medianTotal returns the median total price of listings, zero when empty.
func medianTotal(listings []market.Listing) int64 {
	if len(listings) == 0 {
		return 0
	}
	totals := make([]int64, len(listings))
	for i := range listings {
		totals[i] = listings[i].TotalCents()
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i] < totals[j] })
	mid := len(totals) / 2
	if len(totals)%2 == 0 {
		return (totals[mid-1] + totals[mid]) / 2
	}
	return totals[mid]
}

// printHumanComps outputs the comparable pool in human-readable format.
func printHumanComps(printer *output.Printer, title string, soldCount int, comparables []market.Listing, median int64) {
	printer.Section("Comparables")
	printer.KeyValue("Query", title)
	printer.KeyValue("Sold results", strconv.Itoa(soldCount))
	printer.KeyValue("Comparables", strconv.Itoa(len(comparables)))
	if len(comparables) > 0 {
		printer.KeyValue("Median", formatCents(median))
	}

	if len(comparables) == 0 {
		return
	}

	rows := make([][]string, 0, len(comparables))
	for i := range comparables {
		rows = append(rows, []string{
			comparables[i].Title,
			formatCents(comparables[i].TotalCents()),
			comparables[i].Condition,
		})
	}
	printer.Table([]string{"Title", "Total", "Condition"}, rows)
}
