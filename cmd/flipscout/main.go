// Package main provides the entry point for the flipscout CLI, the
// marketplace arbitrage scanner that shares the cadence config stack.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/gorewood/cadence/internal/config"
	"github.com/gorewood/cadence/internal/envfile"
	"github.com/gorewood/cadence/internal/market"
	"github.com/gorewood/cadence/internal/output"
)

// Build info set via ldflags at build time by goreleaser.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// buildVersion returns the full version string including commit and date.
func buildVersion() string {
	if commit == "none" && date == "unknown" {
		return version
	}
	shortCommit := commit
	if len(commit) > 7 {
		shortCommit = commit[:7]
	}
	return fmt.Sprintf("%s (%s, %s)", version, shortCommit, date)
}

// isJSONMode reads the --json persistent flag from the command hierarchy.
func isJSONMode(cmd *cobra.Command) bool {
	flag := cmd.Flags().Lookup("json")
	if flag == nil {
		flag = cmd.Root().PersistentFlags().Lookup("json")
	}
	return flag != nil && flag.Value.String() == "true"
}

func main() {
	code := run()
	os.Exit(code)
}

func run() int {
	cmd := newRootCmd()
	err := fang.Execute(context.Background(), cmd, fang.WithVersion(buildVersion()))
	return output.GetExitCode(err)
}

// newRootCmd creates the root command for the flipscout CLI.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flipscout",
		Short: "Find marketplace arbitrage opportunities",
		Long: `Flipscout scans a marketplace for resale arbitrage.

For each query it fetches active listings and recently sold listings,
matches actives against sold comparables by fuzzy title similarity,
and flags listings whose total cost sits far enough under the median
sold price to clear fees, shipping, and a minimum margin.

Credentials come from MARKET_CLIENT_ID and MARKET_CLIENT_SECRET
(environment or .env file). Endpoint, fees, and thresholds live in
the market section of .cadence/config.yaml.

All commands support --json for structured output.`,
		Version:       buildVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		paths := []string{".env.local", ".env"}
		if dir := config.Dir(); dir != "" {
			paths = append(paths, filepath.Join(dir, "env"))
		}
		return envfile.LoadAll(paths...)
	}

	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")

	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newCompsCmd())
	return cmd
}

// loadMarketConfig reads the market section of the project config.
func loadMarketConfig() (*config.MarketConfig, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to get working directory", err)
	}
	cfg, err := config.Load(filepath.Join(cwd, ".cadence", config.FileName))
	if err != nil {
		return nil, err
	}
	return &cfg.Market, nil
}

// newSource builds the HTTP marketplace source from config and env.
func newSource(mc *config.MarketConfig) (market.Source, error) {
	if mc.Endpoint == "" {
		return nil, output.NewUserError("no marketplace endpoint configured; set market.endpoint in .cadence/config.yaml")
	}
	clientID := os.Getenv("MARKET_CLIENT_ID")
	clientSecret := os.Getenv("MARKET_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, output.NewUserError("MARKET_CLIENT_ID and MARKET_CLIENT_SECRET must be set")
	}
	return market.NewHTTPSource(mc.Endpoint, mc.TokenURL, clientID, clientSecret, mc.RatePerSecond), nil
}

// newEvaluator builds the opportunity evaluator from config.
func newEvaluator(mc *config.MarketConfig) *market.Evaluator {
	return market.NewEvaluator(mc.FeeRate, mc.ShippingCents, mc.MinMargin, mc.Similarity, mc.MinComparables)
}
