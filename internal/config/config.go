// Package config holds cadence configuration: the global config directory
// and the per-project config file inside the state directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gorewood/cadence/internal/output"
	"github.com/gorewood/cadence/internal/phase"
)

// FileName is the project config file inside the state directory.
const FileName = "config.yaml"

// Duration wraps time.Duration so YAML can carry values like "90s" or "5m".
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// TestConfig configures the test runner.
type TestConfig struct {
	Command []string `yaml:"command,omitempty"`
	Timeout Duration `yaml:"timeout,omitempty"`
}

// MarketConfig configures the flipscout arbitrage scanner.
type MarketConfig struct {
	Endpoint       string   `yaml:"endpoint,omitempty"`
	TokenURL       string   `yaml:"token_url,omitempty"`
	FeeRate        float64  `yaml:"fee_rate,omitempty"`
	ShippingCents  int64    `yaml:"shipping_cents,omitempty"`
	MinMargin      float64  `yaml:"min_margin,omitempty"`
	MinComparables int      `yaml:"min_comparables,omitempty"`
	Similarity     float64  `yaml:"similarity,omitempty"`
	RatePerSecond  float64  `yaml:"rate_per_second,omitempty"`
	SearchLimit    int      `yaml:"search_limit,omitempty"`
	Queries        []string `yaml:"queries,omitempty"`
}

// Config is the per-project configuration.
type Config struct {
	IterationBudget int                   `yaml:"iteration_budget,omitempty"`
	BackupKeep      int                   `yaml:"backup_keep,omitempty"`
	Model           string                `yaml:"model,omitempty"`
	Provider        string                `yaml:"provider,omitempty"`
	Offline         bool                  `yaml:"offline,omitempty"`
	LeaseTTL        Duration              `yaml:"lease_ttl,omitempty"`
	Test            TestConfig            `yaml:"test,omitempty"`
	Gates           map[string]phase.Gate `yaml:"gates,omitempty"`
	Market          MarketConfig          `yaml:"market,omitempty"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		IterationBudget: 5,
		BackupKeep:      5,
		Model:           "haiku",
		Test: TestConfig{
			Command: []string{"go", "test", "./..."},
			Timeout: Duration(10 * time.Minute),
		},
		Market: MarketConfig{
			FeeRate:        0.13,
			ShippingCents:  800,
			MinMargin:      0.20,
			MinComparables: 3,
			Similarity:     0.75,
			RatePerSecond:  2,
			SearchLimit:    50,
		},
	}
}

// Load reads the config file at path. A missing file yields defaults;
// present fields override defaults field by field.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, output.NewSystemErrorWithCause("reading config file", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, output.NewUserError("invalid config file " + path + ": " + err.Error())
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the config to path.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return output.NewSystemErrorWithCause("marshaling config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return output.NewSystemErrorWithCause("writing config file", err)
	}
	return nil
}

// normalize clamps nonsense values back to defaults.
func (c *Config) normalize() {
	def := Default()
	if c.IterationBudget <= 0 {
		c.IterationBudget = def.IterationBudget
	}
	if c.BackupKeep <= 0 {
		c.BackupKeep = def.BackupKeep
	}
	if len(c.Test.Command) == 0 {
		c.Test.Command = def.Test.Command
	}
	if c.Test.Timeout <= 0 {
		c.Test.Timeout = def.Test.Timeout
	}
	if c.Market.FeeRate < 0 || c.Market.FeeRate >= 1 {
		c.Market.FeeRate = def.Market.FeeRate
	}
	if c.Market.Similarity <= 0 || c.Market.Similarity > 1 {
		c.Market.Similarity = def.Market.Similarity
	}
	if c.Market.MinComparables <= 0 {
		c.Market.MinComparables = def.Market.MinComparables
	}
	if c.Market.RatePerSecond <= 0 {
		c.Market.RatePerSecond = def.Market.RatePerSecond
	}
	if c.Market.SearchLimit <= 0 {
		c.Market.SearchLimit = def.Market.SearchLimit
	}
}
