package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.IterationBudget != def.IterationBudget {
		t.Errorf("IterationBudget = %d, want default %d", cfg.IterationBudget, def.IterationBudget)
	}
	if time.Duration(cfg.Test.Timeout) != 10*time.Minute {
		t.Errorf("Test.Timeout = %v, want 10m", time.Duration(cfg.Test.Timeout))
	}
	if cfg.Market.Similarity != 0.75 {
		t.Errorf("Market.Similarity = %v, want 0.75", cfg.Market.Similarity)
	}
}

func TestLoad_OverridesMergeWithDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `iteration_budget: 8
model: gemini-flash
test:
  command: ["make", "test"]
  timeout: 90s
gates:
  review:
    artifact: docs/review.md
    min_bytes: 500
market:
  fee_rate: 0.1
  queries: ["vintage lens"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.IterationBudget != 8 {
		t.Errorf("IterationBudget = %d, want 8", cfg.IterationBudget)
	}
	if cfg.Model != "gemini-flash" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if time.Duration(cfg.Test.Timeout) != 90*time.Second {
		t.Errorf("Test.Timeout = %v, want 90s", time.Duration(cfg.Test.Timeout))
	}
	if gate, ok := cfg.Gates["review"]; !ok || gate.MinBytes != 500 {
		t.Errorf("Gates[review] = %+v, want min_bytes 500", gate)
	}
	if cfg.Market.FeeRate != 0.1 || len(cfg.Market.Queries) != 1 {
		t.Errorf("Market = %+v", cfg.Market)
	}
	// Untouched fields keep their defaults.
	if cfg.BackupKeep != Default().BackupKeep {
		t.Errorf("BackupKeep = %d, want default", cfg.BackupKeep)
	}
}

func TestLoad_RejectsInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("test:\n  timeout: [nope"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid YAML")
	}
}

func TestLoad_NormalizesNonsenseValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	content := `iteration_budget: -3
market:
  fee_rate: 2.5
  similarity: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	def := Default()
	if cfg.IterationBudget != def.IterationBudget {
		t.Errorf("IterationBudget = %d, want clamped to default", cfg.IterationBudget)
	}
	if cfg.Market.FeeRate != def.Market.FeeRate || cfg.Market.Similarity != def.Market.Similarity {
		t.Errorf("Market = %+v, want clamped to defaults", cfg.Market)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)

	cfg := Default()
	cfg.Model = "sonnet"
	cfg.LeaseTTL = Duration(3 * time.Minute)
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Model != "sonnet" {
		t.Errorf("Model = %q, want sonnet", loaded.Model)
	}
	if time.Duration(loaded.LeaseTTL) != 3*time.Minute {
		t.Errorf("LeaseTTL = %v, want 3m", time.Duration(loaded.LeaseTTL))
	}
}
