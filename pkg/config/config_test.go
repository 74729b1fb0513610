package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirscan.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Cache.BudgetBytes != 64<<20 {
		t.Errorf("budget = %d, want %d", cfg.Cache.BudgetBytes, 64<<20)
	}
	if cfg.Scan.ScoreScale != 100 {
		t.Errorf("score scale = %v, want 100", cfg.Scan.ScoreScale)
	}
	if cfg.Scan.Defaults.MinDistance != 2 {
		t.Errorf("min distance = %d, want 2", cfg.Scan.Defaults.MinDistance)
	}
	if !cfg.History.Enabled {
		t.Error("history disabled by default")
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
cache:
  budget_bytes: 1024
precomputed:
  db_path: sites.db
annotation:
  table_path: transcripts.yaml
scan:
  defaults:
    min_distance: 4
    only_canonical: true
collections:
  - name: mirbase
    path: mirbase.yaml
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.BudgetBytes != 1024 {
		t.Errorf("budget = %d, want 1024", cfg.Cache.BudgetBytes)
	}
	if cfg.Precomputed.DBPath != "sites.db" {
		t.Errorf("precomputed path = %q", cfg.Precomputed.DBPath)
	}
	if cfg.Annotation.TablePath != "transcripts.yaml" {
		t.Errorf("table path = %q", cfg.Annotation.TablePath)
	}
	if cfg.Scan.Defaults.MinDistance != 4 || !cfg.Scan.Defaults.OnlyCanonical {
		t.Errorf("scan defaults = %+v", cfg.Scan.Defaults)
	}
	// Unset fields keep their defaults.
	if cfg.Scan.ScoreScale != 100 {
		t.Errorf("score scale = %v, want default 100", cfg.Scan.ScoreScale)
	}

	ref, err := cfg.Collection("mirbase")
	if err != nil {
		t.Fatal(err)
	}
	if ref.Path != "mirbase.yaml" {
		t.Errorf("collection path = %q", ref.Path)
	}
	if _, err := cfg.Collection("nope"); err == nil {
		t.Error("expected error for unknown collection")
	}
}

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("MIRSCAN_DATA", "/data/mirscan")
	path := writeConfig(t, `
precomputed:
  db_path: ${MIRSCAN_DATA}/sites.db
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Precomputed.DBPath != "/data/mirscan/sites.db" {
		t.Errorf("db path = %q", cfg.Precomputed.DBPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
