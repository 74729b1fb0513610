package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mirscan/mirscan/pkg/models"
)

// Config holds all mirscan configuration.
type Config struct {
	Cache       CacheConfig       `yaml:"cache"`
	Annotation  AnnotationConfig  `yaml:"annotation"`
	Precomputed PrecomputedConfig `yaml:"precomputed"`
	History     HistoryConfig     `yaml:"history"`
	Scan        ScanConfig        `yaml:"scan"`
	Collections []CollectionRef   `yaml:"collections"`
}

// CacheConfig controls the in-memory result cache.
type CacheConfig struct {
	BudgetBytes int64 `yaml:"budget_bytes"`
}

// AnnotationConfig selects the transcript annotation backend.
// DBPath takes precedence; TablePath points at a YAML transcript table.
type AnnotationConfig struct {
	DBPath    string `yaml:"db_path"`
	TablePath string `yaml:"table_path"`
}

// PrecomputedConfig points at the optional precomputed site index.
type PrecomputedConfig struct {
	DBPath string `yaml:"db_path"`
}

// HistoryConfig controls the scan history log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	DBPath  string `yaml:"db_path"`
}

// ScanConfig carries the default scan parameters and the score scale
// that converts raw engine scores to log-affinity units.
type ScanConfig struct {
	ScoreScale float64           `yaml:"score_scale"`
	Defaults   models.ScanParams `yaml:"defaults"`
}

// CollectionRef names a model collection and the YAML file defining it.
type CollectionRef struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			BudgetBytes: 64 << 20,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "mirscan-history.db",
		},
		Scan: ScanConfig{
			ScoreScale: 100,
			Defaults: models.ScanParams{
				MinDistance:    2,
				MaxLogAffinity: 0,
			},
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}

// Collection returns the referenced collection by name.
func (c *Config) Collection(name string) (CollectionRef, error) {
	for _, ref := range c.Collections {
		if ref.Name == name {
			return ref, nil
		}
	}
	return CollectionRef{}, fmt.Errorf("collection %q not configured", name)
}
