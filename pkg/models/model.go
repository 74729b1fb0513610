package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AffinityModel is one miRNA binding-affinity model. Identity for caching
// and precomputed-reuse purposes is the (Name, Seed) pair; Weights are
// opaque scoring data and never participate in identity.
type AffinityModel struct {
	Name    string    `yaml:"name"`
	Seed    string    `yaml:"seed"`
	Weights []float64 `yaml:"weights,omitempty"`
}

// ModelSet is an ordered collection of affinity models selected for one scan.
type ModelSet struct {
	Collection string          `yaml:"collection"`
	Models     []AffinityModel `yaml:"models"`
}

// Names returns the model names in collection order.
func (s ModelSet) Names() []string {
	names := make([]string, len(s.Models))
	for i, m := range s.Models {
		names[i] = m.Name
	}
	return names
}

// Seeds returns a name → seed descriptor map for identity comparisons.
func (s ModelSet) Seeds() map[string]string {
	seeds := make(map[string]string, len(s.Models))
	for _, m := range s.Models {
		seeds[m.Name] = m.Seed
	}
	return seeds
}

// LoadModelSet reads a model collection from a YAML file.
func LoadModelSet(path string) (ModelSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelSet{}, fmt.Errorf("read model collection: %w", err)
	}

	var set ModelSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return ModelSet{}, fmt.Errorf("parse model collection: %w", err)
	}
	return set, nil
}
