package annotation

import (
	"context"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mirscan/mirscan/pkg/models"
)

// Table is the simple lookup-table backend, loaded once from a YAML file.
type Table struct {
	byID   map[string]models.Transcript
	byGene map[string][]models.Transcript
}

// LoadTable reads a transcript table from YAML.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transcript table: %w", err)
	}

	var file struct {
		Transcripts []models.Transcript `yaml:"transcripts"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse transcript table: %w", err)
	}
	return NewTable(file.Transcripts), nil
}

// NewTable builds a Table from transcripts already in memory.
func NewTable(transcripts []models.Transcript) *Table {
	t := &Table{
		byID:   make(map[string]models.Transcript, len(transcripts)),
		byGene: make(map[string][]models.Transcript),
	}
	for _, tr := range transcripts {
		t.byID[tr.ID] = tr
		t.byGene[tr.Gene] = append(t.byGene[tr.Gene], tr)
	}
	for _, trs := range t.byGene {
		sort.Slice(trs, func(i, j int) bool { return trs[i].ID < trs[j].ID })
	}
	return t
}

// TranscriptsForGene returns all transcripts of a gene symbol.
func (t *Table) TranscriptsForGene(_ context.Context, gene string) ([]models.Transcript, error) {
	trs, ok := t.byGene[gene]
	if !ok {
		return nil, fmt.Errorf("gene %s: %w", gene, ErrNotFound)
	}
	return trs, nil
}

// GeneForTranscript returns the gene symbol owning a transcript.
func (t *Table) GeneForTranscript(_ context.Context, transcriptID string) (string, error) {
	tr, ok := t.byID[transcriptID]
	if !ok {
		return "", fmt.Errorf("transcript %s: %w", transcriptID, ErrNotFound)
	}
	return tr.Gene, nil
}

// Transcript returns one transcript by id.
func (t *Table) Transcript(_ context.Context, transcriptID string) (models.Transcript, error) {
	tr, ok := t.byID[transcriptID]
	if !ok {
		return models.Transcript{}, fmt.Errorf("transcript %s: %w", transcriptID, ErrNotFound)
	}
	return tr, nil
}

// Close is a no-op for the in-memory table.
func (t *Table) Close() error { return nil }
