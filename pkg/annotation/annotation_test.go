package annotation

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mirscan/mirscan/pkg/models"
)

var testTranscripts = []models.Transcript{
	{ID: "ENST0001", Gene: "TP53", Sequence: "ACGUACGUACGU", CDSLength: 8},
	{ID: "ENST0002", Gene: "TP53", Sequence: "ACGUACGU", CDSLength: 4},
	{ID: "ENST0010", Gene: "BRCA1", Sequence: "UUUUACGU", CDSLength: 4},
}

// backends returns both implementations so every test runs against each.
func backends(t *testing.T) map[string]Source {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "annotation.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	for _, tr := range testTranscripts {
		if err := db.Add(context.Background(), tr); err != nil {
			t.Fatal(err)
		}
	}

	return map[string]Source{
		"sqlite": db,
		"table":  NewTable(testTranscripts),
	}
}

func TestTranscriptsForGene(t *testing.T) {
	for name, src := range backends(t) {
		t.Run(name, func(t *testing.T) {
			trs, err := src.TranscriptsForGene(context.Background(), "TP53")
			if err != nil {
				t.Fatal(err)
			}
			if len(trs) != 2 || trs[0].ID != "ENST0001" || trs[1].ID != "ENST0002" {
				t.Errorf("got %v", trs)
			}

			_, err = src.TranscriptsForGene(context.Background(), "NOPE")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestGeneForTranscript(t *testing.T) {
	for name, src := range backends(t) {
		t.Run(name, func(t *testing.T) {
			gene, err := src.GeneForTranscript(context.Background(), "ENST0010")
			if err != nil {
				t.Fatal(err)
			}
			if gene != "BRCA1" {
				t.Errorf("gene = %s, want BRCA1", gene)
			}

			_, err = src.GeneForTranscript(context.Background(), "ENST9999")
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestTranscript(t *testing.T) {
	for name, src := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tr, err := src.Transcript(context.Background(), "ENST0001")
			if err != nil {
				t.Fatal(err)
			}
			if tr.Sequence != "ACGUACGUACGU" || tr.CDSLength != 8 {
				t.Errorf("got %+v", tr)
			}
		})
	}
}

func TestLoadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "transcripts.yaml")
	data := `transcripts:
  - id: ENST0001
    gene: TP53
    sequence: ACGUACGU
    cds_length: 4
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadTable(path)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := table.Transcript(context.Background(), "ENST0001")
	if err != nil {
		t.Fatal(err)
	}
	if tr.Gene != "TP53" || tr.CDSLength != 4 {
		t.Errorf("got %+v", tr)
	}
}
