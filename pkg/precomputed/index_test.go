package precomputed

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mirscan/mirscan/pkg/models"
)

var indexedSet = models.ModelSet{
	Collection: "test",
	Models: []models.AffinityModel{
		{Name: "miR-21-5p", Seed: "AGCUUAU"},
		{Name: "miR-155-5p", Seed: "UAAUGCU"},
	},
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	x, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = x.Close() })

	ctx := context.Background()
	if err := x.SetModels(ctx, indexedSet); err != nil {
		t.Fatal(err)
	}

	// 200 nt transcript: 120 nt CDS, 80 nt UTR.
	tr := models.Transcript{ID: "ENST0001", Gene: "TP53", Sequence: strings.Repeat("ACGU", 50), CDSLength: 120}
	hits := []models.Hit{
		{Start: 40, End: 47, SiteType: models.Site7merM8, LogAffinity: -3.5, Mir: "miR-21-5p", Region: models.RegionORF},
		{Start: 130, End: 138, SiteType: models.Site8mer, LogAffinity: -5.3, Mir: "miR-21-5p", Region: models.RegionUTR},
		{Start: 160, End: 166, SiteType: models.Site6mer, LogAffinity: -1.2, Mir: "miR-155-5p", Region: models.RegionUTR},
	}
	if err := x.AddTranscript(ctx, tr, hits); err != nil {
		t.Fatal(err)
	}
	return x
}

func params() models.ScanParams {
	return models.ScanParams{MaxLogAffinity: 0}
}

func TestLookupWholeTranscript(t *testing.T) {
	x := newTestIndex(t)
	hits, err := x.Lookup(context.Background(), "ENST0001", indexedSet, false, params())
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits, want 3", len(hits))
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].LogAffinity < hits[i-1].LogAffinity {
			t.Error("hits should be sorted ascending by score")
		}
	}
}

func TestLookupReanchorsUTRCoordinates(t *testing.T) {
	x := newTestIndex(t)
	whole, err := x.Lookup(context.Background(), "ENST0001", indexedSet, false, params())
	if err != nil {
		t.Fatal(err)
	}
	utr, err := x.Lookup(context.Background(), "ENST0001", indexedSet, true, params())
	if err != nil {
		t.Fatal(err)
	}

	if len(utr) != 2 {
		t.Fatalf("got %d UTR hits, want 2 (ORF site excluded)", len(utr))
	}
	// Every UTR hit is the whole-transcript hit shifted by exactly -CDS length.
	for _, u := range utr {
		found := false
		for _, w := range whole {
			if w.Mir == u.Mir && w.SiteType == u.SiteType && w.Start-120 == u.Start && w.End-120 == u.End {
				found = true
			}
		}
		if !found {
			t.Errorf("UTR hit [%d,%d) is not a -120 shift of a whole-transcript hit", u.Start, u.End)
		}
	}
}

func TestLookupRejectsMismatchedSeed(t *testing.T) {
	x := newTestIndex(t)
	changed := indexedSet
	changed.Models = append([]models.AffinityModel(nil), indexedSet.Models...)
	changed.Models[1].Seed = "UAAUGCA"

	_, err := x.Lookup(context.Background(), "ENST0001", changed, false, params())
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("err = %v, want ErrModelMismatch even though the transcript is indexed", err)
	}
}

func TestLookupRejectsUnindexedModel(t *testing.T) {
	x := newTestIndex(t)
	extra := indexedSet
	extra.Models = append(append([]models.AffinityModel(nil), indexedSet.Models...),
		models.AffinityModel{Name: "miR-7-5p", Seed: "GGAAGAC"})

	_, err := x.Lookup(context.Background(), "ENST0001", extra, false, params())
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("err = %v, want ErrModelMismatch for a selection the index cannot cover", err)
	}
}

func TestLookupRejectsEmptySelection(t *testing.T) {
	x := newTestIndex(t)
	_, err := x.Lookup(context.Background(), "ENST0001", models.ModelSet{}, false, params())
	if !errors.Is(err, ErrModelMismatch) {
		t.Errorf("err = %v, want ErrModelMismatch for an empty selection", err)
	}
}

func TestLookupMissingTranscript(t *testing.T) {
	x := newTestIndex(t)
	_, err := x.Lookup(context.Background(), "ENST9999", indexedSet, false, params())
	if !errors.Is(err, ErrNotIndexed) {
		t.Errorf("err = %v, want ErrNotIndexed", err)
	}
}

func TestLookupAppliesPostFilters(t *testing.T) {
	x := newTestIndex(t)

	p := params()
	p.OnlyCanonical = true
	hits, err := x.Lookup(context.Background(), "ENST0001", indexedSet, false, p)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if !models.CanonicalSite(h.SiteType) {
			t.Errorf("non-canonical site %s survived only-canonical filter", h.SiteType)
		}
	}

	p = params()
	p.MaxLogAffinity = -3
	hits, err = x.Lookup(context.Background(), "ENST0001", indexedSet, false, p)
	if err != nil {
		t.Fatal(err)
	}
	for _, h := range hits {
		if h.LogAffinity >= -3 {
			t.Errorf("score %v at or above the threshold survived", h.LogAffinity)
		}
	}
}

func TestLookupEmptyHitSetIsValid(t *testing.T) {
	x := newTestIndex(t)
	if err := x.AddTranscript(context.Background(), models.Transcript{ID: "ENST0002", CDSLength: 0}, nil); err != nil {
		t.Fatal(err)
	}
	hits, err := x.Lookup(context.Background(), "ENST0002", indexedSet, false, params())
	if err != nil {
		t.Fatal(err)
	}
	if hits == nil || len(hits) != 0 {
		t.Errorf("got %v, want empty non-nil hit set", hits)
	}
}

func TestStats(t *testing.T) {
	x := newTestIndex(t)
	transcripts, sites, names, err := x.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if transcripts != 1 || sites != 3 || len(names) != 2 {
		t.Errorf("stats = (%d, %d, %v)", transcripts, sites, names)
	}
}
