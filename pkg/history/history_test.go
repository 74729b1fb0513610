package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAndRecent(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, source := range []string{SourceScan, SourceCache, SourcePrecomputed} {
		err := l.Record(ctx, Record{
			Target:     "TP53",
			Collection: "test",
			Models:     2,
			Hits:       i,
			Source:     source,
			Duration:   time.Duration(i) * time.Second,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recent, err := l.Recent(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	if recent[0].Source != SourcePrecomputed || recent[1].Source != SourceCache {
		t.Errorf("order = %s, %s; want newest first", recent[0].Source, recent[1].Source)
	}
	if recent[1].Duration != time.Second {
		t.Errorf("duration = %v, want 1s", recent[1].Duration)
	}
}

func TestPurge(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_ = l.Record(ctx, Record{Target: "old", Source: SourceScan, CreatedAt: now.Add(-48 * time.Hour)})
	_ = l.Record(ctx, Record{Target: "new", Source: SourceScan, CreatedAt: now})

	n, err := l.Purge(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}

	recent, _ := l.Recent(ctx, 10)
	if len(recent) != 1 || recent[0].Target != "new" {
		t.Errorf("got %v", recent)
	}
}
