// Package precomputed adapts an externally built per-transcript site index
// so the orchestrator can satisfy region-restricted requests without a live
// scan. Reuse is gated on model identity: the index records the seed
// descriptors it was built from, and every lookup re-validates them against
// the currently selected models.
package precomputed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/mirscan/mirscan/pkg/models"
)

// ErrNotIndexed is returned when a transcript is absent from the index.
// Callers fall back to a live scan.
var ErrNotIndexed = errors.New("transcript not in precomputed index")

// ErrModelMismatch is returned when the index's originating models differ
// from the current selection. The index is stale for this request; callers
// must fall back to a live scan rather than reuse it.
var ErrModelMismatch = errors.New("precomputed index does not match selected models")

// Index is a read-mostly SQLite site index.
type Index struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS index_models (
	name TEXT PRIMARY KEY,
	seed TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	cds_length INTEGER NOT NULL,
	utr_length INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS sites (
	transcript_id TEXT NOT NULL,
	model         TEXT NOT NULL,
	start         INTEGER NOT NULL,
	end           INTEGER NOT NULL,
	site_type     TEXT NOT NULL,
	score         REAL NOT NULL,
	region        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sites_transcript ON sites(transcript_id);
`

// Open opens (or creates) the index database at the given path.
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open precomputed index: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate precomputed index: %w", err)
	}
	return &Index{db: db}, nil
}

// Lookup returns the precomputed hit set for a transcript, post-filtered
// exactly like a live scan so callers cannot distinguish the two sources.
// An empty (non-nil) hit set is a valid result. utrOnly restricts to the
// 3' UTR and re-anchors coordinates relative to the UTR start.
func (x *Index) Lookup(ctx context.Context, transcriptID string, set models.ModelSet, utrOnly bool, p models.ScanParams) ([]models.Hit, error) {
	if len(set.Models) == 0 {
		return nil, fmt.Errorf("%w: empty model selection", ErrModelMismatch)
	}
	if err := x.validateModels(ctx, set); err != nil {
		return nil, err
	}

	var cdsLength int
	err := x.db.QueryRowContext(ctx,
		`SELECT cds_length FROM transcripts WHERE id = ?`, transcriptID,
	).Scan(&cdsLength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotIndexed
	}
	if err != nil {
		return nil, fmt.Errorf("lookup transcript: %w", err)
	}

	names := set.Names()
	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(names)+1)
	args = append(args, transcriptID)
	for _, n := range names {
		args = append(args, n)
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT model, start, end, site_type, score, region FROM sites
		 WHERE transcript_id = ? AND model IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()

	hits := []models.Hit{}
	for rows.Next() {
		var h models.Hit
		if err := rows.Scan(&h.Mir, &h.Start, &h.End, &h.SiteType, &h.LogAffinity, &h.Region); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}

		if utrOnly {
			if h.Region == models.RegionORF {
				continue
			}
			// Whole-transcript coordinates → UTR-anchored coordinates.
			h.Start -= cdsLength
			h.End -= cdsLength
		}
		if p.OnlyCanonical && !models.CanonicalSite(h.SiteType) {
			continue
		}
		if h.LogAffinity >= p.MaxLogAffinity {
			continue
		}
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].LogAffinity < hits[j].LogAffinity })
	return hits, nil
}

// validateModels checks that every selected model is present in the index
// with an identical seed descriptor. This runs on every lookup; a stale
// index must never be silently reused.
func (x *Index) validateModels(ctx context.Context, set models.ModelSet) error {
	for _, m := range set.Models {
		var seed string
		err := x.db.QueryRowContext(ctx,
			`SELECT seed FROM index_models WHERE name = ?`, m.Name,
		).Scan(&seed)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: model %s not indexed", ErrModelMismatch, m.Name)
		}
		if err != nil {
			return fmt.Errorf("validate model %s: %w", m.Name, err)
		}
		if seed != m.Seed {
			return fmt.Errorf("%w: model %s seed %s != %s", ErrModelMismatch, m.Name, seed, m.Seed)
		}
	}
	return nil
}

// SetModels records the model set the index was built from, replacing any
// previous identity rows.
func (x *Index) SetModels(ctx context.Context, set models.ModelSet) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("set index models: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_models`); err != nil {
		return fmt.Errorf("clear index models: %w", err)
	}
	for _, m := range set.Models {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO index_models (name, seed) VALUES (?, ?)`, m.Name, m.Seed); err != nil {
			return fmt.Errorf("insert index model: %w", err)
		}
	}
	return tx.Commit()
}

// AddTranscript registers a transcript's region lengths and its sites.
func (x *Index) AddTranscript(ctx context.Context, t models.Transcript, hits []models.Hit) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("add transcript: %w", err)
	}
	defer tx.Rollback()

	utrLength := len(t.Sequence) - t.CDSLength
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (id, cds_length, utr_length) VALUES (?, ?, ?)`,
		t.ID, t.CDSLength, utrLength); err != nil {
		return fmt.Errorf("insert transcript: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sites WHERE transcript_id = ?`, t.ID); err != nil {
		return fmt.Errorf("clear transcript sites: %w", err)
	}
	for _, h := range hits {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sites (transcript_id, model, start, end, site_type, score, region)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ID, h.Mir, h.Start, h.End, h.SiteType, h.LogAffinity, h.Region); err != nil {
			return fmt.Errorf("insert site: %w", err)
		}
	}
	return tx.Commit()
}

// Stats reports index contents for the inspection CLI.
func (x *Index) Stats(ctx context.Context) (transcripts, sites int64, modelNames []string, err error) {
	if err = x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts`).Scan(&transcripts); err != nil {
		return 0, 0, nil, fmt.Errorf("index stats: %w", err)
	}
	if err = x.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sites`).Scan(&sites); err != nil {
		return 0, 0, nil, fmt.Errorf("index stats: %w", err)
	}

	rows, err := x.db.QueryContext(ctx, `SELECT name FROM index_models ORDER BY name`)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("index stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return 0, 0, nil, fmt.Errorf("scan index model: %w", err)
		}
		modelNames = append(modelNames, name)
	}
	return transcripts, sites, modelNames, rows.Err()
}

// Close releases the database connection.
func (x *Index) Close() error { return x.db.Close() }
