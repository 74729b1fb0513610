package annotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/mirscan/mirscan/pkg/models"
)

// DB is the SQLite annotation database backend.
type DB struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	gene       TEXT NOT NULL,
	sequence   TEXT NOT NULL,
	cds_length INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_gene ON transcripts(gene);
`

// OpenDB opens (or creates) the annotation database at the given path.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open annotation db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate annotation db: %w", err)
	}
	return &DB{db: db}, nil
}

// Add inserts or replaces a transcript row.
func (d *DB) Add(ctx context.Context, t models.Transcript) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts (id, gene, sequence, cds_length) VALUES (?, ?, ?, ?)`,
		t.ID, t.Gene, t.Sequence, t.CDSLength)
	if err != nil {
		return fmt.Errorf("add transcript: %w", err)
	}
	return nil
}

// TranscriptsForGene returns all transcripts of a gene symbol.
func (d *DB) TranscriptsForGene(ctx context.Context, gene string) ([]models.Transcript, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT id, gene, sequence, cds_length FROM transcripts WHERE gene = ? ORDER BY id`, gene)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var out []models.Transcript
	for rows.Next() {
		var t models.Transcript
		if err := rows.Scan(&t.ID, &t.Gene, &t.Sequence, &t.CDSLength); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("gene %s: %w", gene, ErrNotFound)
	}
	return out, nil
}

// GeneForTranscript returns the gene symbol owning a transcript.
func (d *DB) GeneForTranscript(ctx context.Context, transcriptID string) (string, error) {
	var gene string
	err := d.db.QueryRowContext(ctx,
		`SELECT gene FROM transcripts WHERE id = ?`, transcriptID).Scan(&gene)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("transcript %s: %w", transcriptID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("query gene: %w", err)
	}
	return gene, nil
}

// Transcript returns one transcript by id.
func (d *DB) Transcript(ctx context.Context, transcriptID string) (models.Transcript, error) {
	var t models.Transcript
	err := d.db.QueryRowContext(ctx,
		`SELECT id, gene, sequence, cds_length FROM transcripts WHERE id = ?`, transcriptID).
		Scan(&t.ID, &t.Gene, &t.Sequence, &t.CDSLength)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transcript{}, fmt.Errorf("transcript %s: %w", transcriptID, ErrNotFound)
	}
	if err != nil {
		return models.Transcript{}, fmt.Errorf("query transcript: %w", err)
	}
	return t, nil
}

// Close releases the database connection.
func (d *DB) Close() error { return d.db.Close() }
