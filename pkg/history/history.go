// Package history keeps a log of completed scans in a dedicated SQLite
// database. History is advisory: a write failure never fails a scan.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Result sources.
const (
	SourceCache       = "cache"
	SourcePrecomputed = "precomputed"
	SourceScan        = "scan"
)

// Record is one completed scan.
type Record struct {
	Target     string
	Collection string
	Models     int
	Hits       int
	Source     string
	Duration   time.Duration
	CreatedAt  time.Time
}

// Log writes and queries scan records.
type Log struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_log (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	target     TEXT NOT NULL,
	collection TEXT NOT NULL,
	models     INTEGER NOT NULL,
	hits       INTEGER NOT NULL,
	source     TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_scan_log_created ON scan_log(created_at);
`

// Open opens (or creates) the history database at the given path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history db: %w", err)
	}
	return &Log{db: db}, nil
}

// Record stores one scan record.
func (l *Log) Record(ctx context.Context, r Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO scan_log (target, collection, models, hits, source, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Target, r.Collection, r.Models, r.Hits, r.Source, r.Duration.Milliseconds(), r.CreatedAt)
	if err != nil {
		return fmt.Errorf("record scan: %w", err)
	}
	return nil
}

// Recent returns the most recent records, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT target, collection, models, hits, source, duration_ms, created_at
		 FROM scan_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ms int64
		if err := rows.Scan(&r.Target, &r.Collection, &r.Models, &r.Hits, &r.Source, &ms, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}

// Purge deletes records older than the cutoff, returning the count removed.
func (l *Log) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := l.db.ExecContext(ctx, `DELETE FROM scan_log WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge history: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database connection.
func (l *Log) Close() error { return l.db.Close() }
