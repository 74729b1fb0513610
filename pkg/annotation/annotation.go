// Package annotation resolves genes to transcripts and back. Two backends
// implement the same capability interface: a full SQLite annotation
// database and a simple in-memory lookup table loaded from YAML.
package annotation

import (
	"context"
	"errors"

	"github.com/mirscan/mirscan/pkg/models"
)

// ErrNotFound is returned when a gene or transcript is unknown to the
// backend.
var ErrNotFound = errors.New("not found in annotation source")

// Source is the capability interface over annotation backends.
type Source interface {
	// TranscriptsForGene returns all transcripts of a gene symbol.
	TranscriptsForGene(ctx context.Context, gene string) ([]models.Transcript, error)
	// GeneForTranscript returns the gene symbol owning a transcript.
	GeneForTranscript(ctx context.Context, transcriptID string) (string, error)
	// Transcript returns one transcript by id.
	Transcript(ctx context.Context, transcriptID string) (models.Transcript, error)
	// Close releases backend resources.
	Close() error
}
