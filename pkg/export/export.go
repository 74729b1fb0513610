// Package export serializes hit sets and summaries to delimited tabular
// files with deterministic names.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mirscan/mirscan/pkg/models"
)

// multiLabel replaces the model name in filenames when more than one model
// was selected.
const multiLabel = "multi"

// WriteHits writes a hit set as tab-separated rows. Raw sequence-range
// bookkeeping stays internal; only reportable fields are emitted.
func WriteHits(w io.Writer, hits []models.Hit) error {
	if _, err := fmt.Fprintln(w, "mir\tstart\tend\tsite_type\tlog_affinity\tregion\tmatch_seq"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, h := range hits {
		_, err := fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%.3f\t%s\t%s\n",
			h.Mir, h.Start, h.End, h.SiteType, h.LogAffinity, h.Region, h.MatchSeq)
		if err != nil {
			return fmt.Errorf("write hit: %w", err)
		}
	}
	return nil
}

// WriteSummaries writes per-target repression summaries as tab-separated
// rows.
func WriteSummaries(w io.Writer, summaries []models.Summary) error {
	if _, err := fmt.Fprintln(w, "target\tmir\tsites\tbest_site\trepression"); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range summaries {
		_, err := fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.3f\n",
			s.Target, s.Mir, s.Sites, s.BestSite, s.Repression)
		if err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}
	return nil
}

// HitsFilename derives the export filename for a hit set from the target
// descriptor, the selection, and a date stamp.
func HitsFilename(target string, modelNames []string, now time.Time) string {
	return filename(target, modelNames, "sites", now)
}

// SummariesFilename derives the export filename for aggregated summaries.
func SummariesFilename(target string, modelNames []string, now time.Time) string {
	return filename(target, modelNames, "repression", now)
}

func filename(target string, modelNames []string, kind string, now time.Time) string {
	label := multiLabel
	if len(modelNames) == 1 {
		label = modelNames[0]
	}
	return fmt.Sprintf("%s_%s_%s_%s.tsv",
		sanitize(target), sanitize(label), kind, now.Format("20060102"))
}

// sanitize keeps filenames portable.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
