// Package aggregate reduces hit sets to per-model repression estimates.
package aggregate

import (
	"sort"

	"github.com/mirscan/mirscan/pkg/models"
)

// Region is the genomic-range frame the scoring routine operates in. The
// adapter synthesizes a single region covering the whole hit set, since the
// routine expects range input rather than a flat hit list.
type Region struct {
	Target string
	Start  int
	End    int
}

// Aggregate converts a hit set into per-model repression summaries, sorted
// ascending by repression estimate (strongest predicted repression first).
// keepSiteInfo retains the best site type on each summary.
func Aggregate(target string, hits []models.Hit, keepSiteInfo bool) []models.Summary {
	if len(hits) == 0 {
		return nil
	}
	return scoreRegion(span(target, hits), hits, keepSiteInfo)
}

// span builds the synthetic region record covering every hit.
func span(target string, hits []models.Hit) Region {
	r := Region{Target: target, Start: hits[0].Start, End: hits[0].End}
	for _, h := range hits[1:] {
		if h.Start < r.Start {
			r.Start = h.Start
		}
		if h.End > r.End {
			r.End = h.End
		}
	}
	return r
}

// scoreRegion is the repression estimator: per-model sums of log-affinity
// contributions over one region. Log units are additive, so the estimate
// for a model is the sum of its site scores.
func scoreRegion(region Region, hits []models.Hit, keepSiteInfo bool) []models.Summary {
	byMir := make(map[string]*models.Summary)
	best := make(map[string]float64)

	for _, h := range hits {
		if h.Start < region.Start || h.End > region.End {
			continue
		}
		s, ok := byMir[h.Mir]
		if !ok {
			s = &models.Summary{Target: region.Target, Mir: h.Mir}
			byMir[h.Mir] = s
			best[h.Mir] = h.LogAffinity
			if keepSiteInfo {
				s.BestSite = h.SiteType
			}
		}
		s.Sites++
		s.Repression += h.LogAffinity
		if keepSiteInfo && h.LogAffinity < best[h.Mir] {
			best[h.Mir] = h.LogAffinity
			s.BestSite = h.SiteType
		}
	}

	out := make([]models.Summary, 0, len(byMir))
	for _, s := range byMir {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Repression != out[j].Repression {
			return out[i].Repression < out[j].Repression
		}
		return out[i].Mir < out[j].Mir
	})
	return out
}
