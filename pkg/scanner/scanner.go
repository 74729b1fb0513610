// Package scanner is the live seed-match engine. It reports binding sites in
// raw centi-log affinity units; the orchestrator rescales them to the shared
// log convention.
package scanner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mirscan/mirscan/pkg/models"
)

// Raw base affinities per site type, centi-log units.
const (
	raw8mer   = -530
	raw7merM8 = -350
	raw7merA1 = -260
	raw6mer   = -120

	// auBonus is subtracted per A/U in the flanking context window.
	auBonus    = 8
	flankWidth = 3
)

// Scanner scans target sequences against affinity model sets.
type Scanner struct {
	// scale converts between log units and the raw units this engine
	// reports, used to translate the caller's score cap.
	scale float64
}

// New creates a Scanner. scale is the number of raw units per log unit.
func New(scale float64) *Scanner {
	return &Scanner{scale: scale}
}

// Scan locates seed-match sites for every model in the set. Hits are in
// target order per model and carry raw scores strictly below
// p.MaxLogAffinity × scale. The context is checked between models so a
// long multi-model scan can be abandoned.
func (s *Scanner) Scan(ctx context.Context, seq string, set models.ModelSet, p models.ScanParams) ([]models.Hit, error) {
	target, err := normalize(seq)
	if err != nil {
		return nil, err
	}

	rawCap := p.MaxLogAffinity * s.scale

	var out []models.Hit
	for _, m := range set.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hits, err := s.scanModel(target, m, p, rawCap)
		if err != nil {
			return nil, err
		}
		out = append(out, hits...)
	}
	return out, nil
}

func (s *Scanner) scanModel(target string, m models.AffinityModel, p models.ScanParams, rawCap float64) ([]models.Hit, error) {
	if len(m.Seed) < 4 {
		return nil, fmt.Errorf("model %s: seed %q too short", m.Name, m.Seed)
	}
	seed, err := normalize(m.Seed)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", m.Name, err)
	}

	// The seed core excludes the final seed position; its reverse
	// complement is what appears in the target. The final position is
	// checked separately as the m8-style extension.
	core := revComp(seed[:len(seed)-1])
	m8Base := comp(seed[len(seed)-1])

	n := len(target)
	scan := target
	if p.Circular {
		// Extend past the origin so wrap-around cores are found; anchors
		// past the original length are duplicates.
		scan = target + target[:min(len(core)+1, n)]
	}

	var sites []models.Hit
	for pos := 0; ; {
		i := strings.Index(scan[pos:], core)
		if i < 0 {
			break
		}
		anchor := pos + i
		pos = anchor + 1
		if anchor >= n {
			break
		}

		hit := classify(target, anchor, core, m8Base, p.Circular)
		if hit.Start < p.Shadow {
			continue
		}
		if p.OnlyCanonical && !models.CanonicalSite(hit.SiteType) {
			continue
		}

		hit.LogAffinity = score(target, hit)
		if hit.LogAffinity >= rawCap {
			continue
		}
		hit.Mir = m.Name
		if p.KeepMatchSeq && hit.End <= len(scan) {
			hit.MatchSeq = scan[hit.Start:hit.End]
		}
		sites = append(sites, hit)
	}

	// Origin-spanning sites are reported from their wrapped start, so the
	// collection order is not position order.
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Start < sites[j].Start })
	return suppressClose(sites, p.MinDistance), nil
}

// classify builds the site at the given core anchor, extending left for the
// m8 match and right for the A1 anchor.
func classify(target string, anchor int, core string, m8Base byte, circular bool) models.Hit {
	n := len(target)

	m8 := false
	if anchor > 0 {
		m8 = target[anchor-1] == m8Base
	} else if circular {
		m8 = target[n-1] == m8Base
	}

	a1 := false
	a1Pos := anchor + len(core)
	if a1Pos < n {
		a1 = target[a1Pos] == 'A'
	} else if circular {
		a1 = target[a1Pos%n] == 'A'
	}

	h := models.Hit{Start: anchor, End: anchor + len(core)}
	if m8 {
		h.Start--
	}
	if a1 {
		h.End++
	}
	switch {
	case m8 && a1:
		h.SiteType = models.Site8mer
	case m8:
		h.SiteType = models.Site7merM8
	case a1:
		h.SiteType = models.Site7merA1
	default:
		h.SiteType = models.Site6mer
	}

	// A site whose m8 base lies across the origin is reported from that
	// base: Start stays within the sequence and positions at or past the
	// length wrap back to the start.
	if h.Start < 0 {
		h.Start += n
		h.End += n
	}
	return h
}

// score returns the raw affinity: the type base plus an AU-richness
// adjustment over the flanking context.
func score(target string, h models.Hit) float64 {
	base := map[string]float64{
		models.Site8mer:   raw8mer,
		models.Site7merM8: raw7merM8,
		models.Site7merA1: raw7merA1,
		models.Site6mer:   raw6mer,
	}[h.SiteType]

	au := 0
	for i := max(0, h.Start-flankWidth); i < h.Start; i++ {
		if target[i] == 'A' || target[i] == 'U' {
			au++
		}
	}
	for i := h.End; i < min(len(target), h.End+flankWidth); i++ {
		if target[i] == 'A' || target[i] == 'U' {
			au++
		}
	}
	return base - float64(au*auBonus)
}

// suppressClose drops sites closer than minDistance to the previously kept
// site of the same model, scanning left to right.
func suppressClose(sites []models.Hit, minDistance int) []models.Hit {
	if minDistance <= 0 || len(sites) < 2 {
		return sites
	}
	kept := sites[:1]
	for _, h := range sites[1:] {
		prev := kept[len(kept)-1]
		if h.Start >= prev.End+minDistance {
			kept = append(kept, h)
		}
	}
	return kept
}

// normalize uppercases, converts DNA T to U, and rejects anything outside
// the RNA alphabet.
func normalize(seq string) (string, error) {
	b := []byte(strings.ToUpper(seq))
	for i, c := range b {
		if c == 'T' {
			b[i] = 'U'
			continue
		}
		switch c {
		case 'A', 'C', 'G', 'U':
		default:
			return "", fmt.Errorf("invalid nucleotide %q at position %d", c, i)
		}
	}
	return string(b), nil
}

func comp(c byte) byte {
	switch c {
	case 'A':
		return 'U'
	case 'U':
		return 'A'
	case 'C':
		return 'G'
	default:
		return 'C'
	}
}

func revComp(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		b[len(s)-1-i] = comp(s[i])
	}
	return string(b)
}
