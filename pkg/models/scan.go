package models

// Site type classifications, strongest first. Canonical sites pair the full
// seed; the 6mer lacks both the m8 match and the A1 anchor.
const (
	Site8mer   = "8mer"
	Site7merM8 = "7mer-m8"
	Site7merA1 = "7mer-A1"
	Site6mer   = "6mer"
)

// CanonicalSite reports whether a site type counts as canonical for the
// only-canonical scan filter.
func CanonicalSite(siteType string) bool {
	switch siteType {
	case Site8mer, Site7merM8, Site7merA1:
		return true
	}
	return false
}

// Transcript regions.
const (
	RegionORF = "orf"
	RegionUTR = "utr"
)

// ScanParams is the immutable parameter bundle for one scan request. Two
// requests are cache-equivalent only if all fields, the model set, and the
// target sequence are equal.
type ScanParams struct {
	// Shadow is the 5' ribosome shadow in nucleotides; sites starting
	// inside it are not reported.
	Shadow int `yaml:"shadow"`

	// MinDistance is the minimum gap between adjacent sites of one model.
	MinDistance int `yaml:"min_distance"`

	// MaxLogAffinity is the exclusive upper bound on normalized scores.
	MaxLogAffinity float64 `yaml:"max_log_affinity"`

	// OnlyCanonical drops non-canonical site types.
	OnlyCanonical bool `yaml:"only_canonical"`

	// KeepMatchSeq retains the matched target subsequence on each hit.
	KeepMatchSeq bool `yaml:"keep_match_seq"`

	// Circular treats the target as circular.
	Circular bool `yaml:"circular"`
}

// Hit is one reported binding site. Start/End are 0-based half-open target
// coordinates. A site on a circular target may span the origin; Start stays
// within the sequence while End may exceed its length, with positions past
// the end wrapping back to the start. LogAffinity is in normalized log
// units after the orchestrator rescales raw engine output; more negative
// means stronger binding.
type Hit struct {
	Start       int     `json:"start"`
	End         int     `json:"end"`
	SiteType    string  `json:"site_type"`
	LogAffinity float64 `json:"log_affinity"`
	MatchSeq    string  `json:"match_seq,omitempty"`
	Mir         string  `json:"mir,omitempty"`
	Region      string  `json:"region,omitempty"`
}
