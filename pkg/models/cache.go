package models

// Selection summarizes which models were chosen for a cached scan.
type Selection struct {
	Collection string   `json:"collection"`
	Models     []string `json:"models"`
}

// CacheInfo is one row of the cache introspection listing. Fingerprint is
// the short display prefix of the entry's fingerprint.
type CacheInfo struct {
	Fingerprint string `json:"fingerprint"`
	Label       string `json:"label"`
}

// Summary is one per-target repression estimate produced by aggregation.
// Repression is in the same log units as hit scores; more negative means
// stronger predicted repression.
type Summary struct {
	Target     string  `json:"target"`
	Mir        string  `json:"mir"`
	Sites      int     `json:"sites"`
	BestSite   string  `json:"best_site,omitempty"`
	Repression float64 `json:"repression"`
}
