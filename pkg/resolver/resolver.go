// Package resolver orchestrates scan requests: fingerprint, cache lookup,
// precomputed-index reuse, live scanning, normalization, and caching of the
// result.
package resolver

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mirscan/mirscan/pkg/cache"
	"github.com/mirscan/mirscan/pkg/fingerprint"
	"github.com/mirscan/mirscan/pkg/models"
	"github.com/mirscan/mirscan/pkg/precomputed"
)

// Preconditions, rejected before any fingerprinting or scanning.
var (
	ErrEmptySequence = errors.New("no target sequence selected")
	ErrNoModels      = errors.New("no models selected")
)

// Engine is the live scanning engine. Scan may be long-running and blocks
// until done; it reports raw scores that Resolve rescales.
type Engine interface {
	Scan(ctx context.Context, seq string, set models.ModelSet, p models.ScanParams) ([]models.Hit, error)
}

// SiteIndex is the precomputed lookup the resolver consults before paying
// for a live scan. *precomputed.Index satisfies it.
type SiteIndex interface {
	Lookup(ctx context.Context, transcriptID string, set models.ModelSet, utrOnly bool, p models.ScanParams) ([]models.Hit, error)
}

// Request is one scan request flowing through the pipeline.
type Request struct {
	Target   models.Target
	Sequence string
	Models   models.ModelSet
	Params   models.ScanParams

	// CDSLength annotates live-scan hits with their transcript region when
	// the target is a known transcript viewed whole. 0 = unknown.
	CDSLength int
}

// Resolver owns one session's cache and active-result pointer. Resolve and
// Delete serialize on an internal mutex so a rapid scan + delete cannot
// observe a use-after-delete.
type Resolver struct {
	mu     sync.Mutex
	cache  *cache.Cache
	index  SiteIndex // nil when no precomputed store is configured
	engine Engine
	scale  float64
	busy   atomic.Bool

	active    fingerprint.Fingerprint
	activeSet bool

	// Warnf receives non-fatal fallback warnings. Defaults to log.Printf.
	Warnf func(format string, args ...any)
}

// New creates a Resolver. scale is the divisor converting raw engine scores
// to the log convention used by precomputed data; it is applied exactly
// once, on the live-scan path.
func New(c *cache.Cache, index SiteIndex, engine Engine, scale float64) *Resolver {
	return &Resolver{
		cache:  c,
		index:  index,
		engine: engine,
		scale:  scale,
		Warnf:  log.Printf,
	}
}

// Busy reports whether a live engine call is in flight.
func (r *Resolver) Busy() bool { return r.busy.Load() }

// Cache exposes the session cache for introspection listings.
func (r *Resolver) Cache() *cache.Cache { return r.cache }

// Resolve returns the result for a request, from the cache when possible,
// from the precomputed index when usable, and from a live scan otherwise.
// The returned entry becomes the session's active result.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*cache.Entry, error) {
	if req.Sequence == "" {
		return nil, ErrEmptySequence
	}
	if len(req.Models.Models) == 0 {
		return nil, ErrNoModels
	}

	fp := fingerprint.New(req.Models, req.Sequence, req.Params)

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache.Get(fp); ok {
		r.setActive(fp)
		return e, nil
	}

	hits, ok := r.lookupPrecomputed(ctx, req)
	if !ok {
		raw, err := r.scanLive(ctx, req)
		if err != nil {
			// A failed scan must not corrupt the cache: nothing is inserted
			// and the failure is surfaced without retry.
			return nil, err
		}
		hits = normalize(raw, r.scale, req.Params)
		annotateRegions(hits, req)
	}

	now := time.Now().UTC()
	e := &cache.Entry{
		Hits:       hits,
		Size:       cache.EstimateSize(hits),
		CreatedAt:  now,
		LastAccess: now,
		Selection: models.Selection{
			Collection: req.Models.Collection,
			Models:     req.Models.Names(),
		},
		Target:       req.Target.Descriptor,
		TargetLength: len(req.Sequence),
		Params:       req.Params,
	}
	r.cache.Put(fp, e)
	r.setActive(fp)
	return e, nil
}

// lookupPrecomputed attempts index reuse for known transcripts viewed as a
// sub-region. An empty hit set is a usable ("no matches") result. All
// failures degrade to a live scan.
func (r *Resolver) lookupPrecomputed(ctx context.Context, req Request) ([]models.Hit, bool) {
	if r.index == nil || !req.Target.Known() || !req.Target.UTROnly {
		return nil, false
	}

	hits, err := r.index.Lookup(ctx, req.Target.TranscriptID, req.Models, true, req.Params)
	switch {
	case err == nil:
		return hits, true
	case errors.Is(err, precomputed.ErrModelMismatch):
		r.Warnf("precomputed index unusable for %s: %v; running live scan", req.Target.Descriptor, err)
	case errors.Is(err, precomputed.ErrNotIndexed):
		// Not an error: the transcript simply is not indexed.
	default:
		r.Warnf("precomputed lookup failed for %s: %v; running live scan", req.Target.Descriptor, err)
	}
	return nil, false
}

// scanLive invokes the engine at most once per fingerprint miss, holding
// the busy flag for the duration. The flag clears on every exit path.
func (r *Resolver) scanLive(ctx context.Context, req Request) ([]models.Hit, error) {
	r.busy.Store(true)
	defer r.busy.Store(false)
	return r.engine.Scan(ctx, req.Sequence, req.Models, req.Params)
}

// normalize rescales raw engine scores to the precomputed log convention
// (exactly once), drops hits at or above the threshold, and sorts ascending
// by score.
func normalize(raw []models.Hit, scale float64, p models.ScanParams) []models.Hit {
	hits := make([]models.Hit, 0, len(raw))
	for _, h := range raw {
		h.LogAffinity /= scale
		if h.LogAffinity >= p.MaxLogAffinity {
			continue
		}
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].LogAffinity < hits[j].LogAffinity })
	return hits
}

// annotateRegions tags whole-transcript live-scan hits as coding or UTR.
func annotateRegions(hits []models.Hit, req Request) {
	if !req.Target.Known() || req.Target.UTROnly || req.CDSLength <= 0 {
		return
	}
	for i := range hits {
		if hits[i].Start >= req.CDSLength {
			hits[i].Region = models.RegionUTR
		} else {
			hits[i].Region = models.RegionORF
		}
	}
}

// Load makes a previously cached entry the active result. A fingerprint
// that has been evicted or deleted yields no active result rather than an
// error.
func (r *Resolver) Load(fp fingerprint.Fingerprint) (*cache.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.cache.Get(fp)
	if !ok {
		if r.activeSet && r.active == fp {
			r.activeSet = false
		}
		return nil, false
	}
	r.setActive(fp)
	return e, true
}

// Delete removes a cached entry, clearing the active pointer if it pointed
// at the removed entry.
func (r *Resolver) Delete(fp fingerprint.Fingerprint) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ok := r.cache.Delete(fp)
	if r.activeSet && r.active == fp {
		r.activeSet = false
	}
	return ok
}

// Active returns the session's active result, if any. An active entry that
// has since been evicted reads as "no active result".
func (r *Resolver) Active() (*cache.Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.activeSet {
		return nil, false
	}
	e, ok := r.cache.Get(r.active)
	if !ok {
		r.activeSet = false
		return nil, false
	}
	return e, true
}

func (r *Resolver) setActive(fp fingerprint.Fingerprint) {
	r.active = fp
	r.activeSet = true
}
