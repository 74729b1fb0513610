// Package cache is the per-session scan result cache: a bounded
// fingerprint → entry store with recency tracking and byte-budget eviction.
package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/mirscan/mirscan/pkg/fingerprint"
	"github.com/mirscan/mirscan/pkg/models"
)

// minRetained is the eviction floor: the cache never drops below two
// entries, so the current and previous results stay loadable even when
// memory-constrained.
const minRetained = 2

// Entry is one cached scan result. LastAccess is updated by Get; everything
// else is immutable after insertion.
type Entry struct {
	Fingerprint  fingerprint.Fingerprint `json:"fingerprint"`
	Hits         []models.Hit            `json:"hits"`
	Size         int64                   `json:"size"`
	CreatedAt    time.Time               `json:"created_at"`
	LastAccess   time.Time               `json:"last_access"`
	Selection    models.Selection        `json:"selection"`
	Target       string                  `json:"target"`
	TargetLength int                     `json:"target_length"`
	Params       models.ScanParams       `json:"params"`
}

// Cache maps fingerprints to entries for one session. Safe for concurrent
// use; mutation is a critical section.
type Cache struct {
	mu      sync.Mutex
	budget  int64
	entries map[fingerprint.Fingerprint]*Entry

	hits   int64
	misses int64
}

// New creates a Cache with the given byte budget. A budget of 0 disables
// eviction.
func New(budgetBytes int64) *Cache {
	return &Cache{
		budget:  budgetBytes,
		entries: make(map[fingerprint.Fingerprint]*Entry),
	}
}

// Get returns the entry for fp if present, updating its last-access time.
// A read counts as a use for recency purposes.
func (c *Cache) Get(fp fingerprint.Fingerprint) (*Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[fp]
	if !ok {
		c.misses++
		return nil, false
	}
	e.LastAccess = time.Now().UTC()
	c.hits++
	return e, true
}

// Put inserts or replaces the entry for fp and then enforces the byte
// budget. Eviction is the only implicit mutation in the cache.
func (c *Cache) Put(fp fingerprint.Fingerprint, e *Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Fingerprint = fp
	c.entries[fp] = e
	c.evict()
}

// Delete removes the entry for fp, reporting whether it existed. If the
// removed entry was the caller's active one, the caller clears its active
// pointer.
func (c *Cache) Delete(fp fingerprint.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.entries[fp]
	delete(c.entries, fp)
	return ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TotalSize returns the sum of all entries' byte-size estimates.
func (c *Cache) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize()
}

// Stats returns hit/miss counters and the current entry count.
func (c *Cache) Stats() (entries int, hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.hits, c.misses
}

// List returns one labeled row per cached entry for display, most recently
// created first. Labels combine creation time, selection summary, target
// descriptor, and formatted byte size.
func (c *Cache) List() []models.CacheInfo {
	c.mu.Lock()
	defer c.mu.Unlock()

	all := make([]*Entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].Fingerprint.Hex() < all[j].Fingerprint.Hex()
	})

	infos := make([]models.CacheInfo, len(all))
	for i, e := range all {
		sel := e.Selection.Collection
		if n := len(e.Selection.Models); n == 1 {
			sel = e.Selection.Models[0]
		} else {
			sel = fmt.Sprintf("%s (%d models)", sel, n)
		}
		infos[i] = models.CacheInfo{
			Fingerprint: e.Fingerprint.Short(),
			Label: fmt.Sprintf("%s  %s  %s  %s",
				e.CreatedAt.Format("2006-01-02 15:04:05"),
				sel, e.Target, humanize.Bytes(uint64(e.Size))),
		}
	}
	return infos
}

func (c *Cache) totalSize() int64 {
	var total int64
	for _, e := range c.entries {
		total += e.Size
	}
	return total
}

// evict removes oldest-access-first entries while the total size exceeds
// the budget and more than minRetained entries remain. Ties on last-access
// break by fingerprint hex ordering. Caller holds the lock.
func (c *Cache) evict() {
	if c.budget <= 0 {
		return
	}
	for len(c.entries) > minRetained && c.totalSize() > c.budget {
		var victim *Entry
		for _, e := range c.entries {
			if victim == nil {
				victim = e
				continue
			}
			if e.LastAccess.Before(victim.LastAccess) ||
				(e.LastAccess.Equal(victim.LastAccess) && e.Fingerprint.Hex() < victim.Fingerprint.Hex()) {
				victim = e
			}
		}
		delete(c.entries, victim.Fingerprint)
	}
}

// EstimateSize estimates the in-memory byte footprint of a hit set plus
// per-entry bookkeeping.
func EstimateSize(hits []models.Hit) int64 {
	size := int64(256) // entry metadata
	for _, h := range hits {
		size += 64 + int64(len(h.SiteType)+len(h.MatchSeq)+len(h.Mir)+len(h.Region))
	}
	return size
}
