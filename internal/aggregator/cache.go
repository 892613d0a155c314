package aggregator

import (
	"sync"
	"time"

	"github.com/couchcryptid/ocean-data-service/internal/domain"
)

// cacheEntry pairs a merged record set with the moment it was fetched, so
// hits can report how stale the data they serve is.
type cacheEntry struct {
	records   []domain.CanonicalRecord
	fetchedAt time.Time
}

// resultCache stores merged record sets keyed by request signature. Entries
// never expire or evict; oceanographic history for a fixed box and window
// does not change, so staleness can only come from new deployments, and
// those are handled by the explicit clear endpoint.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]cacheEntry)}
}

func (c *resultCache) get(key string) ([]domain.CanonicalRecord, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, time.Time{}, false
	}
	// Callers receive a copy so cached entries stay immutable.
	out := make([]domain.CanonicalRecord, len(e.records))
	copy(out, e.records)
	return out, e.fetchedAt, true
}

func (c *resultCache) put(key string, records []domain.CanonicalRecord) {
	stored := make([]domain.CanonicalRecord, len(records))
	copy(stored, records)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{records: stored, fetchedAt: domain.Now()}
}

func (c *resultCache) clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]cacheEntry)
	return n
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
