package intent

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/medscope/litsearch/internal/model"
)

// Cache is a content-addressed, TTL- and capacity-bounded store of resolved
// criteria. Keys are derived from the raw input text, the model ID and a
// canonical serialization of the model parameters, so the same request against
// the same model configuration always hits the same entry.
//
// All mutation happens under one mutex held only for in-memory bookkeeping;
// callers never hold it across network or parsing work.
type Cache struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	entries map[string]*cacheEntry

	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time // injectable for testing
}

type cacheEntry struct {
	criteria     model.SearchCriteria
	createdAt    time.Time
	lastAccessed time.Time
}

// CacheStats is a point-in-time snapshot of cache behavior.
type CacheStats struct {
	Size      int     `json:"size"`
	MaxSize   int     `json:"max_size"`
	HitRate   float64 `json:"hit_rate"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
}

// NewCache creates a cache holding at most maxSize entries, each valid for ttl.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	return &Cache{
		maxSize: maxSize,
		ttl:     ttl,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// WithNow sets a fixed clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// cacheKey returns SHA-256 hex over the NFC-normalized input, the model ID
// and the sort-keyed JSON of the parameter set. Canonicalization guarantees
// that logically identical parameter sets hash identically regardless of
// insertion order.
func cacheKey(input, modelID string, params map[string]any) string {
	canonical, err := json.Marshal(params) // map keys are emitted sorted
	if err != nil {
		canonical = []byte("{}")
	}
	content := norm.NFC.String(input) + ":" + modelID + ":" + string(canonical)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached criteria for the triple, if present and unexpired.
// An expired entry is removed on read and counted as an eviction and a miss.
func (c *Cache) Get(input, modelID string, params map[string]any) (model.SearchCriteria, bool) {
	key := cacheKey(input, modelID, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if c.now().Sub(e.createdAt) < c.ttl {
			e.lastAccessed = c.now()
			c.hits++
			return e.criteria, true
		}
		delete(c.entries, key)
		c.evictions++
	}

	c.misses++
	return model.SearchCriteria{}, false
}

// Put stores resolved criteria for the triple. When the cache is at capacity
// the single least-recently-accessed entry is evicted before insertion.
func (c *Cache) Put(input, modelID string, params map[string]any, criteria model.SearchCriteria) {
	key := cacheKey(input, modelID, params)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLRULocked()
	}

	now := c.now()
	c.entries[key] = &cacheEntry{
		criteria:     criteria,
		createdAt:    now,
		lastAccessed: now,
	}
}

// evictLRULocked removes the entry with the oldest last access time.
// Caller must hold c.mu.
func (c *Cache) evictLRULocked() {
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.lastAccessed.Before(oldest) {
			oldestKey = k
			oldest = e.lastAccessed
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
		c.evictions++
	}
}

// Clear removes all entries and resets counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cacheEntry)
	c.hits, c.misses, c.evictions = 0, 0, 0
}

// Stats returns a snapshot of cache counters. The hit rate is 0 when no
// requests have been made.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Size:      len(c.entries),
		MaxSize:   c.maxSize,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}
