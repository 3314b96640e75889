package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultCacheCapacity bounds the in-memory cache.
	DefaultCacheCapacity = 1000

	// DefaultSimilarityThreshold is the token-overlap ratio required for a
	// near-duplicate cache hit.
	DefaultSimilarityThreshold = 0.95

	// evictionKeepRatio is the fraction of capacity retained after eviction.
	evictionKeepRatio = 0.8
)

type cacheEntry struct {
	embedding      []float32
	normalizedText string
	createdAt      time.Time
	accessCount    int
	lastAccessedAt time.Time
}

// CacheStats is a snapshot of cache effectiveness counters.
type CacheStats struct {
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// Cache is a bounded in-memory embedding cache keyed by a content hash of the
// normalized text. When full, the oldest-accessed entries are evicted until
// the cache holds 80% of its capacity.
type Cache struct {
	mu       sync.RWMutex
	capacity int
	entries  map[string]*cacheEntry
	hits     int64
	misses   int64
}

// NewCache creates a cache holding at most capacity entries. A non-positive
// capacity falls back to DefaultCacheCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &Cache{
		capacity: capacity,
		entries:  make(map[string]*cacheEntry),
	}
}

func normalizeForKey(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(text))), " ")
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(normalizeForKey(text)))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached embedding for an exact (case and whitespace
// insensitive) content match, or nil on a miss.
func (c *Cache) Get(text string) []float32 {
	key := contentHash(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil
	}

	entry.accessCount++
	entry.lastAccessedAt = time.Now()
	c.hits++
	return append([]float32(nil), entry.embedding...)
}

// GetSimilar returns a cached embedding whose source text overlaps the query
// by at least threshold (Jaccard over whitespace tokens), together with the
// overlap ratio. Exact matches short-circuit with ratio 1.
func (c *Cache) GetSimilar(text string, threshold float64) ([]float32, float64) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	normalized := normalizeForKey(text)
	key := contentHash(text)

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.accessCount++
		entry.lastAccessedAt = time.Now()
		c.hits++
		return append([]float32(nil), entry.embedding...), 1.0
	}

	queryTokens := tokenSet(normalized)
	var best *cacheEntry
	bestRatio := 0.0
	for _, entry := range c.entries {
		ratio := jaccard(queryTokens, tokenSet(entry.normalizedText))
		if ratio >= threshold && ratio > bestRatio {
			best = entry
			bestRatio = ratio
		}
	}

	if best == nil {
		c.misses++
		return nil, 0
	}

	best.accessCount++
	best.lastAccessedAt = time.Now()
	c.hits++
	return append([]float32(nil), best.embedding...), bestRatio
}

// Put stores an embedding. Re-putting the same text only bumps the access
// metadata of the existing entry.
func (c *Cache) Put(text string, embedding []float32) {
	if len(embedding) == 0 {
		return
	}

	key := contentHash(text)
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.accessCount++
		entry.lastAccessedAt = now
		return
	}

	c.entries[key] = &cacheEntry{
		embedding:      append([]float32(nil), embedding...),
		normalizedText: normalizeForKey(text),
		createdAt:      now,
		accessCount:    1,
		lastAccessedAt: now,
	}

	c.evictLocked()
}

// evictLocked trims the cache to evictionKeepRatio of capacity, dropping the
// entries accessed longest ago. Caller must hold c.mu.
func (c *Cache) evictLocked() {
	if len(c.entries) <= c.capacity {
		return
	}

	type keyed struct {
		key   string
		entry *cacheEntry
	}
	all := make([]keyed, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, keyed{key: k, entry: e})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].entry.lastAccessedAt.Before(all[j].entry.lastAccessedAt)
	})

	keep := int(float64(c.capacity) * evictionKeepRatio)
	for _, k := range all[:len(all)-keep] {
		delete(c.entries, k.key)
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := CacheStats{
		Entries:  len(c.entries),
		Capacity: c.capacity,
		Hits:     c.hits,
		Misses:   c.misses,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// Clear drops every entry and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.hits = 0
	c.misses = 0
}

func tokenSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(text) {
		set[tok] = struct{}{}
	}
	return set
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
