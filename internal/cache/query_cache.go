package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"docquery/internal/domain"
)

// QueryCache memoizes single-document query results with LRU eviction and a
// TTL. A generation counter invalidates every entry when any index is rebuilt
// or deleted, so a cached result never outlives the index it came from.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	order   []string
	maxSize int
	ttl     time.Duration
	gen     uint64
}

type cacheEntry struct {
	results   []domain.QueryResult
	timestamp time.Time
	gen       uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		entries: make(map[string]*cacheEntry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

func cacheKey(docID, query string, k int) string {
	data := []byte(docID)
	data = append(data, 0)
	data = append(data, query...)
	data = append(data, byte(k>>8), byte(k))
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(docID, query string, k int) ([]domain.QueryResult, bool) {
	key := cacheKey(docID, query, k)

	c.mu.RLock()
	entry, exists := c.entries[key]
	currentGen := c.gen
	c.mu.RUnlock()

	if !exists {
		return nil, false
	}

	if entry.gen != currentGen || time.Since(entry.timestamp) > c.ttl {
		c.mu.Lock()
		delete(c.entries, key)
		c.removeFromOrder(key)
		c.mu.Unlock()
		return nil, false
	}

	// Re-check under the write lock: an Invalidate may have cleared the map
	// after the read above, and touching order for a dead key would let it
	// diverge from entries.
	c.mu.Lock()
	if current, ok := c.entries[key]; ok && current.gen == c.gen {
		c.moveToEnd(key)
		c.mu.Unlock()
		return current.results, true
	}
	c.mu.Unlock()
	return nil, false
}

func (c *QueryCache) Put(docID, query string, k int, results []domain.QueryResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(docID, query, k)

	if _, exists := c.entries[key]; !exists {
		if len(c.entries) >= c.maxSize {
			c.evictOldest()
		}
		c.order = append(c.order, key)
	} else {
		c.moveToEnd(key)
	}

	c.entries[key] = &cacheEntry{
		results:   results,
		timestamp: time.Now(),
		gen:       c.gen,
	}
}

// Invalidate drops all entries. Called after any build or delete.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.order = c.order[:0]
	c.gen++
}

func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *QueryCache) evictOldest() {
	if len(c.order) == 0 {
		return
	}
	oldest := c.order[0]
	c.order = c.order[1:]
	delete(c.entries, oldest)
}

func (c *QueryCache) moveToEnd(key string) {
	c.removeFromOrder(key)
	c.order = append(c.order, key)
}

func (c *QueryCache) removeFromOrder(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}
