package cache

import (
	"sync"
	"testing"
	"time"

	"docquery/internal/domain"
)

func results(preview string) []domain.QueryResult {
	return []domain.QueryResult{{ChunkIndex: 0, Preview: preview, Relevance: 0.9}}
}

func TestPutAndGet(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	c.Put("doc1", "query", 5, results("hit"))

	got, ok := c.Get("doc1", "query", 5)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got[0].Preview != "hit" {
		t.Errorf("got %+v", got)
	}

	// Different document, query or k are distinct entries.
	if _, ok := c.Get("doc2", "query", 5); ok {
		t.Error("hit for wrong document")
	}
	if _, ok := c.Get("doc1", "other", 5); ok {
		t.Error("hit for wrong query")
	}
	if _, ok := c.Get("doc1", "query", 3); ok {
		t.Error("hit for wrong k")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := NewQueryCache(10, 20*time.Millisecond)

	c.Put("doc1", "query", 5, results("hit"))
	if _, ok := c.Get("doc1", "query", 5); !ok {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := c.Get("doc1", "query", 5); ok {
		t.Error("expected miss after TTL")
	}
	if c.Size() != 0 {
		t.Errorf("expired entry not dropped, size = %d", c.Size())
	}
}

func TestInvalidate(t *testing.T) {
	c := NewQueryCache(10, time.Minute)

	c.Put("doc1", "query", 5, results("stale"))
	c.Invalidate()

	if _, ok := c.Get("doc1", "query", 5); ok {
		t.Error("hit after invalidation")
	}
	if c.Size() != 0 {
		t.Errorf("size after invalidation = %d", c.Size())
	}

	// The cache keeps working after invalidation.
	c.Put("doc1", "query", 5, results("fresh"))
	got, ok := c.Get("doc1", "query", 5)
	if !ok || got[0].Preview != "fresh" {
		t.Errorf("got %+v, ok=%v", got, ok)
	}
}

func TestConcurrentGetPutInvalidate(t *testing.T) {
	c := NewQueryCache(8, time.Minute)
	queries := []string{"a", "b", "c", "d", "e"}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				q := queries[(seed+i)%len(queries)]
				switch i % 7 {
				case 0:
					c.Invalidate()
				case 1, 2:
					c.Put("doc", q, 5, results(q))
				default:
					c.Get("doc", q, 5)
				}
			}
		}(g)
	}
	wg.Wait()

	// order and entries must agree: same size, no duplicate keys, every
	// ordered key backed by an entry.
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.order) != len(c.entries) {
		t.Fatalf("order has %d keys, entries has %d", len(c.order), len(c.entries))
	}
	seen := make(map[string]bool, len(c.order))
	for _, key := range c.order {
		if seen[key] {
			t.Errorf("duplicate key in order: %s", key)
		}
		seen[key] = true
		if _, ok := c.entries[key]; !ok {
			t.Errorf("ordered key %s has no entry", key)
		}
	}
	if len(c.entries) > c.maxSize {
		t.Errorf("cache holds %d entries, max %d", len(c.entries), c.maxSize)
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	c.Put("doc1", "a", 5, results("a"))
	c.Put("doc1", "b", 5, results("b"))

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("doc1", "a", 5); !ok {
		t.Fatal("expected hit for a")
	}

	c.Put("doc1", "c", 5, results("c"))

	if _, ok := c.Get("doc1", "b", 5); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := c.Get("doc1", "a", 5); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("doc1", "c", 5); !ok {
		t.Error("new entry missing")
	}
	if c.Size() != 2 {
		t.Errorf("size = %d, want 2", c.Size())
	}
}
