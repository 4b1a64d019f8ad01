package cache

import (
	"container/list"
	"sync"
	"sync/atomic"

	domain "github.com/bryanwahyu/reqanalyzer/internal/domain/analysis"
)

// Stats reports cache performance counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

type entry struct {
	fingerprint string
	result      *domain.Result
}

// LRU is a bounded, content-addressed cache of analysis results. Keys are
// requirement fingerprints, so semantically identical requests collide to the
// same slot. Eviction drops the least recently used entry and never touches
// unrelated keys.
type LRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently used
	items    map[string]*list.Element

	hits   int64
	misses int64
}

const defaultCapacity = 256

// NewLRU creates a cache bounded to capacity entries.
func NewLRU(capacity int) *LRU {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &LRU{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// TryGet returns the cached result for a fingerprint, if present.
func (c *LRU) TryGet(fingerprint string) (*domain.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[fingerprint]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	c.order.MoveToFront(el)
	atomic.AddInt64(&c.hits, 1)
	return el.Value.(*entry).result, true
}

// Store inserts or refreshes a result. Best-effort: a nil result is ignored
// rather than poisoning the cache.
func (c *LRU) Store(fingerprint string, r *domain.Result) {
	if r == nil || fingerprint == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[fingerprint]; ok {
		el.Value.(*entry).result = r
		c.order.MoveToFront(el)
		return
	}
	c.items[fingerprint] = c.order.PushFront(&entry{fingerprint: fingerprint, result: r})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*entry).fingerprint)
		}
	}
}

// Clear drops every entry. Counters survive so hit rates stay observable.
func (c *LRU) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}

// Stats returns a snapshot of the cache counters.
func (c *LRU) Stats() Stats {
	c.mu.Lock()
	entries := c.order.Len()
	c.mu.Unlock()
	return Stats{
		Entries: entries,
		Hits:    atomic.LoadInt64(&c.hits),
		Misses:  atomic.LoadInt64(&c.misses),
	}
}
