// ABOUTME: Embedding caches keyed by element id and text hash.
// ABOUTME: MemoryCache is append-only; LRUCache bounds memory for long-lived services.
package embeddings

import (
	"container/list"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Cache stores vectors between matrix builds. Implementations must be safe for
// concurrent use because independent alignments may share one cache.
type Cache interface {
	Get(key string) ([]float32, bool)
	Put(key string, vec []float32)
	Len() int
	// Entries returns a copy of every cached vector, for persistence.
	Entries() map[string][]float32
}

// CacheKey derives the cache key for an element. The text hash means an id
// whose text was edited is embedded again rather than served stale.
func CacheKey(id, text string) string {
	return id + "#" + strconv.FormatUint(xxhash.Sum64String(text), 16)
}

// MemoryCache is an unbounded, mutex-guarded map. Entries are never evicted.
type MemoryCache struct {
	mu sync.RWMutex
	m  map[string][]float32
}

// NewMemoryCache creates an empty cache, optionally seeded with entries.
func NewMemoryCache(seed map[string][]float32) *MemoryCache {
	c := &MemoryCache{m: make(map[string][]float32, len(seed))}
	for k, v := range seed {
		c.m[k] = cloneVector(v)
	}
	return c
}

// Get implements Cache.
func (c *MemoryCache) Get(key string) ([]float32, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	if !ok {
		return nil, false
	}
	return cloneVector(v), true
}

// Put implements Cache.
func (c *MemoryCache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = cloneVector(vec)
}

// Len implements Cache.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

// Entries implements Cache.
func (c *MemoryCache) Entries() map[string][]float32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string][]float32, len(c.m))
	for k, v := range c.m {
		out[k] = cloneVector(v)
	}
	return out
}

// LRUCache keeps at most a fixed number of vectors, evicting the least
// recently used entry on overflow.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	items    map[string]*list.Element
}

type lruEntry struct {
	key string
	vec []float32
}

// NewLRUCache creates a bounded cache. capacity must be positive.
func NewLRUCache(capacity int) *LRUCache {
	if capacity < 1 {
		capacity = 1
	}
	return &LRUCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get implements Cache.
func (c *LRUCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return cloneVector(el.Value.(*lruEntry).vec), true
}

// Put implements Cache.
func (c *LRUCache) Put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		el.Value.(*lruEntry).vec = cloneVector(vec)
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&lruEntry{key: key, vec: cloneVector(vec)})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*lruEntry).key)
	}
}

// Len implements Cache.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Entries implements Cache.
func (c *LRUCache) Entries() map[string][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]float32, len(c.items))
	for k, el := range c.items {
		out[k] = cloneVector(el.Value.(*lruEntry).vec)
	}
	return out
}

func cloneVector(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
