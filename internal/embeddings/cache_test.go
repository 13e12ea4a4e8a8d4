// ABOUTME: Tests for the memory and LRU embedding caches.
// ABOUTME: Covers key derivation, copy isolation, eviction and concurrent use.
package embeddings

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("b1", "hello"), CacheKey("b1", "hello"))
	assert.NotEqual(t, CacheKey("b1", "hello"), CacheKey("b1", "hello!"))
	assert.NotEqual(t, CacheKey("b1", "hello"), CacheKey("b2", "hello"))
}

func TestMemoryCacheIsolation(t *testing.T) {
	seed := map[string][]float32{"k": {1, 2}}
	c := NewMemoryCache(seed)
	seed["k"][0] = 99

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, got)

	got[1] = 42
	again, _ := c.Get("k")
	assert.Equal(t, []float32{1, 2}, again)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	c.Put("j", []float32{3})
	assert.Equal(t, 2, c.Len())
	assert.Equal(t, map[string][]float32{"k": {1, 2}, "j": {3}}, c.Entries())
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(2)
	c.Put("a", []float32{1})
	c.Put("b", []float32{2})
	_, _ = c.Get("a")
	c.Put("c", []float32{3})

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	_, ok = c.Get("a")
	assert.True(t, ok)

	c.Put("a", []float32{10})
	got, _ := c.Get("a")
	assert.Equal(t, []float32{10}, got)
	assert.Len(t, c.Entries(), 2)


	tiny := NewLRUCache(0)
	tiny.Put("x", nil)
	tiny.Put("y", nil)
	assert.Equal(t, 1, tiny.Len(), "capacity is at least one")
}

func TestCachesConcurrent(t *testing.T) {
	for name, c := range map[string]Cache{"memory": NewMemoryCache(nil), "lru": NewLRUCache(50)} {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for w := 0; w < 8; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < 100; i++ {
						key := fmt.Sprintf("k%d", i%20)
						c.Put(key, []float32{float32(i)})
						_, _ = c.Get(key)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, 20, c.Len())
		})
	}
}
