package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// MemoryCache is the L1 cache: a fixed number of entries with LRU eviction.
type MemoryCache struct {
	lru   *lru.Cache[string, Entry]
	mu    sync.Mutex
	size  int64
	stats Stats
}

// NewMemoryCache creates a memory cache holding up to entries items.
func NewMemoryCache(entries int) (*MemoryCache, error) {
	if entries <= 0 {
		entries = DefaultConfig().MemoryEntries
	}
	c := &MemoryCache{stats: Stats{Capacity: int64(entries)}}

	l, err := lru.NewWithEvict[string, Entry](entries, func(_ string, e Entry) {
		// Called with c.mu held by the mutating method.
		c.size -= int64(len(e.Data))
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Get retrieves an entry from the cache.
func (c *MemoryCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}
	c.stats.Hits++
	c.stats.LastAccess = time.Now()
	return e, true
}

// Put stores an entry, evicting the least recently used one when full.
func (c *MemoryCache) Put(key string, entry Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry.Created.IsZero() {
		entry.Created = time.Now()
	}
	if old, ok := c.lru.Peek(key); ok {
		c.size -= int64(len(old.Data))
	}
	if evicted := c.lru.Add(key, entry); evicted {
		c.stats.Evictions++
		c.stats.LastEvict = time.Now()
	}
	c.size += int64(len(entry.Data))
	return nil
}

// Delete removes an entry from the cache.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Remove(key)
	return nil
}

// Clear removes all entries from the cache.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.size = 0
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	return c.lru.Len()
}

// Contains checks if a key exists without updating recency.
func (c *MemoryCache) Contains(key string) bool {
	return c.lru.Contains(key)
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Size = c.size
	stats.ItemCount = int64(c.lru.Len())
	stats.updateHitRate()
	return stats
}

// Prune removes entries older than maxAge.
func (c *MemoryCache) Prune(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	pruned := 0
	for _, key := range c.lru.Keys() {
		if e, ok := c.lru.Peek(key); ok && e.Created.Before(cutoff) {
			c.lru.Remove(key)
			pruned++
		}
	}
	return pruned
}
