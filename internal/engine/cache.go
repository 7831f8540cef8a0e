package engine

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is a bounded least-recently-used map from memo key to Result.
//
// Thread-safety: Cache is safe for concurrent use. Cached results are shared
// between callers and must be treated as read-only.
type Cache struct {
	// entries is nil when the cache was created with no capacity.
	entries *lru.Cache[string, *Result]
}

// NewCache creates a cache holding at most capacity results.
// A capacity of zero or less yields a cache that stores nothing.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		return &Cache{}
	}
	entries, err := lru.New[string, *Result](capacity)
	if err != nil {
		// lru.New only rejects non-positive sizes.
		return &Cache{}
	}
	return &Cache{entries: entries}
}

// Get returns the cached result for key and marks it recently used.
func (c *Cache) Get(key string) (*Result, bool) {
	if c.entries == nil {
		return nil, false
	}
	return c.entries.Get(key)
}

// Put stores result under key, evicting the least recently used entry when
// the cache is full.
func (c *Cache) Put(key string, result *Result) {
	if c.entries == nil {
		return
	}
	c.entries.Add(key, result)
}

// Len returns the number of cached results.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}

// Purge drops every cached result.
func (c *Cache) Purge() {
	if c.entries == nil {
		return
	}
	c.entries.Purge()
}
