// Package cache is the server's in-memory TTL cache, on patrickmn/go-cache.
// It holds rendered /table responses and the open viewer registry.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache wraps go-cache.
type Cache struct {
	store *gocache.Cache
}

// New creates a cache whose entries expire after defaultTTL and are swept
// every cleanupInterval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, cleanupInterval),
	}
}

// OnEvicted sets a function called when an entry expires or is deleted.
// It is not called by Clear.
func (c *Cache) OnEvicted(fn func(key string, value any)) {
	c.store.OnEvicted(fn)
}

// Get retrieves a value from the cache.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores a value with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// SetWithTTL stores a value with a custom TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Add stores a value only if key is not present or has expired.
func (c *Cache) Add(key string, value any) error {
	return c.store.Add(key, value, gocache.DefaultExpiration)
}

// Touch restarts the TTL of an existing entry. It reports whether the entry
// was present.
func (c *Cache) Touch(key string) bool {
	v, ok := c.store.Get(key)
	if !ok {
		return false
	}
	return c.store.Replace(key, v, gocache.DefaultExpiration) == nil
}

// Delete removes a value, calling the eviction function if one is set.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Keys returns the keys of unexpired entries.
func (c *Cache) Keys() []string {
	items := c.store.Items()
	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	return keys
}

// Clear removes all items without calling the eviction function.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of items, expired ones included until the
// next sweep.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}
