package condition

import "sync"

// Cache memoizes parse results by exact source text, including failures, so a
// broken condition is reported once per schema instead of once per keystroke.
// It is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	cond Condition
	err  error
}

// NewCache returns an empty parse cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]cacheEntry)}
}

// Parse returns the cached result for src, parsing on first use.
func (c *Cache) Parse(src string) (Condition, error) {
	c.mu.RLock()
	entry, ok := c.entries[src]
	c.mu.RUnlock()
	if ok {
		return entry.cond, entry.err
	}

	cond, err := Parse(src)

	c.mu.Lock()
	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[src] = cacheEntry{cond: cond, err: err}
	c.mu.Unlock()
	return cond, err
}

// Len reports the number of distinct sources seen.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}
