package translate

import (
	"sort"
	"sync"
	"time"
)

// CacheEntry is a remote translation kept in memory.
type CacheEntry struct {
	Text     string    `json:"text"`
	StoredAt time.Time `json:"stored_at"`
}

// Cache holds remote translations keyed by (trimmed source text, language).
// Entries never expire; Clear drops them all. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[key]CacheEntry
	hits    int
	misses  int
	now     func() time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[key]CacheEntry), now: time.Now}
}

// Get looks up text in lang and counts the hit or miss.
func (c *Cache) Get(text, lang string) (CacheEntry, bool) {
	k := keyFor(text, lang)
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[k]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return entry, ok
}

// Peek looks up text in lang without touching the counters.
func (c *Cache) Peek(text, lang string) (CacheEntry, bool) {
	k := keyFor(text, lang)
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[k]
	return entry, ok
}

// Put stores a translation.
func (c *Cache) Put(text, lang, translated string) {
	k := keyFor(text, lang)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[key]CacheEntry)
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	c.entries[k] = CacheEntry{Text: translated, StoredAt: now()}
}

// Clear drops every entry. Counters are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[key]CacheEntry)
	c.mu.Unlock()
}

// Len reports the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedItem is one entry in a cache listing.
type CachedItem struct {
	Source string `json:"source"`
	Lang   string `json:"lang"`
	CacheEntry
}

// Items lists entries sorted by language then source text.
func (c *Cache) Items() []CachedItem {
	c.mu.RLock()
	out := make([]CachedItem, 0, len(c.entries))
	for k, entry := range c.entries {
		out = append(out, CachedItem{Source: k.text, Lang: k.lang, CacheEntry: entry})
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Lang != out[j].Lang {
			return out[i].Lang < out[j].Lang
		}
		return out[i].Source < out[j].Source
	})
	return out
}

func (c *Cache) counters() (int, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
