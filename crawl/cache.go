package crawl

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/websum/websum"
)

// Cache is the in-memory dedup cache: the record of every URL already
// attempted and its terminal status. It is backed by an optional
// websum.CacheStore for persistence across runs.
// It is safe for concurrent use by multiple goroutines.
type Cache struct {
	mu      sync.Mutex
	entries map[string]websum.CacheEntry
	store   websum.CacheStore
	dirty   bool
}

// NewCache creates a Cache backed by store. A nil store keeps the cache
// in-memory only.
func NewCache(store websum.CacheStore) *Cache {
	return &Cache{
		entries: make(map[string]websum.CacheEntry),
		store:   store,
	}
}

// Contains reports whether the normalized URL already has a terminal state.
func (c *Cache) Contains(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[url]
	return ok
}

// Mark records a terminal status for a URL. Marking is idempotent: an
// existing entry is only replaced by a newer one, so replaying a mark
// never rewinds the cache.
func (c *Cache) Mark(url string, status websum.CacheStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := websum.CacheEntry{URL: url, Status: status, Timestamp: time.Now().UTC()}
	if existing, ok := c.entries[url]; ok && existing.Timestamp.After(entry.Timestamp) {
		return
	}
	c.entries[url] = entry
	c.dirty = true
}

// Len returns the number of cached URLs.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Entries returns a snapshot of all entries, sorted by URL.
func (c *Cache) Entries() []websum.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := make([]websum.CacheEntry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries
}

// Load reads persisted entries from the store and merges them in,
// resolving conflicts by most-recent timestamp.
func (c *Cache) Load(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	entries, err := c.store.Load(ctx)
	if err != nil {
		return err
	}
	c.Merge(entries)
	return nil
}

// Merge folds externally supplied entries into the cache. When both sides
// have an entry for a URL, the most recent timestamp wins.
func (c *Cache) Merge(entries []websum.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, e := range entries {
		if e.Validate() != nil {
			continue
		}
		if existing, ok := c.entries[e.URL]; ok && !e.Timestamp.After(existing.Timestamp) {
			continue
		}
		c.entries[e.URL] = e
	}
}

// Persist writes the cache through to the store. It is a no-op when
// nothing changed since the last persist.
func (c *Cache) Persist(ctx context.Context) error {
	c.mu.Lock()
	if c.store == nil || !c.dirty {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if err := c.store.Save(ctx, c.Entries()); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.mu.Unlock()
	return nil
}

// Clear wipes the in-memory cache and the backing store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.entries = make(map[string]websum.CacheEntry)
	c.dirty = false
	c.mu.Unlock()

	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}
