package websum

import "context"

// CacheStore persists dedup cache entries between runs. Implementations
// must write atomically so a crash never leaves a partially written cache.
type CacheStore interface {
	// Load returns all persisted entries. A missing backing file or an
	// empty table yields an empty slice, not an error.
	Load(ctx context.Context) ([]CacheEntry, error)

	// Save durably replaces the persisted entries.
	Save(ctx context.Context, entries []CacheEntry) error

	// Clear removes all persisted entries.
	Clear(ctx context.Context) error
}
