package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sort"
	"time"

	"github.com/websum/websum"
)

// Ensure CacheStore implements websum.CacheStore at compile time.
var _ websum.CacheStore = (*CacheStore)(nil)

// CacheStore persists the dedup cache as a JSON file mapping each
// normalized URL to its terminal status and timestamp.
type CacheStore struct {
	path string
}

// NewCacheStore creates a CacheStore writing to path.
func NewCacheStore(path string) *CacheStore {
	return &CacheStore{path: path}
}

// cacheRecord is the on-disk value for one URL.
type cacheRecord struct {
	Status    websum.CacheStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
}

// Load reads all persisted entries. A missing file yields an empty slice.
func (s *CacheStore) Load(ctx context.Context) ([]websum.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []websum.CacheEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	var records map[string]cacheRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, websum.Errorf(websum.EINVALID, "corrupt cache file %s: %v", s.path, err)
	}

	entries := make([]websum.CacheEntry, 0, len(records))
	for url, rec := range records {
		entries = append(entries, websum.CacheEntry{
			URL:       url,
			Status:    rec.Status,
			Timestamp: rec.Timestamp,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].URL < entries[j].URL })
	return entries, nil
}

// Save atomically replaces the cache file with the given entries.
func (s *CacheStore) Save(ctx context.Context, entries []websum.CacheEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make(map[string]cacheRecord, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
		records[e.URL] = cacheRecord{Status: e.Status, Timestamp: e.Timestamp}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// Clear removes the cache file. A missing file is not an error.
func (s *CacheStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
