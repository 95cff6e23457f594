package sqlite

import (
	"context"
	"time"

	"github.com/websum/websum"
)

// Compile-time interface verification.
var _ websum.CacheStore = (*CacheStore)(nil)

// CacheStore implements websum.CacheStore using SQLite. Timestamps are
// stored as Unix nanoseconds so the upsert's recency comparison is a plain
// integer comparison.
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// Load returns all cached entries ordered by URL.
func (s *CacheStore) Load(ctx context.Context) ([]websum.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, status, timestamp_ns
		FROM url_cache
		ORDER BY url
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []websum.CacheEntry{}
	for rows.Next() {
		var entry websum.CacheEntry
		var ns int64
		if err := rows.Scan(&entry.URL, &entry.Status, &ns); err != nil {
			return nil, err
		}
		entry.Timestamp = time.Unix(0, ns).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Save upserts all entries in a single transaction. An existing row is
// only replaced when the incoming timestamp is newer, matching the
// most-recent-wins merge semantics of the in-memory cache.
func (s *CacheStore) Save(ctx context.Context, entries []websum.CacheEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO url_cache (url, status, timestamp_ns)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET
			status = excluded.status,
			timestamp_ns = excluded.timestamp_ns
		WHERE excluded.timestamp_ns > url_cache.timestamp_ns
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, entry.URL, string(entry.Status), entry.Timestamp.UnixNano()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Clear removes all cached entries.
func (s *CacheStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM url_cache`)
	return err
}
