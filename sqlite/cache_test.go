package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websum/websum"
	"github.com/websum/websum/sqlite"
)

func TestCacheStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	store := sqlite.NewCacheStore(MustOpenDB(t))
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Microsecond)
	err := store.Save(ctx, []websum.CacheEntry{
		{URL: "https://example.com/b", Status: websum.StatusFailedPermanent, Timestamp: now},
		{URL: "https://example.com/a", Status: websum.StatusSuccess, Timestamp: now},
	})
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Ordered by URL.
	assert.Equal(t, "https://example.com/a", loaded[0].URL)
	assert.Equal(t, websum.StatusSuccess, loaded[0].Status)
	assert.True(t, now.Equal(loaded[0].Timestamp))
	assert.Equal(t, "https://example.com/b", loaded[1].URL)
	assert.Equal(t, websum.StatusFailedPermanent, loaded[1].Status)
}

func TestCacheStore_Load_Empty(t *testing.T) {
	t.Parallel()

	store := sqlite.NewCacheStore(MustOpenDB(t))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCacheStore_Save_NewerTimestampWins(t *testing.T) {
	t.Parallel()

	store := sqlite.NewCacheStore(MustOpenDB(t))
	ctx := context.Background()

	now := time.Now().UTC()
	url := "https://example.com/a"

	require.NoError(t, store.Save(ctx, []websum.CacheEntry{
		{URL: url, Status: websum.StatusRetriesExhausted, Timestamp: now},
	}))

	// Newer entry replaces.
	require.NoError(t, store.Save(ctx, []websum.CacheEntry{
		{URL: url, Status: websum.StatusSuccess, Timestamp: now.Add(time.Minute)},
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, websum.StatusSuccess, loaded[0].Status)

	// Older entry does not rewind.
	require.NoError(t, store.Save(ctx, []websum.CacheEntry{
		{URL: url, Status: websum.StatusSkipped, Timestamp: now.Add(-time.Minute)},
	}))

	loaded, err = store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, websum.StatusSuccess, loaded[0].Status)
}

func TestCacheStore_Save_RejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	store := sqlite.NewCacheStore(MustOpenDB(t))

	err := store.Save(context.Background(), []websum.CacheEntry{
		{URL: "https://example.com/a", Status: "bogus", Timestamp: time.Now()},
	})
	require.Error(t, err)
	assert.Equal(t, websum.EINVALID, websum.ErrorCode(err))

	// The transaction rolled back; nothing was written.
	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCacheStore_Clear(t *testing.T) {
	t.Parallel()

	store := sqlite.NewCacheStore(MustOpenDB(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []websum.CacheEntry{
		{URL: "https://example.com/a", Status: websum.StatusSuccess, Timestamp: time.Now()},
	}))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
