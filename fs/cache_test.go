package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websum/websum"
	"github.com/websum/websum/fs"
)

func TestCacheStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	store := fs.NewCacheStore(path)

	now := time.Now().UTC().Truncate(time.Second)
	entries := []websum.CacheEntry{
		{URL: "https://example.com/b", Status: websum.StatusSkipped, Timestamp: now},
		{URL: "https://example.com/a", Status: websum.StatusSuccess, Timestamp: now},
	}

	require.NoError(t, store.Save(context.Background(), entries))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Entries come back sorted by URL.
	assert.Equal(t, "https://example.com/a", loaded[0].URL)
	assert.Equal(t, websum.StatusSuccess, loaded[0].Status)
	assert.Equal(t, "https://example.com/b", loaded[1].URL)
	assert.Equal(t, websum.StatusSkipped, loaded[1].Status)
}

func TestCacheStore_Load_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(filepath.Join(t.TempDir(), "cache.json"))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestCacheStore_Load_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))

	_, err := fs.NewCacheStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Equal(t, websum.EINVALID, websum.ErrorCode(err))
}

func TestCacheStore_Save_RejectsInvalidEntries(t *testing.T) {
	t.Parallel()

	store := fs.NewCacheStore(filepath.Join(t.TempDir(), "cache.json"))

	err := store.Save(context.Background(), []websum.CacheEntry{
		{URL: "https://example.com/a", Status: "bogus"},
	})
	require.Error(t, err)
	assert.Equal(t, websum.EINVALID, websum.ErrorCode(err))
}

func TestCacheStore_Clear(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	store := fs.NewCacheStore(path)

	require.NoError(t, store.Clear(context.Background()), "missing file is fine")

	require.NoError(t, store.Save(context.Background(), []websum.CacheEntry{
		{URL: "https://example.com/a", Status: websum.StatusSuccess, Timestamp: time.Now()},
	}))
	require.NoError(t, store.Clear(context.Background()))
	assert.NoFileExists(t, path)
}
