package mock

import (
	"context"

	"github.com/websum/websum"
)

var _ websum.CacheStore = (*CacheStore)(nil)

// CacheStore is a mock implementation of websum.CacheStore.
type CacheStore struct {
	LoadFn  func(ctx context.Context) ([]websum.CacheEntry, error)
	SaveFn  func(ctx context.Context, entries []websum.CacheEntry) error
	ClearFn func(ctx context.Context) error
}

func (s *CacheStore) Load(ctx context.Context) ([]websum.CacheEntry, error) {
	return s.LoadFn(ctx)
}

func (s *CacheStore) Save(ctx context.Context, entries []websum.CacheEntry) error {
	return s.SaveFn(ctx, entries)
}

func (s *CacheStore) Clear(ctx context.Context) error {
	return s.ClearFn(ctx)
}
