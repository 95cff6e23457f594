package mock

import (
	"context"

	"github.com/websum/websum"
)

var _ websum.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of websum.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (*websum.FetchResult, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*websum.FetchResult, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	if f.CloseFn == nil {
		return nil
	}
	return f.CloseFn()
}
