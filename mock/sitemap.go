package mock

import (
	"context"

	"github.com/websum/websum"
)

var _ websum.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of websum.SitemapService.
type SitemapService struct {
	DiscoverURLsFn func(ctx context.Context, baseURL string, filter *websum.URLFilter) ([]string, error)
}

func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter *websum.URLFilter) ([]string, error) {
	return s.DiscoverURLsFn(ctx, baseURL, filter)
}
