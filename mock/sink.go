package mock

import (
	"context"

	"github.com/websum/websum"
)

var _ websum.ResultSink = (*ResultSink)(nil)

// ResultSink is a mock implementation of websum.ResultSink.
type ResultSink struct {
	ProcessFn func(ctx context.Context, task websum.URLTask, result *websum.FetchResult) error
}

func (s *ResultSink) Process(ctx context.Context, task websum.URLTask, result *websum.FetchResult) error {
	return s.ProcessFn(ctx, task, result)
}
