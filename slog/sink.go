package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/websum/websum"
)

// Ensure LoggingSink implements websum.ResultSink.
var _ websum.ResultSink = (*LoggingSink)(nil)

// LoggingSink wraps a ResultSink with processing logs.
type LoggingSink struct {
	next   websum.ResultSink
	logger *slog.Logger
}

// NewLoggingSink creates a new LoggingSink.
func NewLoggingSink(next websum.ResultSink, logger *slog.Logger) *LoggingSink {
	return &LoggingSink{next: next, logger: logger}
}

// Process delegates to the wrapped sink and logs the operation.
func (s *LoggingSink) Process(ctx context.Context, task websum.URLTask, result *websum.FetchResult) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("process",
			"url", task.URL,
			"depth", task.Depth,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Process(ctx, task, result)
}
