package main

import (
	"context"
	"fmt"
	"io"

	"github.com/websum/websum"
)

var _ websum.ResultSink = (*printSink)(nil)

// printSink writes one line per successfully fetched page.
type printSink struct {
	out io.Writer
}

func (s *printSink) Process(ctx context.Context, task websum.URLTask, result *websum.FetchResult) error {
	_, err := fmt.Fprintln(s.out, task.URL)
	return err
}
