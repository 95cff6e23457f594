package websum

import "context"

// FetchResult is the outcome of fetching a single URL. A result with a
// non-2xx status code is still a result, not an error; the caller's
// classifier decides what to do with it.
type FetchResult struct {
	// HTTP status code of the response. Implementations that cannot
	// observe a status code (e.g. browser automation) report 200 on a
	// successful render.
	StatusCode int

	// Raw page content.
	Content string

	// Links discovered on the page, resolved to absolute URLs.
	Links []string
}

// Fetcher retrieves pages. The orchestrator treats implementations as
// opaque, potentially slow, potentially failing collaborators.
type Fetcher interface {
	// Fetch retrieves the URL. The context bounds the request with the
	// configured per-page timeout and carries cancellation.
	Fetch(ctx context.Context, url string) (*FetchResult, error)

	// Close releases any resources held by the fetcher.
	// Must be called when the Fetcher is no longer needed.
	Close() error
}

// ResultSink consumes successful fetch results downstream of the
// orchestrator (content extraction, storage, and so on). The orchestrator
// forwards results and moves on; sink errors never influence scheduling.
type ResultSink interface {
	Process(ctx context.Context, task URLTask, result *FetchResult) error
}
