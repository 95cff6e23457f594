// Package http provides the HTTP-based fetch collaborator and sitemap
// seed discovery. The fetcher is suitable for static sites; sites that
// need JavaScript rendering use the rod package instead.
package http

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/websum/websum"
	"github.com/websum/websum/goquery"
)

// DefaultFetchTimeout is the default timeout for HTTP requests, used when
// the caller's context carries no deadline of its own.
const DefaultFetchTimeout = 30 * time.Second

// DefaultUserAgent identifies the crawler to servers.
const DefaultUserAgent = "websum/1.0 (+https://github.com/websum/websum)"

// maxBodyBytes caps how much of a response body is read. Documentation
// pages beyond this size are truncated, not failed.
const maxBodyBytes = 10 << 20 // 10 MiB

// Ensure Fetcher implements websum.Fetcher at compile time.
var _ websum.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages over plain HTTP. Non-2xx responses are returned
// as results with their status code, not as errors, so the caller's
// classifier decides between retry, backoff, and giving up. Links are
// extracted from HTML bodies of successful responses.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	userAgent string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the fallback timeout for HTTP requests.
// Defaults to DefaultFetchTimeout if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithClient overrides the underlying HTTP client, e.g. for tests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   DefaultFetchTimeout,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: f.timeout}
	}
	return f
}

// Fetch retrieves the URL and, for successful HTML responses, the
// outgoing links found on the page.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*websum.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, websum.Errorf(websum.EINVALID, "invalid request URL %q: %v", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	result := &websum.FetchResult{
		StatusCode: resp.StatusCode,
		Content:    string(body),
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && isHTML(resp.Header.Get("Content-Type")) {
		links, err := goquery.ExtractLinks(result.Content, url)
		if err == nil {
			result.Links = links
		}
	}

	return result, nil
}

// Close releases resources. For the HTTP fetcher this is a no-op since
// http.Client doesn't require explicit cleanup.
func (f *Fetcher) Close() error {
	return nil
}

// isHTML reports whether a Content-Type header denotes an HTML document.
// An absent header is assumed to be HTML, which is what doc sites serve.
func isHTML(contentType string) bool {
	if contentType == "" {
		return true
	}
	return strings.Contains(contentType, "text/html") ||
		strings.Contains(contentType, "application/xhtml+xml")
}
