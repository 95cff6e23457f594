package websum

import (
	"net/url"
	"sort"
	"strings"
	"time"
)

// URLTask is a unit of crawl work: a discovered URL tagged with the depth
// at which it was found. Tasks are created on discovery and destroyed when
// the URL reaches a terminal state in the dedup cache.
type URLTask struct {
	URL          string    `json:"url"`
	Depth        int       `json:"depth"`
	Domain       string    `json:"domain"`
	RetryCount   int       `json:"retryCount"`
	DiscoveredAt time.Time `json:"discoveredAt"`
}

// NewTask creates a task for a discovered URL. The URL is normalized and
// the domain is derived from its host. Returns EINVALID for URLs that
// cannot be parsed or for a negative depth.
func NewTask(rawURL string, depth int) (URLTask, error) {
	if depth < 0 {
		return URLTask{}, Errorf(EINVALID, "task depth must not be negative")
	}

	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return URLTask{}, err
	}

	u, _ := url.Parse(normalized)

	return URLTask{
		URL:          normalized,
		Depth:        depth,
		Domain:       u.Host,
		DiscoveredAt: time.Now().UTC(),
	}, nil
}

// NormalizeURL canonicalizes a URL for deduplication: the fragment is
// stripped, scheme and host are lower-cased, default ports are dropped,
// and query parameters are sorted by key. URLs differing only in these
// respects map to the same normalized form.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", Errorf(EINVALID, "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", Errorf(EINVALID, "URL %q has no host", rawURL)
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	// Drop default ports so http://host:80/ and http://host/ dedupe together.
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.RawQuery != "" {
		u.RawQuery = canonicalQuery(u.RawQuery)
	}

	return u.String(), nil
}

// canonicalQuery re-encodes a query string with parameters sorted by key.
// Unparseable queries are kept as-is rather than dropped.
func canonicalQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return rawQuery
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			if v != "" {
				b.WriteByte('=')
				b.WriteString(url.QueryEscape(v))
			}
		}
	}
	return b.String()
}

// CacheStatus is the terminal outcome recorded for a URL. A URL in a
// terminal status is never re-attempted within the same cache lifetime.
type CacheStatus string

// Terminal cache statuses.
const (
	StatusSuccess          CacheStatus = "success"
	StatusRetriesExhausted CacheStatus = "failed_retryable_exhausted"
	StatusFailedPermanent  CacheStatus = "failed_permanent"
	StatusSkipped          CacheStatus = "skipped"
)

// Valid reports whether s is a known terminal status.
func (s CacheStatus) Valid() bool {
	switch s {
	case StatusSuccess, StatusRetriesExhausted, StatusFailedPermanent, StatusSkipped:
		return true
	}
	return false
}

// CacheEntry records the terminal outcome of a single normalized URL.
type CacheEntry struct {
	URL       string      `json:"url"`
	Status    CacheStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
}

// Validate returns an error if the entry contains invalid fields.
func (e *CacheEntry) Validate() error {
	if e.URL == "" {
		return Errorf(EINVALID, "cache entry URL required")
	}
	if !e.Status.Valid() {
		return Errorf(EINVALID, "unknown cache status %q", e.Status)
	}
	return nil
}
