package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websum/websum"
	wshttp "github.com/websum/websum/http"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	t.Run("returns content and links for an HTML page", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte(`<html><body><a href="/next">Next</a></body></html>`))
		}))
		defer srv.Close()

		f := wshttp.NewFetcher()
		result, err := f.Fetch(context.Background(), srv.URL+"/")

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.Contains(t, result.Content, "Next")
		assert.Equal(t, []string{srv.URL + "/next"}, result.Links)
	})

	t.Run("sends the configured user agent", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
		}))
		defer srv.Close()

		f := wshttp.NewFetcher(wshttp.WithUserAgent("test-agent/1.0"))
		_, err := f.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Equal(t, "test-agent/1.0", gotUA)
	})

	t.Run("non-2xx responses are results, not errors", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		f := wshttp.NewFetcher()
		result, err := f.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Equal(t, http.StatusTooManyRequests, result.StatusCode)
		assert.Empty(t, result.Links)
	})

	t.Run("no links extracted from non-HTML content", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"a": "<a href='/x'>not html</a>"}`))
		}))
		defer srv.Close()

		f := wshttp.NewFetcher()
		result, err := f.Fetch(context.Background(), srv.URL)

		require.NoError(t, err)
		assert.Empty(t, result.Links)
	})

	t.Run("invalid URL is EINVALID", func(t *testing.T) {
		t.Parallel()

		f := wshttp.NewFetcher()
		_, err := f.Fetch(context.Background(), "http://exa mple.com/\x00")

		require.Error(t, err)
		assert.Equal(t, websum.EINVALID, websum.ErrorCode(err))
	})

	t.Run("canceled context aborts the request", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := wshttp.NewFetcher()
		_, err := f.Fetch(ctx, srv.URL)
		require.Error(t, err)
	})

	t.Run("close is a no-op", func(t *testing.T) {
		t.Parallel()

		assert.NoError(t, wshttp.NewFetcher().Close())
	})
}
