package crawl_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websum/websum"
	"github.com/websum/websum/crawl"
)

func limiterConfig(base, max time.Duration, factor float64, maxErrors int) websum.Config {
	cfg := websum.DefaultConfig()
	cfg.BaseDelay = base
	cfg.MaxDelay = max
	cfg.BackoffFactor = factor
	cfg.MaxDomainErrors = maxErrors
	return cfg
}

func TestLimiter_Wait(t *testing.T) {
	t.Parallel()

	t.Run("first request is not delayed", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 5))

		begin := time.Now()
		require.NoError(t, l.Wait(context.Background(), "example.com"))
		assert.Less(t, time.Since(begin), 100*time.Millisecond)
	})

	t.Run("spaces consecutive requests to one domain", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(80*time.Millisecond, time.Minute, 2, 5))

		begin := time.Now()
		require.NoError(t, l.Wait(context.Background(), "example.com"))
		require.NoError(t, l.Wait(context.Background(), "example.com"))
		assert.GreaterOrEqual(t, time.Since(begin), 80*time.Millisecond)
	})

	t.Run("domains are independent", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 5))

		begin := time.Now()
		require.NoError(t, l.Wait(context.Background(), "a.example.com"))
		require.NoError(t, l.Wait(context.Background(), "b.example.com"))
		assert.Less(t, time.Since(begin), 100*time.Millisecond)
	})

	t.Run("returns when context is canceled mid-wait", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(10*time.Second, time.Minute, 2, 5))
		require.NoError(t, l.Wait(context.Background(), "example.com"))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		begin := time.Now()
		err := l.Wait(ctx, "example.com")
		require.Error(t, err)
		assert.Less(t, time.Since(begin), time.Second)
	})

	t.Run("global cap applies across domains", func(t *testing.T) {
		t.Parallel()

		cfg := limiterConfig(0, 0, 2, 5)
		cfg.GlobalRPM = 600 // one request per 100ms
		l := crawl.NewLimiter(cfg)

		begin := time.Now()
		require.NoError(t, l.Wait(context.Background(), "a.example.com"))
		require.NoError(t, l.Wait(context.Background(), "b.example.com"))
		require.NoError(t, l.Wait(context.Background(), "c.example.com"))
		assert.GreaterOrEqual(t, time.Since(begin), 150*time.Millisecond)
	})
}

func TestLimiter_Observe_Backoff(t *testing.T) {
	t.Parallel()

	t.Run("waits after rate limits start at the base delay", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(100*time.Millisecond, time.Minute, 2, 10))
		ctx := context.Background()

		require.NoError(t, l.Wait(ctx, "example.com"))
		l.Observe("example.com", crawl.OutcomeRateLimited)

		// The first post-rate-limit wait is the cooldown of one base
		// delay; the grown delay spaces requests only after that.
		begin := time.Now()
		require.NoError(t, l.Wait(ctx, "example.com"))
		first := time.Since(begin)
		assert.GreaterOrEqual(t, first, 90*time.Millisecond)
		assert.Less(t, first, 170*time.Millisecond)

		l.Observe("example.com", crawl.OutcomeRateLimited)

		begin = time.Now()
		require.NoError(t, l.Wait(ctx, "example.com"))
		second := time.Since(begin)
		assert.GreaterOrEqual(t, second, 180*time.Millisecond)
		assert.Less(t, second, 320*time.Millisecond)
	})

	t.Run("rate limits grow the delay geometrically", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(2*time.Second, time.Minute, 2, 10))

		// Each rate limit cools the domain down for the current delay and
		// then doubles it: observed waits 2s, 4s, 8s.
		l.Observe("example.com", crawl.OutcomeRateLimited)
		states := l.Snapshot()
		require.Len(t, states, 1)
		assert.Equal(t, 4*time.Second, states[0].CurrentDelay)
		assert.InDelta(t, 2*time.Second, time.Until(states[0].CooldownUntil), float64(500*time.Millisecond))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		states = l.Snapshot()
		assert.Equal(t, 8*time.Second, states[0].CurrentDelay)
		assert.InDelta(t, 4*time.Second, time.Until(states[0].CooldownUntil), float64(500*time.Millisecond))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		states = l.Snapshot()
		assert.Equal(t, 16*time.Second, states[0].CurrentDelay)
		assert.Equal(t, 3, states[0].ConsecutiveErrors)
	})

	t.Run("delay growth is capped at the maximum", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(2*time.Second, 5*time.Second, 2, 10))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		l.Observe("example.com", crawl.OutcomeRateLimited)
		l.Observe("example.com", crawl.OutcomeRateLimited)

		states := l.Snapshot()
		require.Len(t, states, 1)
		assert.Equal(t, 5*time.Second, states[0].CurrentDelay)
	})

	t.Run("success resets delay and error count", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 10))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		l.Observe("example.com", crawl.OutcomeRateLimited)
		l.Observe("example.com", crawl.OutcomeSuccess)

		states := l.Snapshot()
		require.Len(t, states, 1)
		assert.Equal(t, time.Second, states[0].CurrentDelay)
		assert.Zero(t, states[0].ConsecutiveErrors)
		assert.False(t, states[0].Skipped)
	})

	t.Run("domain is skipped past the error threshold", func(t *testing.T) {
		t.Parallel()

		l := crawl.NewLimiter(limiterConfig(time.Millisecond, time.Minute, 2, 2))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		l.Observe("example.com", crawl.OutcomeRateLimited)
		assert.False(t, l.Skipped("example.com"))

		l.Observe("example.com", crawl.OutcomeRateLimited)
		assert.True(t, l.Skipped("example.com"))
		assert.False(t, l.Skipped("other.example.com"))
	})
}

func TestLimiter_SnapshotRestore(t *testing.T) {
	t.Parallel()

	src := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 2))
	src.Observe("a.example.com", crawl.OutcomeRateLimited)
	src.Observe("b.example.com", crawl.OutcomeRateLimited)
	src.Observe("b.example.com", crawl.OutcomeRateLimited)
	src.Observe("b.example.com", crawl.OutcomeRateLimited)

	states := src.Snapshot()
	require.Len(t, states, 2)
	assert.Equal(t, "a.example.com", states[0].Domain)
	assert.Equal(t, "b.example.com", states[1].Domain)

	dst := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 2))
	dst.Restore(states)

	assert.False(t, dst.Skipped("a.example.com"))
	assert.True(t, dst.Skipped("b.example.com"))

	restored := dst.Snapshot()
	require.Len(t, restored, 2)
	assert.Equal(t, states[0].CurrentDelay, restored[0].CurrentDelay)
	assert.Equal(t, states[1].ConsecutiveErrors, restored[1].ConsecutiveErrors)
}

func TestLimiter_Restore_ClampsDelayToBase(t *testing.T) {
	t.Parallel()

	l := crawl.NewLimiter(limiterConfig(time.Second, time.Minute, 2, 5))
	l.Restore([]websum.DomainState{
		{Domain: "example.com", CurrentDelay: time.Millisecond},
	})

	states := l.Snapshot()
	require.Len(t, states, 1)
	assert.Equal(t, time.Second, states[0].CurrentDelay)
}
