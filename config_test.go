package websum_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/websum/websum"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	t.Parallel()

	assert.NoError(t, websum.DefaultConfig().Validate())
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*websum.Config)
	}{
		{"negative max depth", func(c *websum.Config) { c.MaxDepth = -1 }},
		{"negative page budget", func(c *websum.Config) { c.MaxPages = -1 }},
		{"zero concurrency", func(c *websum.Config) { c.Concurrency = 0 }},
		{"negative base delay", func(c *websum.Config) { c.BaseDelay = -time.Second }},
		{"max delay below base delay", func(c *websum.Config) { c.MaxDelay = c.BaseDelay / 2 }},
		{"backoff factor below one", func(c *websum.Config) { c.BackoffFactor = 0.5 }},
		{"negative retries", func(c *websum.Config) { c.MaxRetries = -1 }},
		{"zero domain error threshold", func(c *websum.Config) { c.MaxDomainErrors = 0 }},
		{"zero global error threshold", func(c *websum.Config) { c.MaxConsecutiveErrors = 0 }},
		{"negative global RPM", func(c *websum.Config) { c.GlobalRPM = -1 }},
		{"zero fetch timeout", func(c *websum.Config) { c.FetchTimeout = 0 }},
		{"unknown resume mode", func(c *websum.Config) { c.Resume = "sometimes" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := websum.DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, websum.EINVALID, websum.ErrorCode(err))
		})
	}
}

func TestConfig_Fingerprint(t *testing.T) {
	t.Parallel()

	t.Run("stable for equal configs", func(t *testing.T) {
		t.Parallel()

		a := websum.DefaultConfig()
		b := websum.DefaultConfig()

		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("changes with scheduling fields", func(t *testing.T) {
		t.Parallel()

		base := websum.DefaultConfig()

		depth := base
		depth.MaxDepth = 5
		assert.NotEqual(t, base.Fingerprint(), depth.Fingerprint())

		delay := base
		delay.BaseDelay = 2 * time.Second
		assert.NotEqual(t, base.Fingerprint(), delay.Fingerprint())
	})

	t.Run("ignores resume mode", func(t *testing.T) {
		t.Parallel()

		a := websum.DefaultConfig()
		b := websum.DefaultConfig()
		b.Resume = websum.ResumeContinue

		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})

	t.Run("ignores status code order", func(t *testing.T) {
		t.Parallel()

		a := websum.DefaultConfig()
		a.RateLimitStatusCodes = []int{429, 503}
		b := websum.DefaultConfig()
		b.RateLimitStatusCodes = []int{503, 429}

		assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	})
}
