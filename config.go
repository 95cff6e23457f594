package websum

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ResumeMode controls how a run treats an existing checkpoint.
type ResumeMode string

// Resume modes.
const (
	// ResumeDisabled ignores any existing checkpoint.
	ResumeDisabled ResumeMode = "disabled"

	// ResumeContinue rehydrates frontier, cache, and limiter state from a
	// compatible checkpoint before accepting new seeds.
	ResumeContinue ResumeMode = "continue"

	// ResumeClear deletes the checkpoint and cache and starts fresh.
	ResumeClear ResumeMode = "clear"
)

// Config holds every knob the orchestrator reads. It is resolved once at
// startup, validated once, and passed by value into each component's
// constructor; no component re-reads configuration during a run.
type Config struct {
	// MaxDepth is the maximum number of link hops from a seed.
	MaxDepth int

	// MaxPages caps the number of tasks processed in a run. 0 = unlimited.
	MaxPages int

	// Concurrency is the fixed size of the fetch worker pool. The default
	// is deliberately small to favor politeness over throughput.
	Concurrency int

	// BaseDelay is the minimum interval between requests to one domain.
	BaseDelay time.Duration

	// MaxDelay caps per-domain exponential backoff.
	MaxDelay time.Duration

	// BackoffFactor multiplies a domain's current delay after each
	// rate-limit response.
	BackoffFactor float64

	// MaxRetries bounds re-attempts of a task after transient failures.
	MaxRetries int

	// MaxDomainErrors is the number of consecutive rate-limit errors after
	// which a domain is permanently skipped.
	MaxDomainErrors int

	// MaxConsecutiveErrors is the global circuit breaker: this many
	// consecutive failures across all domains aborts the run.
	MaxConsecutiveErrors int

	// GlobalRPM is an optional cap on requests per minute across all
	// domains. 0 disables the global bucket. It composes with per-domain
	// delays; neither overrides the other.
	GlobalRPM int

	// FetchTimeout bounds a single fetch call.
	FetchTimeout time.Duration

	// RateLimitStatusCodes are treated as rate-limit responses and trigger
	// domain backoff instead of consuming the task's retry budget.
	RateLimitStatusCodes []int

	// CheckpointEvery triggers a checkpoint after this many processed
	// tasks. 0 disables the count trigger.
	CheckpointEvery int

	// CheckpointInterval triggers a checkpoint after this much elapsed
	// time. 0 disables the time trigger.
	CheckpointInterval time.Duration

	// Resume controls checkpoint handling at startup.
	Resume ResumeMode
}

// DefaultConfig returns the configuration used when the caller does not
// override anything.
func DefaultConfig() Config {
	return Config{
		MaxDepth:             2,
		MaxPages:             0,
		Concurrency:          2,
		BaseDelay:            time.Second,
		MaxDelay:             60 * time.Second,
		BackoffFactor:        2.0,
		MaxRetries:           3,
		MaxDomainErrors:      5,
		MaxConsecutiveErrors: 10,
		GlobalRPM:            0,
		FetchTimeout:         30 * time.Second,
		RateLimitStatusCodes: []int{429, 503},
		CheckpointEvery:      25,
		CheckpointInterval:   time.Minute,
		Resume:               ResumeDisabled,
	}
}

// Validate returns an error if the configuration is not runnable.
func (c Config) Validate() error {
	if c.MaxDepth < 0 {
		return Errorf(EINVALID, "max depth must not be negative")
	}
	if c.MaxPages < 0 {
		return Errorf(EINVALID, "page budget must not be negative")
	}
	if c.Concurrency < 1 {
		return Errorf(EINVALID, "concurrency must be at least 1")
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 {
		return Errorf(EINVALID, "delays must not be negative")
	}
	if c.MaxDelay > 0 && c.MaxDelay < c.BaseDelay {
		return Errorf(EINVALID, "max delay must not be below base delay")
	}
	if c.BackoffFactor < 1 {
		return Errorf(EINVALID, "backoff factor must be at least 1")
	}
	if c.MaxRetries < 0 {
		return Errorf(EINVALID, "max retries must not be negative")
	}
	if c.MaxDomainErrors < 1 {
		return Errorf(EINVALID, "max domain errors must be at least 1")
	}
	if c.MaxConsecutiveErrors < 1 {
		return Errorf(EINVALID, "max consecutive errors must be at least 1")
	}
	if c.GlobalRPM < 0 {
		return Errorf(EINVALID, "global RPM must not be negative")
	}
	if c.FetchTimeout <= 0 {
		return Errorf(EINVALID, "fetch timeout must be positive")
	}
	switch c.Resume {
	case ResumeDisabled, ResumeContinue, ResumeClear:
	default:
		return Errorf(EINVALID, "unknown resume mode %q", c.Resume)
	}
	return nil
}

// Fingerprint hashes the scheduling-relevant fields. A checkpoint written
// under a different fingerprint is not resumable: restoring a frontier
// built with, say, a different depth limit would violate this run's
// invariants. Resume mode itself is excluded so continuing a run does not
// invalidate its own checkpoint.
func (c Config) Fingerprint() string {
	codes := append([]int(nil), c.RateLimitStatusCodes...)
	sort.Ints(codes)

	var b strings.Builder
	fmt.Fprintf(&b, "depth=%d;pages=%d;conc=%d;", c.MaxDepth, c.MaxPages, c.Concurrency)
	fmt.Fprintf(&b, "base=%s;max=%s;factor=%g;", c.BaseDelay, c.MaxDelay, c.BackoffFactor)
	fmt.Fprintf(&b, "retries=%d;domerr=%d;globerr=%d;", c.MaxRetries, c.MaxDomainErrors, c.MaxConsecutiveErrors)
	fmt.Fprintf(&b, "rpm=%d;timeout=%s;codes=%v", c.GlobalRPM, c.FetchTimeout, codes)

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}
