package websum

import (
	"context"
	"time"
)

// QueuedTask is the persisted form of a frontier entry.
type QueuedTask struct {
	URL        string `json:"url"`
	Depth      int    `json:"depth"`
	RetryCount int    `json:"retryCount,omitempty"`
}

// DomainState is the rate limiter's bookkeeping for a single host. It is
// owned exclusively by the rate limiter and snapshotted into checkpoints.
type DomainState struct {
	Domain            string        `json:"domain"`
	LastRequest       time.Time     `json:"lastRequest"`
	CurrentDelay      time.Duration `json:"currentDelay"`
	CooldownUntil     time.Time     `json:"cooldownUntil"`
	ConsecutiveErrors int           `json:"consecutiveErrors"`
	Skipped           bool          `json:"skipped"`
}

// Checkpoint is a durable snapshot of in-progress crawl state. Cache
// entries are persisted separately through the CacheStore; CacheRef
// records which cache backend the checkpoint belongs with.
type Checkpoint struct {
	RunID          string        `json:"runId"`
	Fingerprint    string        `json:"fingerprint"`
	ProcessedCount int           `json:"processedCount"`
	Frontier       []QueuedTask  `json:"frontier"`
	Domains        []DomainState `json:"domains,omitempty"`
	CacheRef       string        `json:"cacheRef,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
}

// Validate returns an error if the checkpoint contains invalid fields.
func (c *Checkpoint) Validate() error {
	if c.Fingerprint == "" {
		return Errorf(EINVALID, "checkpoint fingerprint required")
	}
	if c.ProcessedCount < 0 {
		return Errorf(EINVALID, "checkpoint processed count must not be negative")
	}
	return nil
}

// CheckpointStore persists checkpoints. Implementations must write
// atomically so an interrupted save never corrupts the previous snapshot.
type CheckpointStore interface {
	// Load returns the most recent checkpoint.
	// Returns ENOTFOUND if no checkpoint exists.
	Load(ctx context.Context) (*Checkpoint, error)

	// Save durably replaces the checkpoint.
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Clear removes the checkpoint.
	Clear(ctx context.Context) error
}
