package crawl

import (
	"context"
	"io"
	"log/slog"

	"github.com/websum/websum"
)

// Checkpointer wraps a CheckpointStore with the orchestrator's recovery
// policy: a missing, unreadable, or incompatible checkpoint downgrades to
// a logged warning and the run starts fresh. Checkpoint trouble is never
// fatal.
type Checkpointer struct {
	store  websum.CheckpointStore
	logger *slog.Logger
}

// NewCheckpointer creates a Checkpointer. A nil logger discards logs.
func NewCheckpointer(store websum.CheckpointStore, logger *slog.Logger) *Checkpointer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Checkpointer{store: store, logger: logger}
}

// Load returns the stored checkpoint if it exists and its fingerprint
// matches the current configuration. Anything else (absent, corrupt, or
// written under different settings) returns nil.
func (c *Checkpointer) Load(ctx context.Context, fingerprint string) *websum.Checkpoint {
	if c.store == nil {
		return nil
	}

	cp, err := c.store.Load(ctx)
	if err != nil {
		if websum.ErrorCode(err) != websum.ENOTFOUND {
			c.logger.Warn("ignoring unreadable checkpoint", "error", err)
		}
		return nil
	}
	if err := cp.Validate(); err != nil {
		c.logger.Warn("ignoring invalid checkpoint", "error", err)
		return nil
	}
	if cp.Fingerprint != fingerprint {
		c.logger.Warn("ignoring checkpoint from a different configuration",
			"checkpoint", cp.Fingerprint,
			"current", fingerprint,
		)
		return nil
	}
	return cp
}

// Save persists a checkpoint. Failures are logged and swallowed: the run
// continues with in-memory state rather than aborting.
func (c *Checkpointer) Save(ctx context.Context, cp *websum.Checkpoint) {
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, cp); err != nil {
		c.logger.Warn("checkpoint write failed, continuing with in-memory state", "error", err)
	}
}

// Clear deletes the checkpoint.
func (c *Checkpointer) Clear(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Clear(ctx)
}
