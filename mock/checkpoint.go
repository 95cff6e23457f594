package mock

import (
	"context"

	"github.com/websum/websum"
)

var _ websum.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore is a mock implementation of websum.CheckpointStore.
type CheckpointStore struct {
	LoadFn  func(ctx context.Context) (*websum.Checkpoint, error)
	SaveFn  func(ctx context.Context, cp *websum.Checkpoint) error
	ClearFn func(ctx context.Context) error
}

func (s *CheckpointStore) Load(ctx context.Context) (*websum.Checkpoint, error) {
	return s.LoadFn(ctx)
}

func (s *CheckpointStore) Save(ctx context.Context, cp *websum.Checkpoint) error {
	return s.SaveFn(ctx, cp)
}

func (s *CheckpointStore) Clear(ctx context.Context) error {
	return s.ClearFn(ctx)
}
