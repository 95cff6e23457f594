// Package fs provides file-based persistence for crawl state: the dedup
// cache and the run checkpoint, both written atomically (temp file, then
// rename) so an interrupted run never leaves a torn file behind.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/websum/websum"
)

// Ensure CheckpointStore implements websum.CheckpointStore at compile time.
var _ websum.CheckpointStore = (*CheckpointStore)(nil)

// CheckpointStore persists checkpoints as a single JSON file.
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a CheckpointStore writing to path.
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load reads the checkpoint file. Returns ENOTFOUND when no checkpoint
// exists and EINVALID when the file cannot be decoded.
func (s *CheckpointStore) Load(ctx context.Context) (*websum.Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, websum.Errorf(websum.ENOTFOUND, "no checkpoint at %s", s.path)
	}
	if err != nil {
		return nil, err
	}

	var cp websum.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, websum.Errorf(websum.EINVALID, "corrupt checkpoint %s: %v", s.path, err)
	}
	return &cp, nil
}

// Save writes the checkpoint atomically.
func (s *CheckpointStore) Save(ctx context.Context, cp *websum.Checkpoint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cp.Validate(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

// Clear removes the checkpoint file. A missing file is not an error.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// writeAtomic writes data to a temp file in the target directory and
// renames it into place. Rename within one filesystem is atomic, so
// readers see either the old file or the new one, never a mix.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
