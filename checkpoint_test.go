package websum_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/websum/websum"
)

func TestCheckpoint_Validate(t *testing.T) {
	t.Parallel()

	t.Run("valid checkpoint", func(t *testing.T) {
		t.Parallel()

		cp := websum.Checkpoint{RunID: "r1", Fingerprint: "abc", ProcessedCount: 3}
		assert.NoError(t, cp.Validate())
	})

	t.Run("missing fingerprint", func(t *testing.T) {
		t.Parallel()

		cp := websum.Checkpoint{RunID: "r1"}
		assert.Equal(t, websum.EINVALID, websum.ErrorCode(cp.Validate()))
	})

	t.Run("negative processed count", func(t *testing.T) {
		t.Parallel()

		cp := websum.Checkpoint{Fingerprint: "abc", ProcessedCount: -1}
		assert.Equal(t, websum.EINVALID, websum.ErrorCode(cp.Validate()))
	})
}
