package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLabel(t *testing.T) {
	assert.Equal(t, "sync/upstream-v1.2.3", Label("v1.2.3"))
	assert.Equal(t, "sync/upstream-2.0.0", Label("2.0.0"))
}

func TestTagFromBranch(t *testing.T) {
	tag, ok := TagFromBranch("sync/upstream-v3.4.5")
	assert.True(t, ok)
	assert.Equal(t, "v3.4.5", tag)

	// Tags containing dashes survive extraction intact.
	tag, ok = TagFromBranch("sync/upstream-v2.0.0-rc.1")
	assert.True(t, ok)
	assert.Equal(t, "v2.0.0-rc.1", tag)

	_, ok = TagFromBranch("feature/unrelated")
	assert.False(t, ok)

	_, ok = TagFromBranch("sync/upstream-")
	assert.False(t, ok)

	_, ok = TagFromBranch("")
	assert.False(t, ok)
}

func TestLabelRoundTripsThroughBranchName(t *testing.T) {
	tag, ok := TagFromBranch(Label("v9.8.7"))
	assert.True(t, ok)
	assert.Equal(t, "v9.8.7", tag)
}
