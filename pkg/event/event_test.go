package event

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mergedPayload = `{
	"action": "closed",
	"pull_request": {
		"number": 42,
		"merged": true,
		"merge_commit_sha": "abc123def456",
		"head": {"ref": "sync/upstream-v1.1.0"}
	}
}`

func TestReadMergedPullRequest(t *testing.T) {
	pr := Read(strings.NewReader(mergedPayload))
	require.NotNil(t, pr)
	assert.True(t, pr.Merged)
	assert.Equal(t, 42, pr.Number)
	assert.Equal(t, "abc123def456", pr.MergeCommitSHA)
	assert.Equal(t, "sync/upstream-v1.1.0", pr.Head.Ref)
}

func TestReadSkipsMalformedPayload(t *testing.T) {
	assert.Nil(t, Read(strings.NewReader("{not json")))
	assert.Nil(t, Read(strings.NewReader("")))
}

func TestReadSkipsPayloadWithoutPullRequest(t *testing.T) {
	assert.Nil(t, Read(strings.NewReader(`{"action":"push","ref":"refs/heads/main"}`)))
}

func TestReadToleratesMissingOptionalFields(t *testing.T) {
	pr := Read(strings.NewReader(`{"pull_request":{"number":7,"merged":false}}`))
	require.NotNil(t, pr)
	assert.False(t, pr.Merged)
	assert.Empty(t, pr.MergeCommitSHA)
	assert.Empty(t, pr.Head.Ref)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event.json")
	require.NoError(t, os.WriteFile(path, []byte(mergedPayload), 0o644))

	pr := Load(path)
	require.NotNil(t, pr)
	assert.Equal(t, 42, pr.Number)
}

func TestLoadSkipsMissingFile(t *testing.T) {
	assert.Nil(t, Load(filepath.Join(t.TempDir(), "does-not-exist.json")))
}
