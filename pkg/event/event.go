// Package event decodes the GitHub Actions event payload consumed by the
// tag-on-merge action.
package event

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
)

// PullRequest is the slice of the pull_request event record the
// tag-on-merge action needs.
type PullRequest struct {
	Merged         bool   `json:"merged"`
	Number         int    `json:"number"`
	MergeCommitSHA string `json:"merge_commit_sha"`
	Head           struct {
		Ref string `json:"ref"`
	} `json:"head"`
}

type payload struct {
	PullRequest *PullRequest `json:"pull_request"`
}

// Load reads the event payload file named by GITHUB_EVENT_PATH (or an
// explicit path) and returns its pull request record. A missing file,
// malformed JSON, or a payload without a pull_request record all mean
// "not a merge event": the return is nil with no error, and the caller
// skips.
func Load(path string) *PullRequest {
	if path == "" {
		path = os.Getenv("GITHUB_EVENT_PATH")
	}
	if path == "" {
		slog.Info("no event payload path, skipping")
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		slog.Info("event payload unreadable, skipping", "path", path, "error", err)
		return nil
	}
	defer f.Close()

	return Read(f)
}

// Read decodes an event payload stream. See Load for the skip semantics.
func Read(r io.Reader) *PullRequest {
	var p payload
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		slog.Info("malformed event payload, skipping", "error", err)
		return nil
	}
	if p.PullRequest == nil {
		slog.Info("event payload has no pull_request record, skipping")
		return nil
	}
	return p.PullRequest
}
