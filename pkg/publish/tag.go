// Package publish turns a merged sync pull request into a repository tag.
package publish

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/upstream-sync-bot/pkg/event"
	"github.com/upstream-sync-bot/pkg/sync"
	"github.com/upstream-sync-bot/pkg/vcs"
)

// TagMerged creates the annotated tag corresponding to a merged sync pull
// request: the tag name is extracted from the head branch, the tag object
// points at the merge commit. It returns the created tag name, or "" when
// the event is not a merge and nothing was done.
//
// A merged PR whose head branch does not match the sync branch pattern, or
// whose merge commit SHA is absent, means the action ran in an unsupported
// context; both are fatal.
func TagMerged(ctx context.Context, client vcs.RepoClient, owner, repo string, pr *event.PullRequest) (string, error) {
	if pr == nil {
		return "", nil
	}
	if !pr.Merged {
		slog.Info("pull request is not merged, nothing to tag", "number", pr.Number)
		return "", nil
	}

	tagName, ok := sync.TagFromBranch(pr.Head.Ref)
	if !ok {
		return "", fmt.Errorf("branch %q is not a sync branch; this action only handles sync/upstream-* merges", pr.Head.Ref)
	}
	if pr.MergeCommitSHA == "" {
		return "", fmt.Errorf("merge event for #%d carries no merge commit SHA", pr.Number)
	}

	err := client.CreateAnnotatedTag(ctx, owner, repo, vcs.AnnotatedTag{
		Name:      tagName,
		Message:   fmt.Sprintf("Release %s, synchronized from upstream (PR #%d)", tagName, pr.Number),
		CommitSHA: pr.MergeCommitSHA,
	})
	if err != nil {
		return "", err
	}

	slog.Info("created tag from merged sync pull request",
		"tag", tagName, "commit", pr.MergeCommitSHA, "number", pr.Number)
	return tagName, nil
}
