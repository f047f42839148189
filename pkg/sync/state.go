package sync

import (
	"context"
	"fmt"

	"github.com/upstream-sync-bot/pkg/vcs"
)

// AlreadyProcessed reports whether the target repository already carries
// an issue or pull request labeled with the given sync label, in any state.
// The label is the durable idempotency marker: it survives branch deletion
// and closed-without-merge attempts.
//
// This check is not atomic with the publish that follows it. Two
// invocations racing through it can both see "not processed" and produce
// duplicate branches and pull requests for the same tag. The tool runs on
// a low-frequency schedule where that race is acceptable; callers needing
// strict exclusivity must serialize invocations externally, e.g. with a
// workflow concurrency group.
func AlreadyProcessed(ctx context.Context, client vcs.RepoClient, owner, repo, syncLabel string) (bool, error) {
	n, err := client.CountItemsWithLabel(ctx, owner, repo, syncLabel)
	if err != nil {
		return false, fmt.Errorf("check sync state for label %q: %w", syncLabel, err)
	}
	return n > 0, nil
}
