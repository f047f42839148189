// Package tags resolves the latest semver release tag of a repository.
package tags

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/upstream-sync-bot/pkg/vcs"
)

// VersionTag is a repository tag whose name parsed as a semantic version.
type VersionTag struct {
	Name    string
	Version *semver.Version
	Commit  string
}

// FindLatest returns the highest semver tag of owner/repo, or nil when the
// repository has no tags or none that parse as a semantic version. Both
// empty outcomes are normal, not errors.
func FindLatest(ctx context.Context, client vcs.RepoClient, owner, repo string) (*VersionTag, error) {
	all, err := client.ListTags(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("resolve latest tag of %s/%s: %w", owner, repo, err)
	}
	if len(all) == 0 {
		slog.Info("repository has no tags", "repo", owner+"/"+repo)
		return nil, nil
	}

	valid := filterParseSort(all)
	for i := range valid {
		// Pre-release tags participate in ordering but are never chosen
		// as "latest": a sync should track stable releases only.
		if valid[i].Version.Prerelease() == "" {
			return &valid[i], nil
		}
	}

	slog.Info("repository has no stable semver tags", "repo", owner+"/"+repo, "tags_seen", len(all))
	return nil, nil
}

// filterParseSort keeps the tags that parse as semantic versions (a leading
// "v" is tolerated) and returns them in descending precedence order. Tags
// that do not parse are dropped silently.
func filterParseSort(all []vcs.Tag) []VersionTag {
	var valid []VersionTag
	for _, t := range all {
		v, err := semver.NewVersion(t.Name)
		if err != nil {
			slog.Debug("skipping non-semver tag", "tag", t.Name)
			continue
		}
		valid = append(valid, VersionTag{
			Name:    t.Name,
			Version: v,
			Commit:  t.Commit,
		})
	}

	slices.SortFunc(valid, func(a, b VersionTag) int {
		return b.Version.Compare(a.Version) // descending
	})
	return valid
}
