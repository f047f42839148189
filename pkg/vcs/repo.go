package vcs

import (
	"context"
	"fmt"
	"strings"
)

type Tag struct {
	Name   string
	Commit string
}

// NewPullRequest describes a pull request to open.
type NewPullRequest struct {
	Title string
	Body  string
	Head  string // source branch
	Base  string // destination branch
}

type PullRequest struct {
	Number int
	URL    string
}

// AnnotatedTag describes a tag object plus its reference.
type AnnotatedTag struct {
	Name      string
	Message   string
	CommitSHA string
}

type RepoClient interface {
	// ListTags returns all tags for the given repository, paging through
	// the full set.
	ListTags(ctx context.Context, owner, repo string) ([]Tag, error)

	// DefaultBranch returns the repository's default branch name.
	DefaultBranch(ctx context.Context, owner, repo string) (string, error)

	// CountItemsWithLabel returns how many issues or pull requests in the
	// repository carry the given label, regardless of state.
	CountItemsWithLabel(ctx context.Context, owner, repo, label string) (int, error)

	// CreatePullRequest opens a pull request and returns its number and URL.
	CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error)

	// AddLabels attaches labels to an issue or pull request.
	AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error

	// CreateAnnotatedTag creates a tag object pointing at tag.CommitSHA and
	// then the refs/tags reference for it.
	CreateAnnotatedTag(ctx context.Context, owner, repo string, tag AnnotatedTag) error
}

// ParseRepo splits an "owner/name" input, tolerating full GitHub URLs.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "github.com/")
	s = strings.TrimSuffix(s, ".git")
	s = strings.TrimSuffix(s, "/")

	parts := strings.Split(s, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot parse repository from %q (want owner/name)", s)
	}
	return parts[0], parts[1], nil
}
