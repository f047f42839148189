package vcs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/go-github/v60/github"

	"github.com/upstream-sync-bot/pkg/ghretry"
)

// GitHubClient implements RepoClient against the GitHub REST API. Every
// call goes through the retry wrapper; tag listing additionally throttles
// between pages independent of any rate-limit signal.
type GitHubClient struct {
	client    *github.Client
	retry     ghretry.Config
	pageDelay time.Duration
}

func NewGitHubClient(client *github.Client, retry ghretry.Config, pageDelay time.Duration) *GitHubClient {
	return &GitHubClient{
		client:    client,
		retry:     retry,
		pageDelay: pageDelay,
	}
}

func (g *GitHubClient) ListTags(ctx context.Context, owner, repo string) ([]Tag, error) {
	var allTags []Tag
	opts := &github.ListOptions{PerPage: 100}

	for {
		type page struct {
			tags []*github.RepositoryTag
			resp *github.Response
		}
		p, err := ghretry.Do(ctx, g.retry, "list tags", func(ctx context.Context) (page, error) {
			tags, resp, err := g.client.Repositories.ListTags(ctx, owner, repo, opts)
			return page{tags: tags, resp: resp}, err
		})
		if err != nil {
			return nil, fmt.Errorf("list tags for %s/%s: %w", owner, repo, err)
		}
		for _, t := range p.tags {
			allTags = append(allTags, Tag{
				Name:   t.GetName(),
				Commit: t.GetCommit().GetSHA(),
			})
		}
		if p.resp.NextPage == 0 {
			break
		}
		opts.Page = p.resp.NextPage

		if g.pageDelay > 0 {
			timer := time.NewTimer(g.pageDelay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			}
		}
	}
	return allTags, nil
}

func (g *GitHubClient) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	r, err := ghretry.Do(ctx, g.retry, "get repository", func(ctx context.Context) (*github.Repository, error) {
		r, _, err := g.client.Repositories.Get(ctx, owner, repo)
		return r, err
	})
	if err != nil {
		return "", fmt.Errorf("get repository %s/%s: %w", owner, repo, err)
	}
	return r.GetDefaultBranch(), nil
}

// CountItemsWithLabel uses the issues listing, which covers pull requests
// as well: the issues API returns both, and labels attach to both through
// the same endpoint.
func (g *GitHubClient) CountItemsWithLabel(ctx context.Context, owner, repo, label string) (int, error) {
	count := 0
	opts := &github.IssueListByRepoOptions{
		Labels:      []string{label},
		State:       "all",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	for {
		type page struct {
			issues []*github.Issue
			resp   *github.Response
		}
		p, err := ghretry.Do(ctx, g.retry, "list labeled items", func(ctx context.Context) (page, error) {
			issues, resp, err := g.client.Issues.ListByRepo(ctx, owner, repo, opts)
			return page{issues: issues, resp: resp}, err
		})
		if err != nil {
			return 0, fmt.Errorf("list items labeled %q in %s/%s: %w", label, owner, repo, err)
		}
		count += len(p.issues)
		if p.resp.NextPage == 0 {
			break
		}
		opts.Page = p.resp.NextPage
	}
	return count, nil
}

func (g *GitHubClient) CreatePullRequest(ctx context.Context, owner, repo string, pr NewPullRequest) (*PullRequest, error) {
	created, err := ghretry.Do(ctx, g.retry, "create pull request", func(ctx context.Context) (*github.PullRequest, error) {
		created, _, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
			Title: &pr.Title,
			Body:  &pr.Body,
			Head:  &pr.Head,
			Base:  &pr.Base,
		})
		return created, err
	})
	if err != nil {
		return nil, fmt.Errorf("create pull request %q in %s/%s: %w", pr.Title, owner, repo, err)
	}
	return &PullRequest{
		Number: created.GetNumber(),
		URL:    created.GetHTMLURL(),
	}, nil
}

func (g *GitHubClient) AddLabels(ctx context.Context, owner, repo string, number int, labels []string) error {
	_, err := ghretry.Do(ctx, g.retry, "add labels", func(ctx context.Context) (struct{}, error) {
		_, _, err := g.client.Issues.AddLabelsToIssue(ctx, owner, repo, number, labels)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("add labels %v to %s/%s#%d: %w", labels, owner, repo, number, err)
	}
	return nil
}

func (g *GitHubClient) CreateAnnotatedTag(ctx context.Context, owner, repo string, tag AnnotatedTag) error {
	objType := "commit"
	created, err := ghretry.Do(ctx, g.retry, "create tag object", func(ctx context.Context) (*github.Tag, error) {
		created, _, err := g.client.Git.CreateTag(ctx, owner, repo, &github.Tag{
			Tag:     &tag.Name,
			Message: &tag.Message,
			Object: &github.GitObject{
				SHA:  &tag.CommitSHA,
				Type: &objType,
			},
		})
		return created, err
	})
	if err != nil {
		return fmt.Errorf("create tag object %q in %s/%s: %w", tag.Name, owner, repo, err)
	}

	ref := "refs/tags/" + tag.Name
	_, err = ghretry.Do(ctx, g.retry, "create tag reference", func(ctx context.Context) (struct{}, error) {
		_, _, err := g.client.Git.CreateRef(ctx, owner, repo, &github.Reference{
			Ref:    &ref,
			Object: &github.GitObject{SHA: created.SHA},
		})
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("create reference %q in %s/%s: %w", ref, owner, repo, err)
	}
	return nil
}
