// Package sync implements the pre-merge half of the release sync flow:
// find the newest upstream release, check whether it was already handled,
// and publish a sync branch plus pull request against the target repository.
package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/upstream-sync-bot/pkg/tags"
	"github.com/upstream-sync-bot/pkg/vcs"
)

// GitWorkspace is the subset of local git operations the syncer needs.
// *gitcmd.Git satisfies it.
type GitWorkspace interface {
	AddRemote(ctx context.Context, name, url string) error
	FetchTag(ctx context.Context, remote, tag string) error
	CheckoutNewBranch(ctx context.Context, branch, startRef string) error
	ForcePush(ctx context.Context, remote, branch string) error
}

type Outcome int

const (
	// OutcomeNoTags means the upstream repository has no stable semver
	// tags to sync. A normal, empty run.
	OutcomeNoTags Outcome = iota
	// OutcomeSkipped means the latest upstream tag already carries a sync
	// label on the target repository.
	OutcomeSkipped
	// OutcomeDryRun means a sync was due but suppressed by dry-run mode.
	OutcomeDryRun
	// OutcomeSynced means a branch was pushed and a pull request opened.
	OutcomeSynced
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoTags:
		return "no-tags"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeDryRun:
		return "dry-run"
	case OutcomeSynced:
		return "synced"
	default:
		return "unknown"
	}
}

type Result struct {
	Outcome     Outcome
	Tag         string
	Branch      string
	PullRequest *vcs.PullRequest
}

type Syncer struct {
	Client vcs.RepoClient
	Git    GitWorkspace

	TargetOwner   string
	TargetRepo    string
	UpstreamOwner string
	UpstreamRepo  string

	// ExtraLabels are attached to the pull request in addition to the
	// generic sync label and the per-tag idempotency label.
	ExtraLabels []string
	DryRun      bool
}

// upstreamRemote is the name given to the upstream repository in the
// local checkout of the target repository.
const upstreamRemote = "sync-upstream"

// Run executes one end-to-end sync attempt. Remote calls happen strictly
// in sequence: resolve the latest upstream tag, check the idempotency
// label, then publish the branch and pull request.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	latest, err := tags.FindLatest(ctx, s.Client, s.UpstreamOwner, s.UpstreamRepo)
	if err != nil {
		return Result{}, err
	}
	if latest == nil {
		return Result{Outcome: OutcomeNoTags}, nil
	}

	label := Label(latest.Name)
	processed, err := AlreadyProcessed(ctx, s.Client, s.TargetOwner, s.TargetRepo, label)
	if err != nil {
		return Result{}, err
	}
	if processed {
		slog.Info("upstream tag already processed, nothing to do",
			"tag", latest.Name, "label", label)
		return Result{Outcome: OutcomeSkipped, Tag: latest.Name}, nil
	}

	if s.DryRun {
		fmt.Printf("dry-run: would open sync pull request for %s from branch %s\n", latest.Name, label)
		return Result{Outcome: OutcomeDryRun, Tag: latest.Name, Branch: label}, nil
	}

	pr, err := s.publish(ctx, latest.Name)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Outcome:     OutcomeSynced,
		Tag:         latest.Name,
		Branch:      label,
		PullRequest: pr,
	}, nil
}

// publish pushes the sync branch and opens the pull request. The branch
// name embeds the tag, so the force-push only overwrites earlier attempts
// at the same tag; it never reuses a name across tags.
func (s *Syncer) publish(ctx context.Context, tagName string) (*vcs.PullRequest, error) {
	branch := Label(tagName)
	upstreamURL := fmt.Sprintf("https://github.com/%s/%s.git", s.UpstreamOwner, s.UpstreamRepo)

	if err := s.Git.AddRemote(ctx, upstreamRemote, upstreamURL); err != nil {
		return nil, fmt.Errorf("add upstream remote: %w", err)
	}
	if err := s.Git.FetchTag(ctx, upstreamRemote, tagName); err != nil {
		return nil, fmt.Errorf("fetch upstream tag %s: %w", tagName, err)
	}
	if err := s.Git.CheckoutNewBranch(ctx, branch, "FETCH_HEAD"); err != nil {
		return nil, fmt.Errorf("checkout sync branch %s: %w", branch, err)
	}
	if err := s.Git.ForcePush(ctx, "origin", branch); err != nil {
		return nil, fmt.Errorf("push sync branch %s: %w", branch, err)
	}
	slog.Info("pushed sync branch", "branch", branch, "tag", tagName)

	base, err := s.Client.DefaultBranch(ctx, s.TargetOwner, s.TargetRepo)
	if err != nil {
		return nil, err
	}

	upstream := s.UpstreamOwner + "/" + s.UpstreamRepo
	pr, err := s.Client.CreatePullRequest(ctx, s.TargetOwner, s.TargetRepo, vcs.NewPullRequest{
		Title: PullRequestTitle(tagName),
		Body:  RenderPullRequestBody(upstream, tagName),
		Head:  branch,
		Base:  base,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("opened sync pull request", "number", pr.Number, "url", pr.URL)

	// Labels go on after creation in a separate call. If this fails the
	// pull request still exists and the run counts as a success; the only
	// cost of a missing label is a possible duplicate PR on the next run.
	labels := append([]string{LabelSync, Label(tagName)}, s.ExtraLabels...)
	if err := s.Client.AddLabels(ctx, s.TargetOwner, s.TargetRepo, pr.Number, labels); err != nil {
		slog.Warn("pull request created but labeling failed", "number", pr.Number, "error", err)
	}
	return pr, nil
}
