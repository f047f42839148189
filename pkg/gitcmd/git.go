// Package gitcmd shells out to the git client for the handful of
// operations the sync flow needs. Identity is passed per invocation with
// -c flags so nothing touches global or repository config; concurrent
// invocations in a shared environment cannot race on it.
package gitcmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

type Git struct {
	dir   string
	name  string
	email string

	// run is an exec seam for tests.
	run func(ctx context.Context, dir string, args ...string) ([]byte, error)
}

func New(dir, userName, userEmail string) *Git {
	return &Git{
		dir:   dir,
		name:  userName,
		email: userEmail,
		run:   runGit,
	}
}

func runGit(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// identityArgs scopes user.name/user.email to a single git invocation.
func (g *Git) identityArgs() []string {
	var args []string
	if g.name != "" {
		args = append(args, "-c", "user.name="+g.name)
	}
	if g.email != "" {
		args = append(args, "-c", "user.email="+g.email)
	}
	return args
}

func (g *Git) git(ctx context.Context, args ...string) error {
	full := append(g.identityArgs(), args...)
	slog.Debug("running git", "args", strings.Join(args, " "))
	_, err := g.run(ctx, g.dir, full...)
	return err
}

func (g *Git) AddRemote(ctx context.Context, name, url string) error {
	return g.git(ctx, "remote", "add", name, url)
}

// FetchTag fetches a single tag object from the remote rather than the
// full tag list.
func (g *Git) FetchTag(ctx context.Context, remote, tag string) error {
	return g.git(ctx, "fetch", "--no-tags", remote, "refs/tags/"+tag)
}

func (g *Git) CheckoutNewBranch(ctx context.Context, branch, startRef string) error {
	return g.git(ctx, "checkout", "-b", branch, startRef)
}

func (g *Git) ForcePush(ctx context.Context, remote, branch string) error {
	return g.git(ctx, "push", "--force", remote, branch)
}
