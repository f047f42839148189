package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/go-github/v60/github"
	"github.com/spf13/cobra"

	"github.com/upstream-sync-bot/pkg/config"
	"github.com/upstream-sync-bot/pkg/event"
	"github.com/upstream-sync-bot/pkg/ghretry"
	"github.com/upstream-sync-bot/pkg/gitcmd"
	"github.com/upstream-sync-bot/pkg/installer"
	"github.com/upstream-sync-bot/pkg/output"
	"github.com/upstream-sync-bot/pkg/publish"
	"github.com/upstream-sync-bot/pkg/sync"
	"github.com/upstream-sync-bot/pkg/vcs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "syncbot",
		Short:         "CI automations that keep a repository in step with its upstream releases",
		Long:          `syncbot detects new upstream release tags, opens synchronization pull requests, converts merged sync pull requests into repository tags, and installs the pinned linter used by the build.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", ".syncbot.yml", "Path to config file")
	pf.String("github-token", os.Getenv("GITHUB_TOKEN"), "GitHub token for API access")
	pf.String("target-repo", os.Getenv("GITHUB_REPOSITORY"), "Target repo (owner/name) receiving sync branches and tags")
	pf.Bool("verbose", false, "Enable debug logging")

	root.AddCommand(newSyncCmd(), newTagMergedCmd(), newInstallLintCmd())
	return root
}

// loadConfig resolves config file + flags and installs the logger. A
// missing config file is fine; flags and defaults carry the run.
func loadConfig(cmd *cobra.Command) *config.Config {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = config.Default()
	}
	cfg = config.MergeFlags(cfg, cmd.Flags())

	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return cfg
}

func newRepoClient(cfg *config.Config) *vcs.GitHubClient {
	gh := github.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}
	return vcs.NewGitHubClient(gh, ghretry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay(),
	}, cfg.Retry.PageDelay())
}

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Open a pull request for the newest upstream release tag",
		RunE:  runSync,
	}
	cmd.Flags().String("upstream-repo", "", "Upstream repo (owner/name) to track for releases")
	cmd.Flags().StringSlice("label", nil, "Additional labels to add to the sync pull request")
	cmd.Flags().Bool("dry-run", false, "Report what would be synced without pushing anything")
	cmd.Flags().String("workdir", ".", "Checkout of the target repository")
	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	targetOwner, targetRepo, err := vcs.ParseRepo(cfg.TargetRepo)
	if err != nil {
		return fmt.Errorf("target repo: %w", err)
	}
	upstreamOwner, upstreamRepo, err := vcs.ParseRepo(cfg.UpstreamRepo)
	if err != nil {
		return fmt.Errorf("upstream repo: %w", err)
	}
	workdir, _ := cmd.Flags().GetString("workdir")

	syncer := &sync.Syncer{
		Client:        newRepoClient(cfg),
		Git:           gitcmd.New(workdir, cfg.Git.Name, cfg.Git.Email),
		TargetOwner:   targetOwner,
		TargetRepo:    targetRepo,
		UpstreamOwner: upstreamOwner,
		UpstreamRepo:  upstreamRepo,
		ExtraLabels:   cfg.Labels,
		DryRun:        cfg.DryRun,
	}

	res, err := syncer.Run(cmd.Context())
	if err != nil {
		return err
	}

	out := output.New()
	out.Set("outcome", res.Outcome.String())
	if res.Tag != "" {
		out.Set("tag", res.Tag)
	}
	if res.PullRequest != nil {
		out.Set("pull-request-url", res.PullRequest.URL)
	}

	switch res.Outcome {
	case sync.OutcomeSynced:
		fmt.Printf("opened %s for upstream release %s\n", res.PullRequest.URL, res.Tag)
	case sync.OutcomeSkipped:
		fmt.Printf("upstream release %s already processed\n", res.Tag)
	case sync.OutcomeNoTags:
		fmt.Println("upstream has no stable release tags")
	}
	return nil
}

func newTagMergedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag-merged",
		Short: "Tag the repository after a sync pull request merges",
		RunE:  runTagMerged,
	}
	cmd.Flags().String("event-path", "", "Event payload file (defaults to GITHUB_EVENT_PATH)")
	return cmd
}

func runTagMerged(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	owner, repo, err := vcs.ParseRepo(cfg.TargetRepo)
	if err != nil {
		return fmt.Errorf("target repo: %w", err)
	}

	eventPath, _ := cmd.Flags().GetString("event-path")
	pr := event.Load(eventPath)

	tag, err := publish.TagMerged(cmd.Context(), newRepoClient(cfg), owner, repo, pr)
	if err != nil {
		return err
	}
	if tag == "" {
		fmt.Println("not a merged sync pull request, nothing to do")
		return nil
	}

	output.New().Set("tag", tag)
	fmt.Printf("created tag %s\n", tag)
	return nil
}

func newInstallLintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install-lint",
		Short: "Install the pinned linter binary after verifying its checksum",
		RunE:  runInstallLint,
	}
	cmd.Flags().String("linter-repo", "", "Linter repo (owner/name), overrides config")
	cmd.Flags().String("linter-version", "", "Release tag to install, overrides config")
	cmd.Flags().String("asset", "", "Release asset name, overrides config")
	cmd.Flags().String("sha256", "", "Expected sha256 of the asset, overrides config")
	cmd.Flags().String("bin-dir", "", "Install destination, overrides config")
	return cmd
}

func runInstallLint(cmd *cobra.Command, args []string) error {
	cfg := loadConfig(cmd)

	if v, _ := cmd.Flags().GetString("linter-repo"); v != "" {
		cfg.Linter.Repo = v
	}
	if v, _ := cmd.Flags().GetString("linter-version"); v != "" {
		cfg.Linter.Version = v
	}
	if v, _ := cmd.Flags().GetString("asset"); v != "" {
		cfg.Linter.Asset = v
	}
	if v, _ := cmd.Flags().GetString("sha256"); v != "" {
		cfg.Linter.SHA256 = v
	}
	if v, _ := cmd.Flags().GetString("bin-dir"); v != "" {
		cfg.Linter.BinDir = v
	}

	owner, repo, err := vcs.ParseRepo(cfg.Linter.Repo)
	if err != nil {
		return fmt.Errorf("linter repo: %w", err)
	}

	// The token is optional here: release assets of public repos download
	// without one.
	gh := github.NewClient(nil)
	if cfg.Token != "" {
		gh = gh.WithAuthToken(cfg.Token)
	}

	path, err := installer.New(gh).Install(cmd.Context(), installer.Options{
		Owner:     owner,
		Repo:      repo,
		Tag:       cfg.Linter.Version,
		AssetName: cfg.Linter.Asset,
		SHA256:    cfg.Linter.SHA256,
		BinDir:    cfg.Linter.BinDir,
		Name:      cfg.Linter.Name,
	})
	if err != nil {
		return err
	}

	fmt.Printf("installed %s\n", path)
	return nil
}
