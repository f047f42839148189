package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

type Config struct {
	TargetRepo   string   `yaml:"target-repo"`
	UpstreamRepo string   `yaml:"upstream-repo"`
	Labels       []string `yaml:"labels"` // extra labels for sync PRs
	Token        string   `yaml:"-"`
	DryRun       bool     `yaml:"-"`
	Verbose      bool     `yaml:"-"`

	Retry  Retry       `yaml:"retry"`
	Git    GitIdentity `yaml:"git"`
	Linter Linter      `yaml:"linter"`
}

type Retry struct {
	MaxAttempts int `yaml:"max-attempts"`
	BaseDelayMs int `yaml:"base-delay-ms"`
	// PageDelayMs throttles successive tag-list page fetches.
	PageDelayMs int `yaml:"page-delay-ms"`
}

type GitIdentity struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type Linter struct {
	Repo    string `yaml:"repo"` // owner/name
	Version string `yaml:"version"`
	Asset   string `yaml:"asset"`
	SHA256  string `yaml:"sha256"`
	BinDir  string `yaml:"bin-dir"`
	Name    string `yaml:"name"`
}

func Default() *Config {
	return &Config{
		Retry: Retry{
			MaxAttempts: 5,
			BaseDelayMs: 1000,
			PageDelayMs: 500,
		},
		Git: GitIdentity{
			Name:  "github-actions[bot]",
			Email: "41898282+github-actions[bot]@users.noreply.github.com",
		},
		Linter: Linter{
			BinDir: "bin",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func MergeFlags(cfg *Config, flags *pflag.FlagSet) *Config {
	if v, err := flags.GetString("target-repo"); err == nil && v != "" {
		cfg.TargetRepo = v
	}
	if v, err := flags.GetString("upstream-repo"); err == nil && v != "" {
		cfg.UpstreamRepo = v
	}
	if v, err := flags.GetString("github-token"); err == nil && v != "" {
		cfg.Token = v
	}
	if v, err := flags.GetStringSlice("label"); err == nil && len(v) > 0 {
		cfg.Labels = append(cfg.Labels, v...)
	}
	if v, err := flags.GetBool("dry-run"); err == nil {
		cfg.DryRun = v
	}
	if v, err := flags.GetBool("verbose"); err == nil {
		cfg.Verbose = v
	}
	return cfg
}

// BaseDelay returns the retry base delay as a duration.
func (r Retry) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMs) * time.Millisecond
}

// PageDelay returns the inter-page throttle as a duration.
func (r Retry) PageDelay() time.Duration {
	return time.Duration(r.PageDelayMs) * time.Millisecond
}

// RequireToken fails when no API credential was provided. Credential
// management itself is the calling workflow's job; we only check presence
// before making any remote call.
func (c *Config) RequireToken() error {
	if c.Token == "" {
		return fmt.Errorf("a GitHub token is required (set --github-token or GITHUB_TOKEN)")
	}
	return nil
}
