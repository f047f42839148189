// Package installer downloads a pinned linter release asset, verifies its
// checksum, and installs it into a bin directory.
package installer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/go-github/v60/github"
)

type Options struct {
	Owner     string
	Repo      string
	Tag       string // release tag to install, e.g. "v1.55.2"
	AssetName string // exact release asset filename
	SHA256    string // expected hex digest of the asset
	BinDir    string // destination directory
	Name      string // installed binary name; defaults to AssetName
}

func (o *Options) validate() error {
	switch {
	case o.Owner == "" || o.Repo == "":
		return fmt.Errorf("linter repository is required")
	case o.Tag == "":
		return fmt.Errorf("linter version tag is required")
	case o.AssetName == "":
		return fmt.Errorf("linter asset name is required")
	case o.BinDir == "":
		return fmt.Errorf("bin directory is required")
	}
	if _, err := hex.DecodeString(o.SHA256); err != nil || len(o.SHA256) != sha256.Size*2 {
		return fmt.Errorf("checksum %q is not a sha256 hex digest", o.SHA256)
	}
	return nil
}

type Installer struct {
	gh   *github.Client
	http *http.Client
}

func New(gh *github.Client) *Installer {
	return &Installer{
		gh:   gh,
		http: &http.Client{Timeout: 60 * time.Second},
	}
}

// Install resolves the pinned release asset, downloads it, verifies the
// checksum, and moves it into place with the executable bit set. It
// returns the installed path. Download failures are not retried; the pin
// is exact, so a retry would fetch the same bytes.
func (i *Installer) Install(ctx context.Context, opts Options) (string, error) {
	if err := opts.validate(); err != nil {
		return "", err
	}

	url, err := i.assetURL(ctx, opts)
	if err != nil {
		return "", err
	}

	name := opts.Name
	if name == "" {
		name = opts.AssetName
	}
	dest := filepath.Join(opts.BinDir, name)

	if err := os.MkdirAll(opts.BinDir, 0o755); err != nil {
		return "", fmt.Errorf("create bin directory: %w", err)
	}

	tmp, err := os.CreateTemp(opts.BinDir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpName)
	}()

	if err := i.download(ctx, url, opts.SHA256, tmp); err != nil {
		return "", err
	}

	if err := tmp.Chmod(0o755); err != nil {
		return "", fmt.Errorf("mark binary executable: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", fmt.Errorf("install binary: %w", err)
	}

	slog.Info("installed linter", "path", dest, "tag", opts.Tag)
	return dest, nil
}

func (i *Installer) assetURL(ctx context.Context, opts Options) (string, error) {
	rel, _, err := i.gh.Repositories.GetReleaseByTag(ctx, opts.Owner, opts.Repo, opts.Tag)
	if err != nil {
		return "", fmt.Errorf("get release %s of %s/%s: %w", opts.Tag, opts.Owner, opts.Repo, err)
	}
	for _, a := range rel.Assets {
		if a.GetName() == opts.AssetName {
			if a.GetBrowserDownloadURL() == "" {
				return "", fmt.Errorf("asset %q has no download URL", opts.AssetName)
			}
			return a.GetBrowserDownloadURL(), nil
		}
	}
	return "", fmt.Errorf("release %s has no asset named %q", opts.Tag, opts.AssetName)
}

// download streams the asset into w while hashing it, then compares the
// digest. On mismatch nothing is kept.
func (i *Installer) download(ctx context.Context, url, wantSHA256 string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := i.http.Do(req)
	if err != nil {
		return fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("download asset: status=%s body=%s", resp.Status, strings.TrimSpace(string(body)))
	}

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(w, h), resp.Body); err != nil {
		return fmt.Errorf("stream asset: %w", err)
	}

	got := hex.EncodeToString(h.Sum(nil))
	if !strings.EqualFold(got, wantSHA256) {
		return fmt.Errorf("checksum mismatch: got %s, want %s", got, wantSHA256)
	}
	return nil
}
