// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish pushes a rendered site to a static-pages branch. The site
// is copied into a fresh staging repository, committed as a single
// snapshot, and force-pushed, so the branch always holds exactly the
// latest run.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/pdiddy/learnsite/pkg/types"
)

const (
	defaultBranch      = "main"
	defaultAuthorName  = "learnsite"
	defaultAuthorEmail = "learnsite@users.noreply.github.com"
	remoteName         = "origin"
	markerFile         = ".nojekyll"
	commitTimeLayout   = "2006-01-02 15:04:05"
)

// ErrNoCredential is returned when an HTTP(S) remote has no token.
var ErrNoCredential = errors.New("no push credential: set the github-token secret or GITHUB_TOKEN")

// GitPublisher stages a site directory and force-pushes it with go-git.
type GitPublisher struct {
	cfg types.PublishConfig

	// StagingDir is the parent for the temporary staging repository. Empty
	// means the system temp directory.
	StagingDir string

	now func() time.Time
}

// NewGitPublisher returns a publisher for cfg, filling default branch and
// author identity.
func NewGitPublisher(cfg types.PublishConfig) *GitPublisher {
	if cfg.Branch == "" {
		cfg.Branch = defaultBranch
	}
	if cfg.AuthorName == "" {
		cfg.AuthorName = defaultAuthorName
	}
	if cfg.AuthorEmail == "" {
		cfg.AuthorEmail = defaultAuthorEmail
	}
	return &GitPublisher{cfg: cfg, now: time.Now}
}

// CommitMessage returns the deploy commit message for t.
func CommitMessage(t time.Time) string {
	return "Auto-deploy: Update Interactive Learning System - " + t.Format(commitTimeLayout)
}

// Publish copies every .html file under siteDir (keeping its relative
// layout), the configured README, and a .nojekyll marker into a new
// repository, commits, and force-pushes to the configured branch. siteDir
// itself is never modified.
func (p *GitPublisher) Publish(ctx context.Context, siteDir string) error {
	if p.cfg.RemoteURL == "" {
		return fmt.Errorf("publish remote is not configured")
	}
	auth, err := p.auth()
	if err != nil {
		return err
	}

	staging, err := os.MkdirTemp(p.StagingDir, "learnsite-deploy-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	n, err := p.stage(siteDir, staging)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "staged site for publish", "files", n, "remote", redact(p.cfg.RemoteURL), "branch", p.cfg.Branch)

	branch := plumbing.NewBranchReferenceName(p.cfg.Branch)
	repo, err := git.PlainInitWithOptions(staging, &git.PlainInitOptions{
		InitOptions: git.InitOptions{DefaultBranch: branch},
	})
	if err != nil {
		return fmt.Errorf("initializing staging repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("opening worktree: %w", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("staging files: %w", err)
	}

	when := p.now()
	hash, err := wt.Commit(CommitMessage(when), &git.CommitOptions{
		Author: &object.Signature{Name: p.cfg.AuthorName, Email: p.cfg.AuthorEmail, When: when},
	})
	if err != nil {
		return fmt.Errorf("committing site: %w", err)
	}

	if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{Name: remoteName, URLs: []string{p.cfg.RemoteURL}}); err != nil {
		return fmt.Errorf("adding remote: %w", err)
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+%s:%s", branch, branch))
	err = repo.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{refSpec},
		Force:      true,
		Auth:       auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pushing to %s: %w", redact(p.cfg.RemoteURL), err)
	}

	slog.InfoContext(ctx, "published site", "commit", hash.String()[:8], "branch", p.cfg.Branch)
	return nil
}

// auth returns token basic auth for HTTP(S) remotes. Local and file
// remotes need none.
func (p *GitPublisher) auth() (transport.AuthMethod, error) {
	if !isHTTPRemote(p.cfg.RemoteURL) {
		return nil, nil
	}
	if p.cfg.Token == "" {
		return nil, ErrNoCredential
	}
	return &http.BasicAuth{Username: "token", Password: p.cfg.Token}, nil
}

// stage copies the publishable files into dst and returns how many were
// written.
func (p *GitPublisher) stage(siteDir, dst string) (int, error) {
	n := 0
	err := filepath.WalkDir(siteDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != siteDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".html") {
			return nil
		}
		rel, err := filepath.Rel(siteDir, path)
		if err != nil {
			return err
		}
		n++
		return copyFile(path, filepath.Join(dst, rel))
	})
	if err != nil {
		return 0, fmt.Errorf("copying site %s: %w", siteDir, err)
	}

	if p.cfg.ReadmePath != "" {
		if _, err := os.Stat(p.cfg.ReadmePath); err == nil {
			if err := copyFile(p.cfg.ReadmePath, filepath.Join(dst, "README.md")); err != nil {
				return 0, fmt.Errorf("copying readme: %w", err)
			}
			n++
		}
	}

	if err := os.WriteFile(filepath.Join(dst, markerFile), nil, 0o644); err != nil {
		return 0, fmt.Errorf("writing %s: %w", markerFile, err)
	}
	return n + 1, nil
}

func copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func isHTTPRemote(url string) bool {
	return strings.HasPrefix(url, "https://") || strings.HasPrefix(url, "http://")
}

// redact strips userinfo from a remote URL for logging.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		if slash := strings.Index(rest, "/"); slash < 0 || at < slash {
			rest = rest[at+1:]
		}
	}
	return scheme + "://" + rest
}
