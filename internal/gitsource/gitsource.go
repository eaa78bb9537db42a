// Package gitsource keeps a collection directory in step with a git remote.
package gitsource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
)

// Sync clones url into localPath if nothing is there yet, or pulls the latest
// changes into the existing clone. It reports whether anything changed.
func Sync(ctx context.Context, url, localPath string, log *slog.Logger) (changed bool, err error) {
	if log == nil {
		log = slog.Default()
	}

	_, err = os.Stat(localPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Info("cloning repository", "url", url, "path", localPath)
		_, err := git.PlainCloneContext(ctx, localPath, false, &git.CloneOptions{URL: url})
		if err != nil {
			return false, fmt.Errorf("failed to clone repo %s: %w", url, err)
		}
		return true, nil

	case err == nil:
		log.Info("pulling repository", "path", localPath)
		repo, err := git.PlainOpen(localPath)
		if err != nil {
			return false, fmt.Errorf("failed to open existing repo at %s: %w", localPath, err)
		}
		worktree, err := repo.Worktree()
		if err != nil {
			return false, fmt.Errorf("failed to get worktree for repo at %s: %w", localPath, err)
		}

		err = worktree.PullContext(ctx, &git.PullOptions{RemoteName: "origin"})
		if errors.Is(err, git.NoErrAlreadyUpToDate) {
			log.Debug("repository already up to date", "path", localPath)
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to pull changes for repo at %s: %w", localPath, err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("error checking path %s: %w", localPath, err)
	}
}

// LocalPath maps a remote URL to a directory under baseDir, e.g.
// https://github.com/me/cards.git and git@github.com:me/cards.git both map to
// baseDir/github.com/me/cards. Local paths and file:// URLs map to their
// base name.
func LocalPath(baseDir, repoURL string) (string, error) {
	parsed, err := url.Parse(repoURL)
	if err == nil {
		switch parsed.Scheme {
		case "https", "http", "ssh", "git":
			return filepath.Join(baseDir, parsed.Host, trimRepoPath(parsed.Path)), nil
		case "file":
			return filepath.Join(baseDir, trimRepoPath(filepath.Base(parsed.Path))), nil
		}
	}

	// scp-like syntax: user@host:path
	if at := strings.Index(repoURL, "@"); at >= 0 {
		if host, path, ok := strings.Cut(repoURL[at+1:], ":"); ok && host != "" && path != "" {
			return filepath.Join(baseDir, host, trimRepoPath(path)), nil
		}
	}

	if filepath.IsAbs(repoURL) {
		return filepath.Join(baseDir, trimRepoPath(filepath.Base(repoURL))), nil
	}
	return "", fmt.Errorf("could not parse git URL: %s", repoURL)
}

func trimRepoPath(p string) string {
	return strings.TrimSuffix(strings.Trim(p, "/"), ".git")
}
