package gitsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalPath(t *testing.T) {
	testCases := []struct {
		url  string
		want string
	}{
		{"https://github.com/me/cards.git", "repos/github.com/me/cards"},
		{"http://example.com/team/decks", "repos/example.com/team/decks"},
		{"ssh://git@github.com/me/cards.git", "repos/github.com/me/cards"},
		{"git@github.com:me/cards.git", "repos/github.com/me/cards"},
		{"file:///srv/git/cards.git", "repos/cards"},
		{"/srv/git/cards.git", "repos/cards"},
	}

	for _, tc := range testCases {
		t.Run(tc.url, func(t *testing.T) {
			got, err := LocalPath("repos", tc.url)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tc.want), got)
		})
	}

	_, err := LocalPath("repos", "not a url")
	assert.Error(t, err)
}

func commitFile(t *testing.T, repo *git.Repository, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(filepath.Join(dir, name)), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	_, err = wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
}

func TestSyncClonesThenPulls(t *testing.T) {
	ctx := context.Background()
	origin := t.TempDir()
	repo, err := git.PlainInit(origin, false)
	require.NoError(t, err)
	commitFile(t, repo, origin, "geo/a1_basic.md", "# Front\nQ\n# Back\nA\n")

	local := filepath.Join(t.TempDir(), "clone")

	changed, err := Sync(ctx, origin, local, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(local, "geo", "a1_basic.md"))

	changed, err = Sync(ctx, origin, local, nil)
	require.NoError(t, err)
	assert.False(t, changed)

	commitFile(t, repo, origin, "geo/b2_basic.md", "# Front\nQ2\n# Back\nA2\n")
	changed, err = Sync(ctx, origin, local, nil)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.FileExists(t, filepath.Join(local, "geo", "b2_basic.md"))
}
