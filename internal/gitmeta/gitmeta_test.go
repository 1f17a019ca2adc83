package gitmeta

import (
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*Repo, string) {
	t.Helper()

	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fs, "index.html", []byte("<html></html>"), 0o644))
	_, err = wt.Add("index.html")
	require.NoError(t, err)

	hash, err := wt.Commit("Add landing page\n\nLonger body of the message.", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Dana Developer",
			Email: "dana@example.com",
			When:  time.Date(2026, 7, 14, 9, 30, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)

	return &Repo{repo: repo}, hash.String()
}

func TestCommit(t *testing.T) {
	repo, hash := newTestRepo(t)

	info, err := repo.Commit(context.Background(), hash)
	require.NoError(t, err)

	assert.Equal(t, "Dana Developer", info.Author)
	assert.Equal(t, "Add landing page", info.Subject())
	assert.Equal(t, 2026, info.When.Year())
}

func TestCommitUnknownRevision(t *testing.T) {
	repo, _ := newTestRepo(t)

	_, err := repo.Commit(context.Background(), "ffffffffffffffffffffffffffffffffffffffff")
	assert.ErrorIs(t, err, ErrUnknownRevision)
}

func TestCommitCancelledContext(t *testing.T) {
	repo, hash := newTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Commit(ctx, hash)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubjectSingleLine(t *testing.T) {
	assert.Equal(t, "fix build", Info{Message: "fix build"}.Subject())
}
