// Package gitmeta looks up commit metadata for published artifacts so
// catalog listings can show who built what. Lookups can miss (history
// rewrites and artifacts older than metadata tagging are expected) and
// callers must treat ErrUnknownRevision as a degraded display, not a
// failure.
package gitmeta

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrUnknownRevision is returned when a revision id cannot be resolved
// in the local repository.
var ErrUnknownRevision = errors.New("unknown revision")

// Info is the commit metadata shown next to an artifact.
type Info struct {
	Author  string
	When    time.Time
	Message string
}

// Subject returns the first line of the commit message.
func (i Info) Subject() string {
	if idx := strings.IndexByte(i.Message, '\n'); idx >= 0 {
		return i.Message[:idx]
	}
	return i.Message
}

// Resolver resolves a revision id to commit metadata.
type Resolver interface {
	Commit(ctx context.Context, revisionID string) (Info, error)
}

// Repo resolves revisions against a local git repository via go-git.
type Repo struct {
	repo *git.Repository
}

// Open opens the repository at path (typically the working directory of
// the CI checkout).
func Open(path string) (*Repo, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("gitmeta: open repository %s: %w", path, err)
	}
	return &Repo{repo: repo}, nil
}

// Commit returns the metadata of the commit named by revisionID.
func (r *Repo) Commit(ctx context.Context, revisionID string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	hash := plumbing.NewHash(revisionID)
	if hash.IsZero() {
		// Not a full hex id; let go-git resolve branch names, tags, and
		// abbreviated hashes.
		resolved, err := r.repo.ResolveRevision(plumbing.Revision(revisionID))
		if err != nil {
			return Info{}, fmt.Errorf("%s: %w", revisionID, ErrUnknownRevision)
		}
		hash = *resolved
	}

	commit, err := r.repo.CommitObject(hash)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return Info{}, fmt.Errorf("%s: %w", revisionID, ErrUnknownRevision)
		}
		return Info{}, fmt.Errorf("gitmeta: commit %s: %w", revisionID, err)
	}

	return Info{
		Author:  commit.Author.Name,
		When:    commit.Author.When,
		Message: commit.Message,
	}, nil
}
