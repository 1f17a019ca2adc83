// Package release resolves what to release where, walks the operator
// through the confirmation gates, and performs the release mutation.
// The pipeline is explicit: resolve environment, resolve artifact,
// confirm, activate. Failure at any stage short-circuits with a typed
// error and no side effects.
package release

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/DripEmail/gurgler/internal/build"
	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
	"github.com/DripEmail/gurgler/internal/params"
	"github.com/DripEmail/gurgler/internal/ui"
)

// MinIdentifierLength is the shortest partial revision id accepted on
// the command line. Anything shorter is too ambiguous to trust for a
// release.
const MinIdentifierLength = 7

// Selector resolves the target environment and artifact, either from
// already-known keys or interactively.
type Selector struct {
	cfg   *config.Config
	store params.Store
	term  *ui.Terminal
}

// NewSelector creates a Selector.
func NewSelector(cfg *config.Config, store params.Store, term *ui.Terminal) *Selector {
	return &Selector{cfg: cfg, store: store, term: term}
}

// ResolveEnvironment returns the environment named by key, or prompts
// the operator to choose one when key is empty. Choices are labeled with
// each environment's currently released short hash.
func (s *Selector) ResolveEnvironment(ctx context.Context, key string) (config.Environment, error) {
	if key != "" {
		env, ok := s.cfg.Environment(key)
		if !ok {
			return config.Environment{}, fmt.Errorf("%w: %q (configured: %s)",
				ErrUnknownEnvironment, key, strings.Join(s.cfg.EnvironmentKeys(), ", "))
		}
		return env, nil
	}

	options := make([]string, len(s.cfg.Environments))
	for i, env := range s.cfg.Environments {
		options[i] = fmt.Sprintf("%s (currently %s)", env.Key, s.releasedShort(ctx, env))
	}

	idx, err := s.term.Choose("Choose an environment:", options)
	if err != nil {
		return config.Environment{}, err
	}
	return s.cfg.Environments[idx], nil
}

// releasedShort reads the environment's release pointer for display. A
// missing pointer means nothing has been released there yet; only a
// genuine store failure reads as unknown.
func (s *Selector) releasedShort(ctx context.Context, env config.Environment) string {
	val, err := s.store.Get(ctx, env.ParameterName)
	if errors.Is(err, params.ErrParameterNotFound) {
		return "nothing"
	}
	if err != nil {
		return "unknown"
	}
	if val.S == "" {
		return "nothing"
	}
	return build.Short(val.S)
}

// ResolveArtifact picks the artifact to release from the enriched,
// sorted, limited catalog. A non-empty partial identifier is matched by
// prefix against each record's revision id; otherwise the operator
// chooses interactively.
func (s *Selector) ResolveArtifact(records []catalog.Record, partial string) (catalog.Record, error) {
	if len(records) == 0 {
		return catalog.Record{}, ErrEmptyCatalog
	}

	if partial != "" {
		if len(partial) < MinIdentifierLength {
			return catalog.Record{}, fmt.Errorf("%w: %q is %d characters, need at least %d",
				ErrIdentifierTooShort, partial, len(partial), MinIdentifierLength)
		}
		for _, rec := range records {
			if strings.HasPrefix(rec.RevisionID, partial) {
				return rec, nil
			}
		}
		return catalog.Record{}, fmt.Errorf("%w: no deployed revision starts with %q", ErrNoMatchingArtifact, partial)
	}

	options := make([]string, len(records))
	for i, rec := range records {
		options[i] = rec.Label()
	}
	idx, err := s.term.Choose("Choose an artifact to release:", options)
	if err != nil {
		return catalog.Record{}, err
	}
	return records[idx], nil
}

// Confirm walks the confirmation gates. The primary gate defaults to no.
// Releasing a build from outside the protected branch to a protected
// environment requires a second, distinctly worded confirmation.
// Declining either gate returns ErrCancelled.
func (s *Selector) Confirm(env config.Environment, rec catalog.Record) error {
	question := fmt.Sprintf("Release build %s (revision %s) to %s?",
		rec.ShortHash(), rec.ShortRevision(), env.Key)
	if !s.term.Confirm(question) {
		return ErrCancelled
	}

	if env.ProtectedBranch && rec.BranchName != s.cfg.ProtectedBranchName {
		warning := fmt.Sprintf("WARNING: %s normally runs %q builds but this artifact came from %q. Release it anyway?",
			env.Key, s.cfg.ProtectedBranchName, rec.BranchName)
		if !s.term.Confirm(warning) {
			return ErrCancelled
		}
	}

	return nil
}

// IsCancelled reports whether an error is an operator cancellation or
// the empty-catalog early exit. The command layer treats both as a
// normal termination.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, ErrEmptyCatalog)
}
