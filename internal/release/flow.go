package release

import (
	"context"
	"fmt"
	"io"

	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
)

// Cataloger is the slice of the artifact catalog the release flow needs.
type Cataloger interface {
	List(ctx context.Context, bucket, basePath string) ([]catalog.Record, error)
	Enrich(ctx context.Context, records []catalog.Record) []catalog.Record
}

// Flow runs the full release pipeline: resolve environment, resolve
// artifact, confirm, activate.
type Flow struct {
	cfg       *config.Config
	catalog   Cataloger
	selector  *Selector
	activator *Activator
	out       io.Writer
}

// NewFlow creates a Flow.
func NewFlow(cfg *config.Config, cat Cataloger, selector *Selector, activator *Activator, out io.Writer) *Flow {
	return &Flow{
		cfg:       cfg,
		catalog:   cat,
		selector:  selector,
		activator: activator,
		out:       out,
	}
}

// Run executes one release. envKey and partial may each be empty, in
// which case that selection is made interactively. Operator cancellation
// and an empty catalog return their sentinels with nothing mutated;
// callers treat those as normal termination (see IsCancelled).
func (f *Flow) Run(ctx context.Context, envKey, partial string) error {
	// Validate the identifier before anything else so a bad flag fails
	// fast, before any prompt or network call.
	if partial != "" && len(partial) < MinIdentifierLength {
		return fmt.Errorf("%w: %q is %d characters, need at least %d",
			ErrIdentifierTooShort, partial, len(partial), MinIdentifierLength)
	}

	env, err := f.selector.ResolveEnvironment(ctx, envKey)
	if err != nil {
		return err
	}

	bucket := f.cfg.Buckets[env.ServerClass]
	records, err := f.catalog.List(ctx, bucket, f.cfg.BasePath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintf(f.out, "Nothing has been deployed to %s yet. Run deploy first.\n", bucket)
		return ErrEmptyCatalog
	}

	recent := catalog.Limit(catalog.SortByRecency(records), f.cfg.DisplayLimit)
	enriched := f.catalog.Enrich(ctx, recent)

	rec, err := f.selector.ResolveArtifact(enriched, partial)
	if err != nil {
		return err
	}

	if err := f.selector.Confirm(env, rec); err != nil {
		return err
	}

	return f.activator.Activate(ctx, env, rec)
}
