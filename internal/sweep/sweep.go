// Package sweep removes artifacts older than the retention window that
// no environment currently points at. Release pointers are fetched fresh
// on every sweep so a build released moments earlier is never a
// candidate, whatever its age.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
	"github.com/DripEmail/gurgler/internal/params"
	"github.com/DripEmail/gurgler/internal/ui"
)

// Cataloger is the slice of the artifact catalog the sweeper needs.
type Cataloger interface {
	List(ctx context.Context, bucket, basePath string) ([]catalog.Record, error)
	Enrich(ctx context.Context, records []catalog.Record) []catalog.Record
}

// Deleter is the slice of object storage the sweeper needs.
type Deleter interface {
	DeleteAllUnder(ctx context.Context, bucket, prefix string) (int, error)
	DeleteBatch(ctx context.Context, bucket string, keys []string) error
}

// Report summarizes one server class sweep.
type Report struct {
	ServerClass string
	// Skipped is true when the operator declined to scan this class or
	// declined the final deletion.
	Skipped bool
	// Total is how many artifacts the bucket holds.
	Total int
	// Candidates are the artifacts proposed for deletion.
	Candidates []catalog.Record
	// DeletedObjects counts the objects actually removed.
	DeletedObjects int
}

// Sweeper identifies and deletes stale, unreferenced artifacts.
type Sweeper struct {
	cfg     *config.Config
	catalog Cataloger
	store   Deleter
	params  params.Store
	term    *ui.Terminal
	log     *slog.Logger

	// now is stubbed in tests.
	now func() time.Time
}

// New creates a Sweeper.
func New(cfg *config.Config, cat Cataloger, store Deleter, ps params.Store, term *ui.Terminal, log *slog.Logger) *Sweeper {
	return &Sweeper{
		cfg:     cfg,
		catalog: cat,
		store:   store,
		params:  ps,
		term:    term,
		log:     log,
		now:     time.Now,
	}
}

// Sweep runs one retention pass over a server class. Two confirmations
// gate the destructive step: one to scan the class at all, and one final
// gate listing the exact candidates. Declining either performs no
// deletions for the class.
func (s *Sweeper) Sweep(ctx context.Context, serverClass string) (*Report, error) {
	report := &Report{ServerClass: serverClass}

	bucket, ok := s.cfg.Buckets[serverClass]
	if !ok {
		return nil, fmt.Errorf("sweep: unknown server class %q", serverClass)
	}

	if !s.term.Confirm(fmt.Sprintf("Scan server class %q (bucket %s) for stale deploys?", serverClass, bucket)) {
		report.Skipped = true
		return report, nil
	}

	records, err := s.catalog.List(ctx, bucket, s.cfg.BasePath)
	if err != nil {
		return nil, err
	}
	report.Total = len(records)

	released, err := s.releasedHashes(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
	var candidates []catalog.Record
	for _, rec := range records {
		if !rec.LastModified.Before(cutoff) {
			continue
		}
		if released[rec.BuildHash] {
			// Live releases are never deleted, whatever their age.
			continue
		}
		candidates = append(candidates, rec)
	}

	if len(candidates) == 0 {
		s.term.Printf("Nothing to delete in %q: %d artifacts, none stale and unreferenced.\n",
			serverClass, report.Total)
		return report, nil
	}

	candidates = s.catalog.Enrich(ctx, catalog.SortByRecency(candidates))
	report.Candidates = candidates

	s.term.Printf("%d of %d artifacts in %q are older than %d days and not released anywhere:\n",
		len(candidates), report.Total, serverClass, s.cfg.RetentionDays)
	for _, rec := range candidates {
		s.term.Printf("  %s\n", rec.Label())
	}

	if !s.term.Confirm(fmt.Sprintf("Permanently delete these %d artifacts from %s?", len(candidates), bucket)) {
		report.Skipped = true
		return report, nil
	}

	for _, rec := range candidates {
		n, err := s.store.DeleteAllUnder(ctx, bucket, rec.DirectoryPrefix+"/")
		if err != nil {
			return report, fmt.Errorf("sweep: delete assets of %s: %w", rec.ShortHash(), err)
		}
		if err := s.store.DeleteBatch(ctx, bucket, []string{rec.ManifestKey}); err != nil {
			return report, fmt.Errorf("sweep: delete manifest of %s: %w", rec.ShortHash(), err)
		}
		report.DeletedObjects += n + 1
		s.log.Info("deleted artifact", "buildHash", rec.ShortHash(), "objects", n+1)
	}

	return report, nil
}

// releasedHashes fetches every environment's current release pointer.
// The set is read fresh per sweep, never cached, so the retention
// invariant holds against releases that happened moments ago. A pointer
// that was never written contributes nothing.
func (s *Sweeper) releasedHashes(ctx context.Context) (map[string]bool, error) {
	released := make(map[string]bool, len(s.cfg.Environments))
	for _, env := range s.cfg.Environments {
		val, err := s.params.Get(ctx, env.ParameterName)
		if err != nil {
			if errors.Is(err, params.ErrParameterNotFound) {
				continue
			}
			return nil, fmt.Errorf("sweep: read release pointer for %s: %w", env.Key, err)
		}
		if val.S != "" {
			released[val.S] = true
		}
	}
	return released, nil
}
