// Package catalog reconstructs the set of previously published builds
// from a bucket listing and enriches each with commit metadata for
// display. Records are ephemeral: they are derived fresh on every query
// and never persisted.
package catalog

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DripEmail/gurgler/internal/build"
	"github.com/DripEmail/gurgler/internal/gitmeta"
	"github.com/DripEmail/gurgler/internal/publish"
	"github.com/DripEmail/gurgler/internal/storage"
)

// enrichConcurrency bounds the fan-out of per-record metadata lookups.
const enrichConcurrency = 8

// Storage is the slice of object storage the catalog needs.
type Storage interface {
	ListPrefix(ctx context.Context, bucket, prefix string) ([]storage.Object, error)
	Head(ctx context.Context, bucket, key string) (map[string]string, error)
}

// Record is one published build discovered in a bucket.
type Record struct {
	BucketName      string
	ManifestKey     string
	DirectoryPrefix string
	LastModified    time.Time
	BuildHash       string

	// Populated by Enrich from object metadata and git history.
	RevisionID string
	BranchName string
	Commit     gitmeta.Info
	HasCommit  bool
}

// ShortHash returns the 7-character display form of the build hash.
func (r Record) ShortHash() string {
	return build.Short(r.BuildHash)
}

// ShortRevision returns the 7-character display form of the revision id.
func (r Record) ShortRevision() string {
	return build.Short(r.RevisionID)
}

// Label composes the single-line summary shown to operators. Records
// whose commit lookup failed fall back to what storage alone can tell.
func (r Record) Label() string {
	date := r.LastModified.UTC().Format("2006-01-02 15:04")
	if !r.HasCommit {
		return date + "  " + r.ShortHash() + "  (commit metadata unavailable)"
	}

	subject := r.Commit.Subject()
	if len(subject) > 50 {
		subject = subject[:47] + "..."
	}
	return strings.Join([]string{
		date,
		r.ShortHash(),
		r.Commit.Author,
		r.ShortRevision(),
		r.BranchName,
		subject,
	}, "  ")
}

// Catalog lists and enriches published artifact records.
type Catalog struct {
	store Storage
	git   gitmeta.Resolver
	log   *slog.Logger
}

// New creates a Catalog. The git resolver may be nil, in which case
// every record is presented in its degraded form.
func New(store Storage, git gitmeta.Resolver, log *slog.Logger) *Catalog {
	return &Catalog{store: store, git: git, log: log}
}

// List returns one record per manifest object under basePath. The
// delimiter listing keeps each build's asset subtree out of the result;
// the manifest naming convention filters out anything else that may be
// sitting at the top level.
func (c *Catalog) List(ctx context.Context, bucket, basePath string) ([]Record, error) {
	objects, err := c.store.ListPrefix(ctx, bucket, basePath+"/")
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, obj := range objects {
		hash, ok := parseManifestKey(obj.Key, basePath)
		if !ok {
			continue
		}
		records = append(records, Record{
			BucketName:      bucket,
			ManifestKey:     obj.Key,
			DirectoryPrefix: strings.TrimSuffix(obj.Key, publish.ManifestSuffix),
			LastModified:    obj.LastModified,
			BuildHash:       hash,
		})
	}
	return records, nil
}

// parseManifestKey extracts the build hash from a manifest object key of
// the form {basePath}/{hash}.manifest. The hash must be lowercase hex.
func parseManifestKey(key, basePath string) (string, bool) {
	name, ok := strings.CutPrefix(key, basePath+"/")
	if !ok {
		return "", false
	}
	hash, ok := strings.CutSuffix(name, publish.ManifestSuffix)
	if !ok || hash == "" || strings.Contains(hash, "/") {
		return "", false
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", false
		}
	}
	return hash, true
}

// Enrich resolves each record's git-info metadata tag and commit
// details. Lookups fan out concurrently but the returned slice keeps the
// input order, so display ordering never depends on which lookup
// finished first. Individual failures degrade that record; they never
// fail the batch.
func (c *Catalog) Enrich(ctx context.Context, records []Record) []Record {
	enriched := make([]Record, len(records))
	copy(enriched, records)

	var wg sync.WaitGroup
	sem := make(chan struct{}, enrichConcurrency)

	for i := range enriched {
		wg.Add(1)
		sem <- struct{}{}

		go func(rec *Record) {
			defer func() {
				<-sem
				wg.Done()
			}()
			c.enrichOne(ctx, rec)
		}(&enriched[i])
	}

	wg.Wait()
	return enriched
}

func (c *Catalog) enrichOne(ctx context.Context, rec *Record) {
	meta, err := c.store.Head(ctx, rec.BucketName, rec.ManifestKey)
	if err != nil {
		c.log.Warn("manifest metadata unavailable", "key", rec.ManifestKey, "error", err)
		return
	}

	info, ok := meta["git-info"]
	if !ok {
		c.log.Warn("manifest missing git-info tag", "key", rec.ManifestKey)
		return
	}
	rec.RevisionID, rec.BranchName, _ = strings.Cut(info, "|")

	if c.git == nil || rec.RevisionID == "" {
		return
	}

	commit, err := c.git.Commit(ctx, rec.RevisionID)
	if err != nil {
		// Expected for rewritten history or pre-tagging builds.
		c.log.Warn("commit lookup failed", "revision", rec.RevisionID, "error", err)
		return
	}
	rec.Commit = commit
	rec.HasCommit = true
}

// SortByRecency orders records newest first. Identical timestamps are
// broken by build hash so the ordering is deterministic for a given set.
func SortByRecency(records []Record) []Record {
	sorted := make([]Record, len(records))
	copy(sorted, records)

	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].LastModified.Equal(sorted[j].LastModified) {
			return sorted[i].LastModified.After(sorted[j].LastModified)
		}
		return sorted[i].BuildHash > sorted[j].BuildHash
	})
	return sorted
}

// Limit returns at most the first n records.
func Limit(records []Record, n int) []Record {
	if n < 0 || n >= len(records) {
		return records
	}
	return records[:n]
}
