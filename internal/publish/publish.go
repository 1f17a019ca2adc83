// Package publish uploads one build's output files to the configured
// storage buckets under the build's storage prefix. The manifest object
// is written as a sibling of the prefix (prefix + ".manifest") while
// assets go under it, so a single delimiter listing can tell builds
// apart from their file trees.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/DripEmail/gurgler/internal/build"
	"github.com/DripEmail/gurgler/internal/contenttype"
)

// ManifestSuffix is appended to the storage prefix to form the manifest
// object key.
const ManifestSuffix = ".manifest"

// ObjectPutter is the slice of storage the publisher needs.
type ObjectPutter interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error
}

// Upload describes one object that was (or would be, in dry-run)
// uploaded.
type Upload struct {
	Bucket      string
	Key         string
	ContentType string
	Size        int64
}

// Failure describes one (file, bucket) pair that could not be uploaded.
type Failure struct {
	Bucket string
	Key    string
	Err    error
}

// Report aggregates the outcome of a publish. Buckets and files are
// independent, so one failed pair does not stop the rest of the batch.
type Report struct {
	DryRun   bool
	Uploads  []Upload
	Failures []Failure
}

// OK reports whether every upload succeeded.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

// Publisher pushes build artifacts to object storage.
type Publisher struct {
	store ObjectPutter
	log   *slog.Logger
}

// New creates a Publisher.
func New(store ObjectPutter, log *slog.Logger) *Publisher {
	return &Publisher{store: store, log: log}
}

// Publish uploads the manifest and every local file to every bucket,
// tagging each object with the build's raw identity. In dry-run mode no
// network writes happen; the report describes what would be uploaded.
// Per-pair failures are collected in the report rather than aborting.
func (p *Publisher) Publish(ctx context.Context, buckets []string, m build.Manifest, files []string, dryRun bool) (*Report, error) {
	report := &Report{DryRun: dryRun}

	manifestBody, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("publish: encode manifest: %w", err)
	}

	metadata := map[string]string{"git-info": m.RawIdentity}
	manifestKey := m.StoragePrefix + ManifestSuffix

	for _, bucket := range buckets {
		p.put(ctx, report, bucket, manifestKey, manifestBody, "application/json", metadata, dryRun)
	}

	for _, file := range files {
		body, err := os.ReadFile(file)
		if err != nil {
			// The file is unreadable for every bucket; record one
			// failure per bucket so the report stays per-pair.
			for _, bucket := range buckets {
				report.Failures = append(report.Failures, Failure{
					Bucket: bucket,
					Key:    assetKey(m, file),
					Err:    fmt.Errorf("read %s: %w", file, err),
				})
			}
			continue
		}

		key := assetKey(m, file)
		ct := contenttype.Detect(file, body)
		for _, bucket := range buckets {
			p.put(ctx, report, bucket, key, body, ct, metadata, dryRun)
		}
	}

	return report, nil
}

func (p *Publisher) put(ctx context.Context, report *Report, bucket, key string, body []byte, contentType string, metadata map[string]string, dryRun bool) {
	if dryRun {
		p.log.Info("would upload", "bucket", bucket, "key", key, "contentType", contentType, "size", len(body))
	} else {
		if err := p.store.Put(ctx, bucket, key, body, contentType, metadata); err != nil {
			p.log.Error("upload failed", "bucket", bucket, "key", key, "error", err)
			report.Failures = append(report.Failures, Failure{Bucket: bucket, Key: key, Err: err})
			return
		}
		p.log.Info("uploaded", "bucket", bucket, "key", key, "contentType", contentType, "size", len(body))
	}

	report.Uploads = append(report.Uploads, Upload{
		Bucket:      bucket,
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(body)),
	})
}

func assetKey(m build.Manifest, file string) string {
	return m.StoragePrefix + "/" + filepath.Base(file)
}
