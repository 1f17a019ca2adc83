package sweep

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DripEmail/gurgler/internal/catalog"
	"github.com/DripEmail/gurgler/internal/config"
	"github.com/DripEmail/gurgler/internal/params"
	"github.com/DripEmail/gurgler/internal/ui"
)

var now = time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		BasePath: "assets",
		Buckets:  map[string]string{"production": "prod-bucket"},
		Environments: []config.Environment{
			{Key: "production", ParameterName: "/release/production", ServerClass: "production"},
			{Key: "staging", ParameterName: "/release/staging", ServerClass: "production"},
		},
		DisplayLimit:        20,
		RetentionDays:       90,
		ProtectedBranchName: "main",
	}
}

type fakeCataloger struct {
	records []catalog.Record
}

func (f *fakeCataloger) List(context.Context, string, string) ([]catalog.Record, error) {
	return f.records, nil
}

func (f *fakeCataloger) Enrich(_ context.Context, records []catalog.Record) []catalog.Record {
	return records
}

type fakeDeleter struct {
	deletedPrefixes []string
	deletedKeys     []string
}

func (f *fakeDeleter) DeleteAllUnder(_ context.Context, _, prefix string) (int, error) {
	f.deletedPrefixes = append(f.deletedPrefixes, prefix)
	return 3, nil
}

func (f *fakeDeleter) DeleteBatch(_ context.Context, _ string, keys []string) error {
	f.deletedKeys = append(f.deletedKeys, keys...)
	return nil
}

type fakeParams struct {
	values map[string]string
	gets   int
}

func (f *fakeParams) Get(_ context.Context, name string) (params.Value, error) {
	f.gets++
	if v, ok := f.values[name]; ok {
		return params.Value{S: v}, nil
	}
	return params.Value{}, fmt.Errorf("%s: %w", name, params.ErrParameterNotFound)
}

func (f *fakeParams) Put(context.Context, string, string) error {
	panic("sweeper must never write parameters")
}

func record(hash string, ageDays int) catalog.Record {
	return catalog.Record{
		BucketName:      "prod-bucket",
		BuildHash:       hash,
		ManifestKey:     "assets/" + hash + ".manifest",
		DirectoryPrefix: "assets/" + hash,
		LastModified:    now.Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
}

func newSweeper(cfg *config.Config, cat Cataloger, del Deleter, ps params.Store, input string) (*Sweeper, *strings.Builder) {
	var out strings.Builder
	s := New(cfg, cat, del, ps, ui.New(strings.NewReader(input), &out), discardLogger())
	s.now = func() time.Time { return now }
	return s, &out
}

// The released artifact is 120 days old and must survive; the
// unreferenced one is 100 days old and must go.
func TestSweepPreservesReleasedArtifacts(t *testing.T) {
	cfg := testConfig()
	released := record("released-hash", 120)
	stale := record("stale-hash", 100)
	fresh := record("fresh-hash", 10)

	cat := &fakeCataloger{records: []catalog.Record{released, stale, fresh}}
	del := &fakeDeleter{}
	ps := &fakeParams{values: map[string]string{"/release/production": "released-hash"}}

	s, _ := newSweeper(cfg, cat, del, ps, "y\ny\n")
	report, err := s.Sweep(context.Background(), "production")
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "stale-hash", report.Candidates[0].BuildHash)

	assert.Equal(t, []string{"assets/stale-hash/"}, del.deletedPrefixes)
	assert.Equal(t, []string{"assets/stale-hash.manifest"}, del.deletedKeys)
	assert.Equal(t, 4, report.DeletedObjects) // 3 assets + manifest
}

func TestSweepReadsPointersForEveryEnvironment(t *testing.T) {
	cfg := testConfig()
	ps := &fakeParams{values: map[string]string{"/release/staging": "kept-hash"}}
	cat := &fakeCataloger{records: []catalog.Record{record("kept-hash", 200)}}
	del := &fakeDeleter{}

	s, out := newSweeper(cfg, cat, del, ps, "y\n")
	report, err := s.Sweep(context.Background(), "production")
	require.NoError(t, err)

	assert.Equal(t, len(cfg.Environments), ps.gets, "pointers fetched fresh for every environment")
	assert.Empty(t, report.Candidates, "a hash released by ANY environment is preserved")
	assert.Empty(t, del.deletedPrefixes)
	assert.Contains(t, out.String(), "Nothing to delete")
}

func TestSweepDecliningScanSkipsClass(t *testing.T) {
	cfg := testConfig()
	cat := &fakeCataloger{records: []catalog.Record{record("stale-hash", 100)}}
	del := &fakeDeleter{}

	s, _ := newSweeper(cfg, cat, del, &fakeParams{}, "n\n")
	report, err := s.Sweep(context.Background(), "production")
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	assert.Empty(t, del.deletedPrefixes)
	assert.Empty(t, del.deletedKeys)
}

func TestSweepDecliningFinalGateDeletesNothing(t *testing.T) {
	cfg := testConfig()
	cat := &fakeCataloger{records: []catalog.Record{record("stale-hash", 100)}}
	del := &fakeDeleter{}

	// Accept the scan, decline the deletion (blank answer).
	s, out := newSweeper(cfg, cat, del, &fakeParams{}, "y\n\n")
	report, err := s.Sweep(context.Background(), "production")
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	require.Len(t, report.Candidates, 1)
	assert.Empty(t, del.deletedPrefixes)
	assert.Contains(t, out.String(), "1 of 1 artifacts")
}

func TestSweepRetentionBoundary(t *testing.T) {
	cfg := testConfig()
	atBoundary := record("boundary-hash", 90)
	justOver := record("over-hash", 91)
	cat := &fakeCataloger{records: []catalog.Record{atBoundary, justOver}}
	del := &fakeDeleter{}

	s, _ := newSweeper(cfg, cat, del, &fakeParams{}, "y\ny\n")
	report, err := s.Sweep(context.Background(), "production")
	require.NoError(t, err)

	require.Len(t, report.Candidates, 1)
	assert.Equal(t, "over-hash", report.Candidates[0].BuildHash,
		"exactly-at-threshold artifacts are kept")
}

func TestSweepUnknownServerClass(t *testing.T) {
	s, _ := newSweeper(testConfig(), &fakeCataloger{}, &fakeDeleter{}, &fakeParams{}, "")
	_, err := s.Sweep(context.Background(), "edge")
	assert.Error(t, err)
}
