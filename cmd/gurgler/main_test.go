package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DripEmail/gurgler/internal/config"
)

func TestBucketList(t *testing.T) {
	cfg := &config.Config{Buckets: map[string]string{
		"production": "prod-bucket",
		"staging":    "staging-bucket",
		"preview":    "staging-bucket", // shares a bucket with staging
	}}

	// Server classes iterate sorted: preview, production, staging.
	assert.Equal(t, []string{"staging-bucket", "prod-bucket"}, bucketList(cfg))
}

func TestSweepClassesDeduplicateByBucket(t *testing.T) {
	cfg := &config.Config{Buckets: map[string]string{
		"production": "prod-bucket",
		"staging":    "staging-bucket",
		"preview":    "staging-bucket", // shares a bucket with staging
	}}

	// One class per bucket: staging never gets a second scan of the
	// bucket preview already covered.
	assert.Equal(t, []string{"preview", "production"}, sweepClasses(cfg))
}

func TestOperatorPrecedence(t *testing.T) {
	t.Setenv("GURGLER_OPERATOR", "ci-bot")
	t.Setenv("USER", "dana")
	assert.Equal(t, "ci-bot", operator())

	t.Setenv("GURGLER_OPERATOR", "")
	assert.Equal(t, "dana", operator())

	t.Setenv("USER", "")
	assert.Equal(t, "unknown operator", operator())
}
