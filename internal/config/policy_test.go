package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupFallsBackToUnknownTopicPolicy(t *testing.T) {
	var r = NewRegistry()
	var p = r.Lookup("never-configured")
	assert.Equal(t, float64(0), p.Priority)
	assert.Equal(t, time.Duration(0), p.RateLimit)
	assert.False(t, p.NoDrop)
}

func TestLoadPolicyFileMergesOverDefaults(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "topics.json")
	var body = `[
		{"topic": "tel", "priority": 2.5, "rate_limit_sec": 0.5, "no_drop": false},
		{"topic": "sub", "priority": 0, "rate_limit_sec": 0, "no_drop": true}
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var r = NewRegistry()
	require.NoError(t, r.LoadPolicyFile(path))

	var tel = r.Lookup("tel")
	assert.Equal(t, 2.5, tel.Priority)
	assert.Equal(t, 500*time.Millisecond, tel.RateLimit)
	assert.False(t, tel.NoDrop)

	var sub = r.Lookup("sub")
	assert.True(t, sub.NoDrop)

	assert.Equal(t, float64(0), r.Lookup("unlisted").Priority)
}

func TestLoadPolicyFileEmptyPathIsNoOp(t *testing.T) {
	var r = NewRegistry()
	require.NoError(t, r.LoadPolicyFile(""))
	assert.Equal(t, float64(0), r.Lookup("anything").Priority)
}

func TestRegisterOverridesLoadedPolicy(t *testing.T) {
	var path = filepath.Join(t.TempDir(), "topics.json")
	var body = `[{"topic": "subscriptions", "priority": 1, "rate_limit_sec": 0, "no_drop": false}]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	var r = NewRegistry()
	require.NoError(t, r.LoadPolicyFile(path))
	require.False(t, r.Lookup("subscriptions").NoDrop)

	r.Register(TopicPolicy{Topic: "subscriptions", NoDrop: true})
	assert.True(t, r.Lookup("subscriptions").NoDrop)
}
