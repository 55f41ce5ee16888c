package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ANOMALY_TIMELINE_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":50051", cfg.Server.Address)
	assert.Equal(t, "/api/anomalies/graph", cfg.Source.GraphPath)
	assert.Equal(t, "skip", cfg.Timeline.MalformedPolicy)
	assert.Equal(t, 30*time.Minute, cfg.Views.IdleTTL)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "timeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  address: ":6000"
source:
  baseURL: "http://graph.local"
  refreshInterval: 1m
timeline:
  location: "Europe/Berlin"
  malformedPolicy: zero
cache:
  enabled: true
  addr: "valkey:6379"
`), 0o600))

	t.Setenv("ANOMALY_TIMELINE_HTTP_ADDRESS", ":9090")
	t.Setenv("ANOMALY_TIMELINE_CACHE_SNAPSHOT_TTL", "45s")
	t.Setenv("ANOMALY_TIMELINE_CACHE_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":6000", cfg.Server.Address)
	assert.Equal(t, ":9090", cfg.Server.HTTPAddress)
	assert.Equal(t, "http://graph.local", cfg.Source.BaseURL)
	assert.Equal(t, time.Minute, cfg.Source.RefreshInterval)
	assert.Equal(t, "zero", cfg.Timeline.MalformedPolicy)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 45*time.Second, cfg.Cache.SnapshotTTL)
	assert.Equal(t, 3, cfg.Cache.DB)

	loc, err := cfg.Timeline.LoadLocation()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	t.Setenv("ANOMALY_TIMELINE_MALFORMED_POLICY", "drop")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv("ANOMALY_TIMELINE_MALFORMED_POLICY", "")
	t.Setenv("ANOMALY_TIMELINE_LOCATION", "Mars/Olympus_Mons")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
