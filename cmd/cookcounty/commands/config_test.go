package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, name := range []string{"MAPS_API_KEY", "PROPERTY_DATABASE", "LISTEN_ADDR"} {
		t.Setenv(name, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "config.json5"))
	require.NoError(t, err)
	require.Equal(t, defaultListen, cfg.Listen)
	require.Equal(t, defaultDatabase, cfg.Database)
	require.Equal(t, defaultRefreshLimit, cfg.Refresh.Limit)

	d, err := cfg.durations()
	require.NoError(t, err)
	require.Equal(t, session.DefaultTimeout, d.timeout)
	require.Equal(t, fetchcache.DefaultTTL, d.cacheTTL)
	require.Equal(t, importer.DefaultPause, d.importPause)
}

func TestLoadConfigFileLocalAndEnv(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	err := os.WriteFile(path, []byte(`{
		// comments and trailing commas are fine
		listen: ":9000",
		database: "prop.db",
		fetch: { timeout: "10s", rate_limit: 0.5, },
		"import": { batch_size: 3, pause: "500ms" },
		sources: { tax_portal: { markers: ["Property Location"] } },
	}`), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "config.local.json5"), []byte(`{
		database: "local.db",
	}`), 0644)
	require.NoError(t, err)

	t.Setenv("LISTEN_ADDR", ":7000")
	t.Setenv("MAPS_API_KEY", "secret")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Listen)
	require.Equal(t, "local.db", cfg.Database)
	require.Equal(t, "secret", cfg.MapsApiKey)
	require.Equal(t, 0.5, cfg.Fetch.RateLimit)
	require.Equal(t, 3, cfg.Import.BatchSize)
	require.Equal(t, []string{"Property Location"}, cfg.Sources.TaxPortal.Markers)

	d, err := cfg.durations()
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, d.timeout)
	require.Equal(t, 500*time.Millisecond, d.importPause)
}

func TestLoadConfigBadDuration(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.json5")
	err := os.WriteFile(path, []byte(`{ fetch: { cache_ttl: "soon" } }`), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	require.ErrorContains(t, err, "fetch.cache_ttl")
}
