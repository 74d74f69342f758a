package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/configutil"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/telemetry"
)

const (
	defaultListen   = ":8080"
	defaultDatabase = "data/property.db"
	// defaultRefreshLimit is how many stale entries one refresh run picks up.
	defaultRefreshLimit = 50
)

type TaxPortalConfig struct {
	BaseUrl     string   `json:"base_url"`
	SearchPath  string   `json:"search_path"`
	FallbackUrl string   `json:"fallback_url"`
	Markers     []string `json:"markers"`
}

type ClerkConfig struct {
	BaseUrl string `json:"base_url"`
	Path    string `json:"path"`
}

type RecorderConfig struct {
	BaseUrl    string `json:"base_url"`
	SearchPath string `json:"search_path"`
	PostPath   string `json:"post_path"`
}

type GISConfig struct {
	QueryUrl   string `json:"query_url"`
	ImageryUrl string `json:"imagery_url"`
	ParcelUrl  string `json:"parcel_url"`
	GoogleUrl  string `json:"google_url"`
}

// SourcesConfig overrides the upstream endpoints, empty fields keep the
// county's public sites.
type SourcesConfig struct {
	TaxPortal TaxPortalConfig `json:"tax_portal"`
	Clerk     ClerkConfig     `json:"clerk"`
	Recorder  RecorderConfig  `json:"recorder"`
	GIS       GISConfig       `json:"gis"`
}

type FetchConfig struct {
	Timeout    string  `json:"timeout"`
	RateLimit  float64 `json:"rate_limit"`
	Burst      int     `json:"burst"`
	BrowserTLS bool    `json:"browser_tls"`
	CacheTTL   string  `json:"cache_ttl"`
	CacheSize  int     `json:"cache_size"`
	// DumpDir receives a copy of every upstream exchange when set.
	DumpDir string `json:"dump_dir"`
}

type ImportConfig struct {
	BatchSize int    `json:"batch_size"`
	Pause     string `json:"pause"`
}

// RefreshConfig schedules the re-fetching of stale cache entries while
// serving, an empty schedule disables it.
type RefreshConfig struct {
	Schedule string `json:"schedule"`
	Limit    int    `json:"limit"`
}

type Config struct {
	Listen     string           `json:"listen"`
	Database   string           `json:"database"`
	MapsApiKey string           `json:"maps_api_key"`
	Fetch      FetchConfig      `json:"fetch"`
	Import     ImportConfig     `json:"import"`
	Refresh    RefreshConfig    `json:"refresh"`
	Sources    SourcesConfig    `json:"sources"`
	Telemetry  telemetry.Config `json:"telemetry"`
}

// LoadConfig reads path (and its .local sibling), then applies .env and the
// environment on top. A missing config file is not an error.
func LoadConfig(path string) (Config, error) {
	err := configutil.LoadEnv(".env")
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		cfg = Config{}
	} else if err != nil {
		return Config{}, err
	}

	applied := configutil.ApplyEnv(
		configutil.Override{Env: "MAPS_API_KEY", Target: &cfg.MapsApiKey},
		configutil.Override{Env: "PROPERTY_DATABASE", Target: &cfg.Database},
		configutil.Override{Env: "LISTEN_ADDR", Target: &cfg.Listen},
	)
	if len(applied) > 0 {
		slog.Debug("config overridden by environment", "vars", applied)
	}

	if cfg.Listen == "" {
		cfg.Listen = defaultListen
	}
	if cfg.Database == "" {
		cfg.Database = defaultDatabase
	}
	if cfg.Refresh.Limit <= 0 {
		cfg.Refresh.Limit = defaultRefreshLimit
	}

	_, err = cfg.durations()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type durations struct {
	timeout     time.Duration
	cacheTTL    time.Duration
	importPause time.Duration
}

func parseDuration(field, value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func (c Config) durations() (durations, error) {
	var d durations
	var err error
	d.timeout, err = parseDuration("fetch.timeout", c.Fetch.Timeout, session.DefaultTimeout)
	if err != nil {
		return durations{}, err
	}
	d.cacheTTL, err = parseDuration("fetch.cache_ttl", c.Fetch.CacheTTL, fetchcache.DefaultTTL)
	if err != nil {
		return durations{}, err
	}
	d.importPause, err = parseDuration("import.pause", c.Import.Pause, importer.DefaultPause)
	if err != nil {
		return durations{}, err
	}
	return d, nil
}
