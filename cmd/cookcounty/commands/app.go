package commands

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/aggregate"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/bids"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/cachestore"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/importer"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/lookup"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/clerk"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/gis"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/recorder"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/session"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/scrapers/taxportal"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/restyutil"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/sqliteutil"
)

// app holds the components shared by every command.
type app struct {
	cfg       Config
	durations durations
	time      chrono.TimeAPI
	tel       telemetry.API

	database    *sql.DB
	store       *cachestore.Store
	fetchCache  *fetchcache.Cache
	lookup      *lookup.Service
	coordinator aggregate.Coordinator
	bids        bids.Store
}

func newApp(cfg Config) (*app, error) {
	d, err := cfg.durations()
	if err != nil {
		return nil, err
	}

	time := chrono.NewStandardTime()
	tel := telemetry.SlogAPI{}

	database, err := sqliteutil.Open(cfg.Database, sqliteutil.WithSchema(db.Schema))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	store, err := cachestore.NewStore(database, time, tel)
	if err != nil {
		database.Close()
		return nil, err
	}

	fetchCache := fetchcache.New(d.cacheTTL, cfg.Fetch.CacheSize, time)
	sources, err := newSources(cfg, d.timeout, fetchCache, time, tel)
	if err != nil {
		database.Close()
		return nil, err
	}

	svc, err := lookup.NewService(lookup.Options{
		Cache:      store,
		Sources:    sources,
		FetchCache: fetchCache,
		Tel:        tel,
	})
	if err != nil {
		database.Close()
		return nil, err
	}

	return &app{
		cfg:         cfg,
		durations:   d,
		time:        time,
		tel:         tel,
		database:    database,
		store:       store,
		fetchCache:  fetchCache,
		lookup:      svc,
		coordinator: aggregate.NewCoordinator(svc, time, tel),
		bids:        bids.NewStore(database, time),
	}, nil
}

// newRunner creates an import runner whose jobs are interrupted when ctx is
// done.
func (a *app) newRunner(ctx context.Context) *importer.Runner {
	return importer.NewRunner(ctx, a.database, a.coordinator, a.time, a.tel, importer.Options{
		BatchSize: a.cfg.Import.BatchSize,
		Pause:     a.durations.importPause,
	})
}

func (a *app) Close() error {
	return a.database.Close()
}

func sessionOptions(cfg FetchConfig, name string, timeout time.Duration, tel telemetry.API) (session.Options, error) {
	opts := session.Options{
		Timeout:    timeout,
		Limiter:    session.NewLimiter(cfg.RateLimit, cfg.Burst),
		Tel:        telemetry.NewScopedAPI(name, tel),
		BrowserTLS: cfg.BrowserTLS,
	}
	if cfg.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(filepath.Join(cfg.DumpDir, name))
		if err != nil {
			return session.Options{}, fmt.Errorf("dump dir: %w", err)
		}
		opts.Output = output
	}
	return opts, nil
}

// newSources creates the four upstream sources, each with its own limiter
// shared by all of its sessions.
func newSources(cfg Config, timeout time.Duration, fetchCache *fetchcache.Cache, time chrono.TimeAPI, tel telemetry.API) ([]lookup.Source, error) {
	sessions := map[string]session.Options{}
	for _, name := range []string{"tax_portal", "clerk", "recorder", "gis"} {
		opts, err := sessionOptions(cfg.Fetch, name, timeout, tel)
		if err != nil {
			return nil, err
		}
		sessions[name] = opts
	}

	src := cfg.Sources
	taxPortalClient := taxportal.NewClient(taxportal.Options{
		BaseUrl:     src.TaxPortal.BaseUrl,
		SearchPath:  src.TaxPortal.SearchPath,
		FallbackUrl: src.TaxPortal.FallbackUrl,
		Markers:     src.TaxPortal.Markers,
		Session:     sessions["tax_portal"],
		Cache:       fetchCache,
	})
	clerkClient := clerk.NewClient(clerk.Options{
		BaseUrl: src.Clerk.BaseUrl,
		Path:    src.Clerk.Path,
		Session: sessions["clerk"],
		Cache:   fetchCache,
	})
	recorderClient := recorder.NewClient(recorder.Options{
		BaseUrl:    src.Recorder.BaseUrl,
		SearchPath: src.Recorder.SearchPath,
		PostPath:   src.Recorder.PostPath,
		Session:    sessions["recorder"],
		Cache:      fetchCache,
	})
	gisClient := gis.NewClient(gis.Options{
		QueryUrl:   src.GIS.QueryUrl,
		ImageryUrl: src.GIS.ImageryUrl,
		ParcelUrl:  src.GIS.ParcelUrl,
		GoogleUrl:  src.GIS.GoogleUrl,
		MapsApiKey: cfg.MapsApiKey,
		Session:    sessions["gis"],
		Cache:      fetchCache,
	})

	return []lookup.Source{
		taxportal.NewSource(taxPortalClient, time),
		clerk.NewSource(clerkClient, time),
		recorder.NewSource(recorderClient, time),
		gis.NewSource(gisClient, time),
	}, nil
}
