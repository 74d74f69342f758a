// Package lookup serves single-source property records, reading through the
// persistent cache and falling back to stale entries when a source fails.
package lookup

import (
	"context"
	"fmt"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/cachestore"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("lookup")
	meter  = otel.Meter("lookup")
)

const (
	report_lookup_cache_read  = "lookup.cache-read"
	report_lookup_cache_write = "lookup.cache-write"
	report_lookup_fallback    = "lookup.stale-fallback"
)

// Source fetches the live record of a single county source.
//
// Lookup returns an error only for infrastructure failures, anything the
// source itself reports (including "no such property") is carried by the
// record.
type Source interface {
	Kind() property.SourceKind
	Lookup(ctx context.Context, p pin.PIN) (property.Record, error)
}

// Cache is the persistent cache the service reads through.
type Cache interface {
	Get(ctx context.Context, p pin.PIN, source property.SourceKind) (cachestore.Entry, bool, error)
	Upsert(ctx context.Context, record property.Record) error
	Clear(ctx context.Context, p *pin.PIN) (int64, error)
}

// Result is a record along with where it came from.
type Result struct {
	Record property.Record
	// Cached is true when the record was served from the persistent cache,
	// CachedAt is then its original fetch time.
	Cached   bool
	CachedAt time.Time
	// Stale is true when a stale entry was served because the live fetch
	// failed.
	Stale bool
}

type Options struct {
	Cache   Cache
	Sources []Source
	// FetchCache is the in-process cache shared by the session clients, it
	// is invalidated alongside the persistent cache. May be nil.
	FetchCache *fetchcache.Cache
	Tel        telemetry.API
}

type Service struct {
	cache      Cache
	sources    map[property.SourceKind]Source
	fetchCache *fetchcache.Cache
	tel        telemetry.API

	fallbacks metric.Int64Counter
}

func NewService(opts Options) (*Service, error) {
	assert.NotNil(opts.Cache, "cache")
	assert.NotNil(opts.Tel, "tel")

	sources := make(map[property.SourceKind]Source, len(opts.Sources))
	for _, src := range opts.Sources {
		assert.NotNil(src, "source")
		sources[src.Kind()] = src
	}

	fallbacks, err := meter.Int64Counter(
		"property_cache.stale_fallbacks",
		metric.WithDescription("stale entries served because a live fetch failed"),
	)
	if err != nil {
		return nil, err
	}

	return &Service{
		cache:      opts.Cache,
		sources:    sources,
		fetchCache: opts.FetchCache,
		tel:        telemetry.NewScopedAPI("lookup", opts.Tel),
		fallbacks:  fallbacks,
	}, nil
}

// Kinds lists the registered sources in the fixed source order.
func (s *Service) Kinds() []property.SourceKind {
	var out []property.SourceKind
	for _, kind := range property.Sources() {
		if _, ok := s.sources[kind]; ok {
			out = append(out, kind)
		}
	}
	return out
}

// FetchSource returns the record of source for the PIN in pinStr.
//
// A fresh cache entry is returned without touching the source. Otherwise the
// source is queried and whatever record it produces is cached, errors
// included. When the source fails outright a stale entry is served if there
// is one, else the failure is returned.
func (s *Service) FetchSource(ctx context.Context, pinStr string, source property.SourceKind) (Result, error) {
	p, err := pin.Parse(pinStr)
	if err != nil {
		return Result{}, err
	}
	return s.Fetch(ctx, p, source)
}

// Fetch is FetchSource for an already validated PIN.
func (s *Service) Fetch(ctx context.Context, p pin.PIN, source property.SourceKind) (Result, error) {
	src, ok := s.sources[source]
	if !ok {
		return Result{}, fmt.Errorf("no source registered for '%s'", source)
	}

	ctx, span := tracer.Start(ctx, "service:Fetch")
	defer span.End()

	// a broken cache only costs us the shortcut and the fallback
	entry, cached, err := s.cache.Get(ctx, p, source)
	if err != nil {
		s.tel.ReportBroken(report_lookup_cache_read, p.String(), string(source), err)
		cached = false
	}
	if cached && !entry.Stale {
		return Result{
			Record:   entry.Record,
			Cached:   true,
			CachedAt: entry.FetchedAt,
		}, nil
	}

	record, err := src.Lookup(ctx, p)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "live fetch failed")

		if ctx.Err() != nil || !cached {
			return Result{}, err
		}
		s.fallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(source))))
		s.tel.ReportWarning(report_lookup_fallback, p.String(), string(source), err)
		return Result{
			Record:   entry.Record,
			Cached:   true,
			CachedAt: entry.FetchedAt,
			Stale:    true,
		}, nil
	}

	err = s.cache.Upsert(ctx, record)
	if err != nil {
		s.tel.ReportBroken(report_lookup_cache_write, p.String(), string(source), err)
	}
	return Result{Record: record}, nil
}

// ClearCache drops every cached source of the PIN in pinStr, or everything
// when pinStr is empty. It returns the number of persistent entries removed.
func (s *Service) ClearCache(ctx context.Context, pinStr string) (int64, error) {
	var target *pin.PIN
	if pinStr != "" {
		p, err := pin.Parse(pinStr)
		if err != nil {
			return 0, err
		}
		target = &p
	}

	removed, err := s.cache.Clear(ctx, target)
	if err != nil {
		return 0, err
	}
	if s.fetchCache != nil {
		s.fetchCache.Invalidate(target)
	}
	return removed, nil
}
