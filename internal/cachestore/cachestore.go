// Package cachestore persists the latest record of every (pin, source) pair.
package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("cachestore")

const (
	report_store_decode = "store.decode"
	report_store_clear  = "store.clear"
)

// MaxAge is how old an entry may be before it is stale, an entry exactly
// MaxAge old is still fresh.
const MaxAge = 7 * 24 * time.Hour

// IsStale reports whether something fetched at fetchedAt is stale at now.
func IsStale(fetchedAt, now time.Time) bool {
	return now.Sub(fetchedAt) > MaxAge
}

// Entry is a stored record.
type Entry struct {
	Record    property.Record
	FetchedAt time.Time
	Stale     bool
}

type Store struct {
	qry  *db.Queries
	time chrono.TimeAPI
	tel  telemetry.API

	hits   metric.Int64Counter
	misses metric.Int64Counter
}

func NewStore(database *sql.DB, time chrono.TimeAPI, tel telemetry.API) (*Store, error) {
	assert.NotNil(database, "database")
	assert.NotNil(time, "time")
	assert.NotNil(tel, "tel")

	hits, err := meter.Int64Counter(
		"property_cache.hits",
		metric.WithDescription("persistent cache lookups that found an entry"),
	)
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter(
		"property_cache.misses",
		metric.WithDescription("persistent cache lookups that found nothing"),
	)
	if err != nil {
		return nil, err
	}

	return &Store{
		qry:    db.New(database),
		time:   time,
		tel:    telemetry.NewScopedAPI("cachestore", tel),
		hits:   hits,
		misses: misses,
	}, nil
}

func unavailable(op string, err error) error {
	return property.NewError(property.CodeBackendUnavailable, "", fmt.Errorf("%s: %w", op, err))
}

func (s *Store) toEntry(row db.PropertyCache) (Entry, error) {
	source, err := property.ParseSourceKind(row.Source)
	if err != nil {
		return Entry{}, err
	}
	fetchedAt := time.UnixMilli(row.FetchedAt).In(chrono.Chicago())
	record := property.Record{
		Source:    source,
		PIN:       row.Pin,
		Error:     row.Error,
		ErrorCode: property.ErrorCode(row.ErrorCode),
		FetchedAt: fetchedAt,
	}
	if row.Payload.Valid {
		payload, err := property.DecodePayload(source, []byte(row.Payload.String))
		if err != nil {
			return Entry{}, err
		}
		record.Payload = payload
	}
	return Entry{
		Record:    record,
		FetchedAt: fetchedAt,
		Stale:     IsStale(fetchedAt, s.time.Now()),
	}, nil
}

// Get returns the stored record of (p, source). A row that no longer
// decodes is reported and treated as missing.
func (s *Store) Get(ctx context.Context, p pin.PIN, source property.SourceKind) (Entry, bool, error) {
	attrs := metric.WithAttributes(attribute.String("source", string(source)))

	row, err := s.qry.GetCacheEntry(ctx, db.GetCacheEntryParams{
		Pin:    p.String(),
		Source: string(source),
	})
	if errors.Is(err, sql.ErrNoRows) {
		s.misses.Add(ctx, 1, attrs)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, unavailable("get cache entry", err)
	}

	entry, err := s.toEntry(row)
	if err != nil {
		s.tel.ReportWarning(report_store_decode, p.String(), string(source), err)
		s.misses.Add(ctx, 1, attrs)
		return Entry{}, false, nil
	}
	s.hits.Add(ctx, 1, attrs)
	return entry, true, nil
}

// Upsert stores record, replacing whatever was stored for its (pin, source).
func (s *Store) Upsert(ctx context.Context, record property.Record) error {
	row := db.PropertyCache{
		Pin:       record.PIN,
		Source:    string(record.Source),
		Error:     record.Error,
		ErrorCode: string(record.ErrorCode),
		FetchedAt: record.FetchedAt.UnixMilli(),
	}
	if record.Payload != nil {
		payload, err := json.Marshal(record.Payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", record.Source, err)
		}
		row.Payload = sql.NullString{String: string(payload), Valid: true}
	}

	err := s.qry.UpsertCacheEntry(ctx, row)
	if err != nil {
		return unavailable("upsert cache entry", err)
	}
	return nil
}

// Clear removes every source of p, or everything when p is nil. It returns
// the number of removed entries.
func (s *Store) Clear(ctx context.Context, p *pin.PIN) (int64, error) {
	var (
		removed int64
		err     error
	)
	if p == nil {
		removed, err = s.qry.DeleteAllCacheEntries(ctx)
	} else {
		removed, err = s.qry.DeleteCacheEntriesForPin(ctx, p.String())
	}
	if err != nil {
		return 0, unavailable("clear cache", err)
	}
	s.tel.ReportDebug(report_store_clear, removed)
	return removed, nil
}

// ListStale returns up to limit stale entries, oldest first.
func (s *Store) ListStale(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	// fetched_at is in milliseconds, anything strictly older than the
	// cutoff is more than MaxAge old
	cutoff := s.time.Now().Add(-MaxAge).UnixMilli()
	rows, err := s.qry.ListStaleCacheEntries(ctx, db.ListStaleCacheEntriesParams{
		Before: cutoff,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, unavailable("list stale entries", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry, err := s.toEntry(row)
		if err != nil {
			s.tel.ReportWarning(report_store_decode, row.Pin, row.Source, err)
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Count is the number of stored entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.qry.CountCacheEntries(ctx)
	if err != nil {
		return 0, unavailable("count cache entries", err)
	}
	return count, nil
}
