package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/telemetry"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/db"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/lib/sqliteutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var (
	pinA = pin.MustParse("01-01-120-006-0000")
	pinB = pin.MustParse("16-10-421-053-0000")
)

func newTestStore(t *testing.T) (*Store, *chrono.FakeTime, *telemetry.RecorderAPI) {
	clock := chrono.NewFakeTime(time.Date(2024, 6, 1, 12, 0, 0, 0, chrono.Chicago()))
	tel := &telemetry.RecorderAPI{}
	store, err := NewStore(sqliteutil.OpenMemory(t, sqliteutil.WithSchema(db.Schema)), clock, tel)
	require.NoError(t, err)
	return store, clock, tel
}

func clerkRecord(p pin.PIN, fetchedAt time.Time, asOf string) property.Record {
	return property.Record{
		Source:    property.Clerk,
		PIN:       p.String(),
		FetchedAt: fetchedAt,
		Payload: &property.ClerkData{
			DataAsOf:        asOf,
			SoldTaxes:       []property.SoldTax{{TaxYear: "2019", Status: "Redeemed"}},
			DelinquentTaxes: []property.DelinquentTax{},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t)

	_, ok, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.False(t, ok)

	record := clerkRecord(pinA, clock.Now(), "05/31/2024")
	require.NoError(t, store.Upsert(ctx, record))

	entry, ok, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, entry.Stale)
	require.True(t, clock.Now().Equal(entry.FetchedAt))

	diff := cmp.Diff(record.Payload, entry.Record.Payload)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestErrorRecordsAreStored(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t)

	err := property.Errorf(property.CodeNotFound, property.GIS, "no parcel for %s", pinA)
	require.NoError(t, store.Upsert(ctx, property.ErrorRecord(property.GIS, pinA.String(), clock.Now(), err)))

	entry, ok, getErr := store.Get(ctx, pinA, property.GIS)
	require.NoError(t, getErr)
	require.True(t, ok)
	require.Nil(t, entry.Record.Payload)
	require.Equal(t, property.CodeNotFound, entry.Record.ErrorCode)
	require.Equal(t, "no parcel for 01-01-120-006-0000", entry.Record.Error)
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, clerkRecord(pinA, clock.Now(), "first")))
	clock.Advance(time.Hour)
	require.NoError(t, store.Upsert(ctx, clerkRecord(pinA, clock.Now(), "second")))

	entry, ok, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", entry.Record.Payload.(*property.ClerkData).DataAsOf)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestStaleBoundary(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, clerkRecord(pinA, clock.Now(), "x")))

	clock.Advance(MaxAge)
	entry, _, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.False(t, entry.Stale)
	stale, err := store.ListStale(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, stale)

	clock.Advance(time.Second)
	entry, _, err = store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.True(t, entry.Stale)
	stale, err = store.ListStale(ctx, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	require.Equal(t, pinA.String(), stale[0].Record.PIN)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store, clock, _ := newTestStore(t)

	for _, p := range []pin.PIN{pinA, pinB} {
		require.NoError(t, store.Upsert(ctx, clerkRecord(p, clock.Now(), "x")))
		require.NoError(t, store.Upsert(ctx, property.ErrorRecord(property.GIS, p.String(), clock.Now(), property.NewError(property.CodeNotFound, property.GIS, nil))))
	}

	removed, err := store.Clear(ctx, &pinA)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)

	_, ok, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.False(t, ok)
	_, ok, err = store.Get(ctx, pinB, property.Clerk)
	require.NoError(t, err)
	require.True(t, ok)

	removed, err = store.Clear(ctx, nil)
	require.NoError(t, err)
	require.EqualValues(t, 2, removed)
	count, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestUndecodableRowIsMiss(t *testing.T) {
	ctx := context.Background()
	database := sqliteutil.OpenMemory(t, sqliteutil.WithSchema(db.Schema))
	tel := &telemetry.RecorderAPI{}
	store, err := NewStore(database, chrono.NewStandardTime(), tel)
	require.NoError(t, err)

	_, err = database.Exec(
		`insert into property_cache (pin, source, payload, fetched_at) values (?, 'clerk', '{not json', 0)`,
		pinA.String(),
	)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, pinA, property.Clerk)
	require.NoError(t, err)
	require.False(t, ok)
	require.Len(t, tel.Reports("warning"), 1)
}

func TestIsStale(t *testing.T) {
	now := time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)
	require.False(t, IsStale(now.Add(-MaxAge), now))
	require.True(t, IsStale(now.Add(-MaxAge-time.Millisecond), now))
	require.False(t, IsStale(now, now))
}
