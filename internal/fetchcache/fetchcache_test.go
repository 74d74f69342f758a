package fetchcache

import (
	"testing"
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/stretchr/testify/require"
)

func TestExpiry(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := New(5*time.Minute, 16, clock)
	key := NewKey(property.TaxPortal, pin.MustParse("01-01-120-006-0000"))

	_, ok := cache.Get(key)
	require.False(t, ok)

	cache.Set(key, "<html>")
	value, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, "<html>", value)

	clock.Advance(5*time.Minute - time.Second)
	_, ok = cache.Get(key)
	require.True(t, ok)

	clock.Advance(time.Second)
	_, ok = cache.Get(key)
	require.False(t, ok)
}

func TestOverwrite(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := New(0, 0, clock)
	require.Equal(t, DefaultTTL, cache.TTL())

	key := NewKey(property.GIS, pin.MustParse("01-01-120-006-0000"))
	cache.Set(key, 1)
	cache.Set(key, 2)
	value, ok := cache.Get(key)
	require.True(t, ok)
	require.Equal(t, 2, value)
}

func TestInvalidate(t *testing.T) {
	clock := chrono.NewFakeTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	cache := New(time.Minute, 64, clock)

	a := pin.MustParse("01-01-120-006-0000")
	b := pin.MustParse("16-10-421-053-0000")
	for _, source := range property.Sources() {
		cache.Set(NewKey(source, a), "a")
		cache.Set(NewKey(source, b), "b")
	}
	require.Equal(t, 8, cache.Len())

	cache.Invalidate(&a)
	require.Equal(t, 4, cache.Len())
	for _, source := range property.Sources() {
		_, ok := cache.Get(NewKey(source, a))
		require.False(t, ok)
		_, ok = cache.Get(NewKey(source, b))
		require.True(t, ok)
	}

	cache.Invalidate(nil)
	require.Equal(t, 0, cache.Len())
}
