package session

import (
	"context"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/fetchcache"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"
)

// Cached returns the memoized result of fetch for (source, p), calling fetch
// only on a miss. Failed fetches are never stored. cache may be nil.
//
// Concurrent misses for the same key each run their own fetch, sharing a
// fetch would let one caller's cancellation fail the others.
func Cached[T any](
	ctx context.Context,
	cache *fetchcache.Cache,
	source property.SourceKind,
	p pin.PIN,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	if cache == nil {
		return fetch(ctx)
	}

	key := fetchcache.NewKey(source, p)
	if value, ok := cache.Get(key); ok {
		if typed, ok := value.(T); ok {
			return typed, nil
		}
	}

	result, err := fetch(ctx)
	if err != nil {
		return result, err
	}
	cache.Set(key, result)
	return result, nil
}
