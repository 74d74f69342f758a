// Package fetchcache memoizes raw upstream responses for a short window so
// bursts of identical requests only reach a source once.
package fetchcache

import (
	"time"

	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/assert"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/components/chrono"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/pin"
	"github.com/mzeshankhokhar/cook-county-property-system-v2.2.0/internal/property"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultTTL  = 5 * time.Minute
	DefaultSize = 4096
)

// Key identifies one upstream fetch.
type Key struct {
	Source property.SourceKind
	PIN    string
}

// NewKey builds the key of a (source, pin) pair.
func NewKey(source property.SourceKind, p pin.PIN) Key {
	return Key{Source: source, PIN: p.Digits()}
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is safe for concurrent use. Whether an entry is expired is decided by
// the injected clock, the LRU's own expiry only bounds memory.
type Cache struct {
	ttl   time.Duration
	time  chrono.TimeAPI
	inner *expirable.LRU[Key, entry]
}

// New creates a cache, ttl and size fall back to their defaults when <= 0.
func New(ttl time.Duration, size int, time chrono.TimeAPI) *Cache {
	assert.NotNil(time, "time")
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if size <= 0 {
		size = DefaultSize
	}
	return &Cache{
		ttl:  ttl,
		time: time,
		// the lru evicts a little after our own expiry so it never removes
		// something the clock still considers fresh
		inner: expirable.NewLRU[Key, entry](size, nil, ttl*2),
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key Key) (any, bool) {
	cached, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	if c.time.Now().Sub(cached.storedAt) >= c.ttl {
		c.inner.Remove(key)
		return nil, false
	}
	return cached.value, true
}

// Set stores value under key, overwriting any previous value.
func (c *Cache) Set(key Key, value any) {
	c.inner.Add(key, entry{value: value, storedAt: c.time.Now()})
}

// Invalidate removes the entries of every source for p, or everything when p
// is nil.
func (c *Cache) Invalidate(p *pin.PIN) {
	if p == nil {
		c.inner.Purge()
		return
	}
	for _, source := range property.Sources() {
		c.inner.Remove(NewKey(source, *p))
	}
}

// Len is the number of entries currently held, including expired ones that
// have not been evicted yet.
func (c *Cache) Len() int {
	return c.inner.Len()
}

// TTL returns the expiry window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}
