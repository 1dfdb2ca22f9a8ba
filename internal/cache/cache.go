// Package cache memoises proximity-search results. Any venue write
// invalidates every cached search.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gravadigital/bienestar-api/internal/geo"
)

// Generation identifies the invalidation epoch a lookup ran in. Set only
// stores results whose generation is still current.
type Generation int64

// NearbyCache stores FindNearby results keyed by query
type NearbyCache interface {
	Get(ctx context.Context, lat, lon, radiusKm float64) ([]geo.Nearby, Generation, bool)
	Set(ctx context.Context, gen Generation, lat, lon, radiusKm float64, results []geo.Nearby)
	Invalidate(ctx context.Context)
}

// QueryKey renders the query part of a cache key
func QueryKey(lat, lon, radiusKm float64) string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return f(lat) + ":" + f(lon) + ":" + f(radiusKm)
}

// maxLocalEntries caps the in-process cache; writes beyond it are dropped
// until expired entries are swept
const maxLocalEntries = 10000

type entry struct {
	results   []geo.Nearby
	expiresAt time.Time
}

// Local is an in-process TTL cache used when no Redis is configured
type Local struct {
	mu    sync.Mutex
	ttl   time.Duration
	gen   Generation
	items map[string]entry
	now   func() time.Time
}

// NewLocal creates an empty local cache
func NewLocal(ttl time.Duration) *Local {
	return &Local{ttl: ttl, items: make(map[string]entry), now: time.Now}
}

func (c *Local) Get(ctx context.Context, lat, lon, radiusKm float64) ([]geo.Nearby, Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := QueryKey(lat, lon, radiusKm)
	e, ok := c.items[key]
	if !ok {
		return nil, c.gen, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.items, key)
		return nil, c.gen, false
	}
	return e.results, c.gen, true
}

func (c *Local) Set(ctx context.Context, gen Generation, lat, lon, radiusKm float64, results []geo.Nearby) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	if len(c.items) >= maxLocalEntries && c.sweep() == 0 {
		return
	}
	c.items[QueryKey(lat, lon, radiusKm)] = entry{results: results, expiresAt: c.now().Add(c.ttl)}
}

func (c *Local) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.items = make(map[string]entry)
}

// Cleanup removes expired entries and reports how many were dropped
func (c *Local) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sweep()
}

// Len reports the number of stored entries, expired ones included
func (c *Local) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.items)
}

// sweep expects c.mu to be held
func (c *Local) sweep() int {
	now := c.now()
	removed := 0
	for key, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}
	return removed
}

// Noop never stores anything
type Noop struct{}

func (Noop) Get(context.Context, float64, float64, float64) ([]geo.Nearby, Generation, bool) {
	return nil, 0, false
}
func (Noop) Set(context.Context, Generation, float64, float64, float64, []geo.Nearby) {}
func (Noop) Invalidate(context.Context)                                               {}
