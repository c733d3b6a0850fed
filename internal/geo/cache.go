package geo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/m3rciful/geopal/core/logger"
)

// CacheObserver is told about every cache lookup.
type CacheObserver interface {
	CacheLookup(hit bool)
}

// CachedResolver memoizes places by coordinates rounded to Precision
// decimals. Failures are not cached.
type CachedResolver struct {
	next      Resolver
	cache     *ttlcache.Cache[string, Place]
	precision int
	observer  CacheObserver
}

// NewCachedResolver wraps next. observer may be nil.
func NewCachedResolver(next Resolver, ttl time.Duration, precision int, observer CacheObserver) *CachedResolver {
	if precision < 0 {
		precision = 0
	}
	return &CachedResolver{
		next:      next,
		cache:     ttlcache.New(ttlcache.WithTTL[string, Place](ttl)),
		precision: precision,
		observer:  observer,
	}
}

// Start runs expiry cleanup until Stop is called.
func (c *CachedResolver) Start() { go c.cache.Start() }

// Stop ends expiry cleanup.
func (c *CachedResolver) Stop() { c.cache.Stop() }

func (c *CachedResolver) Resolve(ctx context.Context, lat, lon float64) (Place, error) {
	key := c.key(lat, lon)
	if item := c.cache.Get(key); item != nil {
		c.observe(ctx, true)
		return item.Value(), nil
	}
	c.observe(ctx, false)

	place, err := c.next.Resolve(ctx, lat, lon)
	if err != nil {
		return Place{}, err
	}
	c.cache.Set(key, place, ttlcache.DefaultTTL)
	return place, nil
}

func (c *CachedResolver) key(lat, lon float64) string {
	return fmt.Sprintf("%.*f,%.*f", c.precision, lat, c.precision, lon)
}

func (c *CachedResolver) observe(ctx context.Context, hit bool) {
	if logger.ShouldSampleDebug() {
		cache := "miss"
		if hit {
			cache = "hit"
		}
		logger.Debug(ctx, component, "geo.lookup", slog.String("cache", cache))
	}
	if c.observer != nil {
		c.observer.CacheLookup(hit)
	}
}
