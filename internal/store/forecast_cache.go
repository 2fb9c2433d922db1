package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/skisignal/internal/observability"
	"github.com/i474232898/skisignal/internal/weather"
)

const bucketLayout = "2006-01-02T15Z"

type cacheEntry struct {
	forecast weather.ResortForecast
	bucket   time.Time
}

// ForecastCache is a concurrency-safe, hour-bucketed memo of resort forecasts.
// Buckets are UTC hours. Concurrent misses on the same key share one fetch.
type ForecastCache struct {
	mu   sync.RWMutex
	data map[string]cacheEntry

	group singleflight.Group

	// retention configuration
	maxAge       time.Duration // entries whose bucket is older than this are pruned (0 = keep)
	fetchTimeout time.Duration // bound on a detached fetch

	clock   clockwork.Clock
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
}

// Option customizes a ForecastCache.
type Option func(*ForecastCache)

// WithClock swaps the time source, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(fc *ForecastCache) { fc.clock = c }
}

// WithLogger sets the cache logger.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(fc *ForecastCache) { fc.logger = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *observability.Metrics) Option {
	return func(fc *ForecastCache) { fc.metrics = m }
}

// WithFetchTimeout bounds fetches that outlive their caller.
func WithFetchTimeout(d time.Duration) Option {
	return func(fc *ForecastCache) { fc.fetchTimeout = d }
}

// NewForecastCache creates a cache that prunes buckets older than maxAge.
// If maxAge is <= 0, entries are never pruned.
func NewForecastCache(maxAge time.Duration, opts ...Option) *ForecastCache {
	fc := &ForecastCache{
		data:         make(map[string]cacheEntry),
		maxAge:       maxAge,
		fetchTimeout: 30 * time.Second,
		clock:        clockwork.NewRealClock(),
		logger:       zap.NewNop().Sugar(),
		metrics:      observability.NewMetricsForTesting(),
	}
	for _, o := range opts {
		o(fc)
	}
	return fc
}

// Key returns the cache key for a resort in the hour bucket containing t.
func Key(resortID string, t time.Time) string {
	return resortID + "@" + t.UTC().Truncate(time.Hour).Format(bucketLayout)
}

// GetOrFetch returns the cached forecast for the current hour or runs fetch once,
// however many callers ask concurrently. The fetch is detached from ctx: a caller
// that gives up gets ctx.Err() while the fetch still completes and fills the cache.
// Errors are never cached.
func (c *ForecastCache) GetOrFetch(ctx context.Context, resortID string, fetch weather.FetchFunc) (weather.ResortForecast, error) {
	now := c.clock.Now()
	key := Key(resortID, now)

	if f, ok := c.get(key); ok {
		c.metrics.CacheLookups.WithLabelValues("hit").Inc()
		return f, nil
	}

	ch := c.group.DoChan(key, func() (_ interface{}, err error) {
		// DoChan re-panics on its own goroutine, out of reach of any caller's recover.
		defer func() {
			if r := recover(); r != nil {
				c.logger.Errorw("forecast fetch panicked", "key", key, "panic", r)
				err = fmt.Errorf("%w: fetch panicked: %v", weather.ErrUpstream, r)
			}
		}()

		// A caller that lost the race to a just-finished fetch lands here after the store.
		if f, ok := c.get(key); ok {
			return f, nil
		}

		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		f, err := fetch(fetchCtx)
		if err != nil {
			return weather.ResortForecast{}, err
		}
		c.put(key, f, now.UTC().Truncate(time.Hour))
		return f, nil
	})

	select {
	case <-ctx.Done():
		return weather.ResortForecast{}, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.CacheLookups.WithLabelValues("shared").Inc()
		} else {
			c.metrics.CacheLookups.WithLabelValues("miss").Inc()
		}
		if res.Err != nil {
			return weather.ResortForecast{}, res.Err
		}
		return res.Val.(weather.ResortForecast), nil
	}
}

// Prune drops entries whose hour bucket is older than maxAge and returns how many were removed.
func (c *ForecastCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pruneLocked()
}

// Len returns the number of cached entries.
func (c *ForecastCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

func (c *ForecastCache) get(key string) (weather.ResortForecast, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.data[key]
	if !ok {
		return weather.ResortForecast{}, false
	}
	return e.forecast, true
}

func (c *ForecastCache) put(key string, f weather.ResortForecast, bucket time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.data[key] = cacheEntry{forecast: f, bucket: bucket}

	// Enforce retention by age.
	if removed := c.pruneLocked(); removed > 0 {
		c.logger.Debugw("pruned forecast cache", "removed", removed)
	}
	c.metrics.CacheEntries.Set(float64(len(c.data)))
}

func (c *ForecastCache) pruneLocked() int {
	if c.maxAge <= 0 {
		return 0
	}
	cutoff := c.clock.Now().UTC().Truncate(time.Hour).Add(-c.maxAge)
	removed := 0
	for k, e := range c.data {
		if e.bucket.Before(cutoff) {
			delete(c.data, k)
			removed++
		}
	}
	c.metrics.CacheEntries.Set(float64(len(c.data)))
	return removed
}
