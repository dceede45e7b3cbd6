package services

import (
	"context"
	"errors"
	"time"

	"property-valuation/metrics"
	"property-valuation/utils"
)

// DefaultCacheTTL is how long ranked results, listings and locations stay cached.
const DefaultCacheTTL = 30 * time.Minute

// Cache is the subset of storage.Cache the engines need.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// cacheAside wraps a Cache so that every failure is soft: reads that fail
// become misses and writes that fail are dropped. Failures are logged and counted.
type cacheAside struct {
	cache   Cache
	name    string
	ttl     time.Duration
	timeout time.Duration
	logger  *utils.Logger
	metrics *metrics.Metrics
}

func (c cacheAside) load(ctx context.Context, key string) (string, bool) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	payload, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("[%s] Failed to load from cache %q: %v", c.name, key, errors.Join(ErrCacheUnavailable, err))
		c.metrics.CacheLookup(c.name, "error")
		return "", false
	}
	if !ok {
		c.logger.Info("[%s] No cached data for %q", c.name, key)
		c.metrics.CacheLookup(c.name, "miss")
		return "", false
	}
	c.logger.Info("[%s] Loaded payload from cache %q", c.name, key)
	c.metrics.CacheLookup(c.name, "hit")
	return payload, true
}

// malformed records a hit whose payload could not be decoded.
func (c cacheAside) malformed(key string, err error) {
	c.logger.Warn("[%s] Discarding malformed cache entry %q: %v", c.name, key, err)
	c.metrics.CacheLookup(c.name, "malformed")
}

func (c cacheAside) store(ctx context.Context, key string, encode func() (string, error)) {
	payload, err := encode()
	if err != nil {
		c.logger.Warn("[%s] Failed to encode cache entry %q: %v", c.name, key, err)
		c.metrics.CacheWriteFailures.WithLabelValues(c.name).Inc()
		return
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.Warn("[%s] Failed to save to cache %q: %v", c.name, key, errors.Join(ErrCacheUnavailable, err))
		c.metrics.CacheWriteFailures.WithLabelValues(c.name).Inc()
		return
	}
	c.logger.Info("[%s] Saved payload to cache %q", c.name, key)
}
