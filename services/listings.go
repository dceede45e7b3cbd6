package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"property-valuation/metrics"
	"property-valuation/models"
	"property-valuation/utils"
)

// CachedFinder memoises another PropertyFinder under "properties:<search url>".
// Concurrent misses for the same search share one upstream fetch.
type CachedFinder struct {
	next   PropertyFinder
	cache  cacheAside
	logger *utils.Logger
	group  singleflight.Group
}

func NewCachedFinder(next PropertyFinder, cache Cache, logger *utils.Logger, m *metrics.Metrics, opts EngineOptions) *CachedFinder {
	if m == nil {
		m = metrics.New()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &CachedFinder{
		next: next,
		cache: cacheAside{
			cache: cache, name: "properties", ttl: opts.CacheTTL, timeout: opts.CacheTimeout,
			logger: logger, metrics: m,
		},
		logger: logger,
	}
}

func ListingsKey(search models.SearchParameters) string {
	return "properties:" + search.URL()
}

func (f *CachedFinder) FindProperties(ctx context.Context, search models.SearchParameters) ([]models.Property, error) {
	f.logger.Info("[properties] Searching for properties to %s in %s with radius %v km",
		search.Category, search.Location.DisplayName, search.Radius)

	key := ListingsKey(search)
	if payload, ok := f.cache.load(ctx, key); ok {
		properties, err := DecodeProperties(payload)
		if err == nil {
			return properties, nil
		}
		f.cache.malformed(key, err)
	}

	v, err, shared := f.group.Do(key, func() (any, error) {
		properties, err := f.next.FindProperties(ctx, search)
		if err != nil {
			return nil, err
		}
		f.cache.store(ctx, key, func() (string, error) { return EncodeProperties(properties) })
		return properties, nil
	})
	if err != nil {
		return nil, fmt.Errorf("find properties: %w", err)
	}
	if shared {
		f.logger.Debug("[properties] Shared in-flight fetch for %q", key)
	}

	properties := v.([]models.Property)
	f.logger.Info("[properties] Found %d properties to %s in %s", len(properties), search.Category, search.Location.DisplayName)
	return properties, nil
}
