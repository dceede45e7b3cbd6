package services

import (
	"context"
	"fmt"
	"strings"

	"property-valuation/metrics"
	"property-valuation/models"
	"property-valuation/utils"
)

// LocationFetcher resolves free text into portal locations.
type LocationFetcher interface {
	FetchLocations(ctx context.Context, query string) ([]models.Location, error)
}

// LocationEngine answers typeahead queries through the cache.
type LocationEngine struct {
	fetcher LocationFetcher
	cache   cacheAside
	logger  *utils.Logger
}

func NewLocationEngine(fetcher LocationFetcher, cache Cache, logger *utils.Logger, m *metrics.Metrics, opts EngineOptions) *LocationEngine {
	if m == nil {
		m = metrics.New()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	return &LocationEngine{
		fetcher: fetcher,
		cache: cacheAside{
			cache: cache, name: "location", ttl: opts.CacheTTL, timeout: opts.CacheTimeout,
			logger: logger, metrics: m,
		},
		logger: logger,
	}
}

// FindLocations returns suggestions for the input. Blank input yields no suggestions.
func (e *LocationEngine) FindLocations(ctx context.Context, input string) ([]models.Location, error) {
	if strings.TrimSpace(input) == "" {
		return []models.Location{}, nil
	}
	e.logger.Info("[location] Finding locations for %q", input)

	key := "location:" + strings.ToLower(input)
	if payload, ok := e.cache.load(ctx, key); ok {
		locations, err := DecodeLocations(payload)
		if err == nil {
			return locations, nil
		}
		e.cache.malformed(key, err)
	}

	locations, err := e.fetcher.FetchLocations(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("%w: locations: %w", ErrUpstreamFetch, err)
	}
	e.cache.store(ctx, key, func() (string, error) { return EncodeLocations(locations) })
	return locations, nil
}
