package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"property-valuation/metrics"
	"property-valuation/models"
	"property-valuation/utils"
)

// PropertyFinder returns the listings matching a search.
type PropertyFinder interface {
	FindProperties(ctx context.Context, search models.SearchParameters) ([]models.Property, error)
}

// EngineOptions tunes a ValuationEngine. Zero values select the defaults.
type EngineOptions struct {
	CacheTTL         time.Duration
	CacheTimeout     time.Duration
	OutlierThreshold float64
}

// ValuationEngine ranks purchase candidates by ROI, memoising whole rankings
// in the cache.
type ValuationEngine struct {
	finder    PropertyFinder
	cache     cacheAside
	logger    *utils.Logger
	metrics   *metrics.Metrics
	threshold float64
}

func NewValuationEngine(cache Cache, finder PropertyFinder, logger *utils.Logger, m *metrics.Metrics, opts EngineOptions) *ValuationEngine {
	if m == nil {
		m = metrics.New()
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.OutlierThreshold <= 0 {
		opts.OutlierThreshold = DefaultOutlierThreshold
	}
	return &ValuationEngine{
		finder: finder,
		cache: cacheAside{
			cache: cache, name: "valuation", ttl: opts.CacheTTL, timeout: opts.CacheTimeout,
			logger: logger, metrics: m,
		},
		logger:    logger,
		metrics:   m,
		threshold: opts.OutlierThreshold,
	}
}

// ValuationKey identifies a ranking: the purchase search URL plus the
// financing assumptions. The purchase/rental toggle never affects it.
func ValuationKey(search models.SearchParameters, params models.ValuationParameters) string {
	return "valuation:" + search.ToBuy().URL() + "-" + params.String()
}

// RankProperties returns purchase candidates ordered by ROI, highest first.
// Cache problems never fail the call; a failed listing fetch always does.
func (e *ValuationEngine) RankProperties(ctx context.Context, search models.SearchParameters, params models.ValuationParameters) ([]models.Valuation, error) {
	e.logger.Info("[valuation] Ranking properties for %s with radius %v km", search.Location.DisplayName, search.Radius)

	key := ValuationKey(search, params)
	if payload, ok := e.cache.load(ctx, key); ok {
		valuations, err := DecodeValuations(payload)
		if err == nil {
			return valuations, nil
		}
		e.cache.malformed(key, err)
	}

	start := time.Now()
	rentals, purchases, err := e.fetch(ctx, search)
	if err != nil {
		return nil, err
	}

	valuations := e.Evaluate(rentals, purchases, params)
	e.metrics.ObserveValuation(start)

	e.cache.store(ctx, key, func() (string, error) { return EncodeValuations(valuations) })
	return valuations, nil
}

// fetch loads rental and purchase listings concurrently.
func (e *ValuationEngine) fetch(ctx context.Context, search models.SearchParameters) ([]models.Property, []models.Property, error) {
	var rentals, purchases []models.Property

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rentals, err = e.finder.FindProperties(gctx, search.ToRent())
		if err != nil {
			e.metrics.UpstreamErrors.WithLabelValues("find_rentals").Inc()
			return fmt.Errorf("rentals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		purchases, err = e.finder.FindProperties(gctx, search.ToBuy())
		if err != nil {
			e.metrics.UpstreamErrors.WithLabelValues("find_purchases").Inc()
			return fmt.Errorf("purchases: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		e.logger.Error("[valuation] Listing fetch failed: %v", err)
		return nil, nil, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
	}

	e.metrics.ListingsFetched.WithLabelValues(string(models.CategoryRent)).Add(float64(len(rentals)))
	e.metrics.ListingsFetched.WithLabelValues(string(models.CategoryBuy)).Add(float64(len(purchases)))
	e.logger.Info("[valuation] Fetched %d rentals and %d purchases", len(rentals), len(purchases))
	return rentals, purchases, nil
}

// Evaluate scores every purchase against a rent surface built from the
// rentals. Candidates whose score is undefined are left out.
func (e *ValuationEngine) Evaluate(rentals, purchases []models.Property, params models.ValuationParameters) []models.Valuation {
	valuations := make([]models.Valuation, 0, len(purchases))
	if len(rentals) == 0 || len(purchases) == 0 {
		return valuations
	}

	rentals = e.filterRentals(rentals)
	surface, err := NewRentSurface(rentals)
	if err != nil {
		e.logger.Warn("[valuation] Cannot build rent surface: %v", err)
		return valuations
	}
	if surface.Degenerate() {
		e.logger.Warn("[valuation] Rent samples are degenerate, using mean rent %.2f everywhere", surface.Mean())
	}

	for _, p := range purchases {
		rent := surface.Estimate(p.GeoLocation.Longitude, p.GeoLocation.Latitude)
		roi, err := Score(p.Price, rent, params)
		if err != nil {
			reason := "rate"
			if errors.Is(err, ErrDegenerateCost) {
				reason = "cost"
			}
			e.metrics.ScoringFailures.WithLabelValues(reason).Inc()
			e.logger.Warn("[valuation] Failed to score %s: %v", p.DisplayAddress, err)
			continue
		}
		valuations = append(valuations, models.Valuation{
			Property:              p,
			EstimatedRentalIncome: rent,
			ReturnOnInvestment:    roi,
		})
	}

	sort.SliceStable(valuations, func(i, j int) bool {
		return valuations[i].ReturnOnInvestment > valuations[j].ReturnOnInvestment
	})
	return valuations
}

// filterRentals keeps the rentals whose price survives the IQR filter.
func (e *ValuationEngine) filterRentals(rentals []models.Property) []models.Property {
	prices := make([]float64, len(rentals))
	for i, r := range rentals {
		prices[i] = r.Price
	}

	surviving := make(map[float64]struct{}, len(prices))
	for _, p := range FilterOutliers(prices, e.threshold) {
		surviving[p] = struct{}{}
	}

	kept := make([]models.Property, 0, len(rentals))
	for _, r := range rentals {
		if _, ok := surviving[r.Price]; ok {
			kept = append(kept, r)
		}
	}
	if dropped := len(rentals) - len(kept); dropped > 0 {
		e.logger.Info("[valuation] Dropped %d rent outliers of %d", dropped, len(rentals))
	}
	return kept
}
