package rightmove

import (
	"context"
	"fmt"
	"time"

	"property-valuation/models"
	"property-valuation/services"
	"property-valuation/utils"
)

const (
	// DefaultMaxResults is the most listings the site will page through.
	DefaultMaxResults = 1000
	// DefaultResultsPerPage is the largest page size the site accepts.
	DefaultResultsPerPage = 499
)

// PageLoader renders search result pages.
type PageLoader interface {
	ResultCount(ctx context.Context, pageURL string) (int, error)
	LoadPage(ctx context.Context, pageURL string, category models.Category) (models.RawPage, error)
}

// ScraperOptions tunes pagination and concurrency. Zero values select the defaults.
type ScraperOptions struct {
	MaxResults     int
	ResultsPerPage int
	MaxConcurrency int
	RateLimitMs    int
}

// Scraper fetches every page of a search and cleans the results into
// Properties. It implements services.PropertyFinder.
type Scraper struct {
	loader  PageLoader
	cleaner *services.Cleaner
	logger  *utils.Logger
	retry   *utils.RetryConfig
	opts    ScraperOptions
}

// NewScraper creates a Scraper on top of loader.
func NewScraper(loader PageLoader, retry *utils.RetryConfig, logger *utils.Logger, opts ScraperOptions) *Scraper {
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	if opts.ResultsPerPage <= 0 {
		opts.ResultsPerPage = DefaultResultsPerPage
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}
	if retry == nil {
		retry = &utils.RetryConfig{MaxAttempts: 3, BaseDelay: 2 * time.Second, Logger: logger}
	}
	return &Scraper{
		loader:  loader,
		cleaner: services.NewCleaner(logger),
		logger:  logger,
		retry:   retry,
		opts:    opts,
	}
}

// FindProperties returns the cleaned listings of every result page. Any page
// that still fails after retries fails the whole search.
func (s *Scraper) FindProperties(ctx context.Context, search models.SearchParameters) ([]models.Property, error) {
	firstURL := search.URL()
	s.logger.Info("[rightmove] Searching %s listings: %s", search.Category, firstURL)

	var count int
	err := s.retry.Do(ctx, "result-count", func(ctx context.Context) error {
		var err error
		count, err = s.loader.ResultCount(ctx, firstURL)
		return err
	})
	if err != nil {
		return nil, err
	}

	if count > s.opts.MaxResults {
		s.logger.Info("[rightmove] %d results found, capping at %d", count, s.opts.MaxResults)
		count = s.opts.MaxResults
	}
	if count == 0 {
		s.logger.Info("[rightmove] No %s listings found", search.Category)
		return []models.Property{}, nil
	}

	urls := s.pageURLs(search, count)
	pages := make([]models.RawPage, len(urls))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pool := utils.NewWorkerPool(s.opts.MaxConcurrency, s.opts.RateLimitMs)
	visited := utils.NewURLSet()
	for i, u := range urls {
		if !visited.Add(u) {
			continue
		}
		i, u := i, u
		pool.Go(ctx, func(ctx context.Context) error {
			op := fmt.Sprintf("%s-page-%d", search.Category, i+1)
			err := s.retry.Do(ctx, op, func(ctx context.Context) error {
				page, err := s.loader.LoadPage(ctx, u, search.Category)
				if err != nil {
					return err
				}
				pages[i] = page
				return nil
			})
			if err != nil {
				cancel()
				return err
			}
			s.logger.Debug("[rightmove] Page %d/%d loaded: %d cards", i+1, len(urls), len(pages[i].Cards))
			return nil
		})
	}
	if err := pool.Wait(); err != nil {
		s.logger.Error("[rightmove] Search failed: %v", err)
		return nil, err
	}

	properties := s.cleaner.Clean(pages...)
	if properties == nil {
		properties = []models.Property{}
	}
	s.logger.Info("[rightmove] Collected %d %s listings from %d pages", len(properties), search.Category, visited.Size())
	return properties, nil
}

func (s *Scraper) pageURLs(search models.SearchParameters, count int) []string {
	var urls []string
	for index := 0; index < count; index += s.opts.ResultsPerPage {
		urls = append(urls, search.PageURL(index, s.opts.ResultsPerPage))
	}
	return urls
}
