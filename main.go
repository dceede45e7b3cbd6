package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"property-valuation/config"
	"property-valuation/metrics"
	"property-valuation/scraper/rightmove"
	"property-valuation/services"
	"property-valuation/storage"
	"property-valuation/utils"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "property-valuation",
		Short:         "Rank buy-to-let candidates by estimated return on investment",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand(), newRankCommand())
	return root
}

// app holds the wired pipeline shared by every subcommand.
type app struct {
	cfg        *config.Config
	logger     *utils.Logger
	metrics    *metrics.Metrics
	cache      storage.Cache
	browser    *rightmove.BrowserLoader
	valuations *services.ValuationEngine
	locations  *services.LocationEngine
}

func newApp(ctx context.Context, cfg *config.Config) *app {
	logger := utils.NewLoggerWithOptions(utils.LoggerOptions{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		HistorySize: cfg.LogHistorySize,
	})
	m := metrics.New()

	logger.Info("=== Property Valuation starting ===")
	logger.Info("Config: cache %s | ttl %v | concurrency %d | rate %dms | max results %d",
		cfg.CacheBackend, cfg.CacheTTL, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.MaxResults)

	cache := newCache(ctx, cfg, logger)
	retry := &utils.RetryConfig{MaxAttempts: cfg.MaxRetries, BaseDelay: 2 * time.Second, Logger: logger}

	browser := rightmove.NewBrowserLoader(cfg.ChromeBin, cfg.RequestTimeout, logger)
	scraper := rightmove.NewScraper(browser, retry, logger, rightmove.ScraperOptions{
		MaxResults:     cfg.MaxResults,
		ResultsPerPage: cfg.ResultsPerPage,
		MaxConcurrency: cfg.MaxConcurrency,
		RateLimitMs:    cfg.RateLimitMs,
	})

	opts := services.EngineOptions{CacheTTL: cfg.CacheTTL, CacheTimeout: cfg.CacheTimeout}
	finder := services.NewCachedFinder(scraper, cache, logger, m, opts)
	typeahead := rightmove.NewLocationClient("", cfg.RequestTimeout, retry, logger)

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		cache:      cache,
		browser:    browser,
		valuations: services.NewValuationEngine(cache, finder, logger, m, opts),
		locations:  services.NewLocationEngine(typeahead, cache, logger, m, opts),
	}
}

// newCache opens the configured backend. An unreachable backend falls back to
// the in-process cache so the pipeline keeps working uncached across restarts.
func newCache(ctx context.Context, cfg *config.Config, logger *utils.Logger) storage.Cache {
	switch cfg.CacheBackend {
	case config.CacheMemory:
		logger.Info("Using in-memory cache")
		return storage.NewMemoryCache()

	case config.CachePostgres:
		pc, err := storage.NewPostgresCache(ctx, cfg.DSN())
		if err != nil {
			logger.Error("Failed to connect to PostgreSQL: %v", err)
			logger.Warn("Falling back to in-memory cache")
			return storage.NewMemoryCache()
		}
		logger.Info("Using PostgreSQL cache (table: cache_entries)")
		return pc

	default:
		rc, err := storage.NewRedisCache(ctx, storage.RedisOptions{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: cfg.CacheTimeout,
		})
		if err != nil {
			logger.Error("Failed to connect to Redis at %s: %v", cfg.RedisAddr, err)
			logger.Warn("Falling back to in-memory cache")
			return storage.NewMemoryCache()
		}
		logger.Info("Using Redis cache at %s", cfg.RedisAddr)
		return rc
	}
}

func (a *app) Close() {
	a.browser.Close()
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("Cache close failed: %v", err)
	}
	_ = a.logger.Sync()
}
