package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"property-valuation/api"
	"property-valuation/config"
	"property-valuation/storage"
	"property-valuation/utils"
)

func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the location and valuation HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: HTTP_ADDR)")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	a := newApp(ctx, cfg)
	defer a.Close()

	if pc, ok := a.cache.(*storage.PostgresCache); ok {
		go purgeExpired(ctx, pc, cfg.CacheTTL, a.logger)
	}

	server := api.NewServer(a.valuations, a.locations, a.logger, a.metrics, api.Options{
		Addr:           cfg.HTTPAddr,
		SearchRadius:   cfg.SearchRadius,
		TopResults:     cfg.TopResults,
		RequestTimeout: cfg.RequestTimeout,
	})
	return server.Run(ctx)
}

// purgeExpired deletes stale rows once per TTL until ctx ends.
func purgeExpired(ctx context.Context, pc *storage.PostgresCache, every time.Duration, logger *utils.Logger) {
	if every <= 0 {
		every = 30 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := pc.Purge(ctx)
			if err != nil {
				logger.Warn("Cache purge failed: %v", err)
				continue
			}
			logger.Debug("Purged %d expired cache rows", n)
		}
	}
}
