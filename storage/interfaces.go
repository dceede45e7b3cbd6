package storage

import (
	"context"
	"time"

	"property-valuation/models"
)

// Cache is the key-value store behind every cache-aside lookup.
// Get reports a missing or expired key as ("", false, nil); errors are
// transport failures only. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// ValuationWriter is the interface for exporting a ranked valuation list.
type ValuationWriter interface {
	WriteValuations(valuations []models.Valuation) error
	Close() error
}
