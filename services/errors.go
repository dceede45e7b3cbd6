package services

import "errors"

var (
	// ErrCacheUnavailable marks a cache read or write that failed in transport.
	// Callers recover by treating the read as a miss or skipping the write.
	ErrCacheUnavailable = errors.New("cache unavailable")
	// ErrUpstreamFetch is fatal for the request; no partial ranking is produced.
	ErrUpstreamFetch = errors.New("upstream fetch failed")
	// ErrDegenerateRate is returned for a zero monthly rate or a non-finite result.
	ErrDegenerateRate = errors.New("mortgage interest rate is degenerate")
	ErrDegenerateCost = errors.New("investment cost is zero")
	// ErrMalformedPayload is returned when a cached entry fails schema validation.
	ErrMalformedPayload = errors.New("malformed cache payload")
	ErrNoSamples        = errors.New("no rental samples")
)
