package utils

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLSetNoDuplicates(t *testing.T) {
	s := NewURLSet()

	assert.True(t, s.Add("https://example.com/find.html?index=0"))
	assert.False(t, s.Add("https://example.com/find.html?index=0"))
	assert.Equal(t, 1, s.Size())
}

func TestURLSetConcurrency(t *testing.T) {
	s := NewURLSet()
	var added int64

	pool := NewWorkerPool(10, 0)
	for i := 0; i < 100; i++ {
		pool.Go(context.Background(), func(context.Context) error {
			if s.Add("https://example.com/same") {
				atomic.AddInt64(&added, 1)
			}
			return nil
		})
	}
	require.NoError(t, pool.Wait())

	assert.Equal(t, int64(1), added)
}

func TestWorkerPoolRateLimit(t *testing.T) {
	rateLimitMs := 50
	pool := NewWorkerPool(1, rateLimitMs)

	var mu sync.Mutex
	var timestamps []time.Time
	for i := 0; i < 3; i++ {
		pool.Go(context.Background(), func(context.Context) error {
			mu.Lock()
			timestamps = append(timestamps, time.Now())
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, pool.Wait())

	min := time.Duration(rateLimitMs) * time.Millisecond
	for i := 1; i < len(timestamps); i++ {
		gap := timestamps[i].Sub(timestamps[i-1])
		assert.GreaterOrEqual(t, gap, min, "gap between job %d and %d", i-1, i)
	}
}

func TestWorkerPoolReturnsFirstError(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	boom := errors.New("boom")

	pool.Go(context.Background(), func(context.Context) error { return boom })
	pool.Go(context.Background(), func(context.Context) error { return errors.New("later") })

	assert.ErrorIs(t, pool.Wait(), boom)
}

func TestWorkerPoolSkipsAfterCancel(t *testing.T) {
	pool := NewWorkerPool(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	release := make(chan struct{})
	pool.Go(ctx, func(context.Context) error {
		<-release
		return nil
	})
	cancel()

	var ran atomic.Bool
	pool.Go(ctx, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	close(release)

	err := pool.Wait()
	assert.False(t, ran.Load())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryEventuallySucceeds(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	calls := 0

	err := r.Do(context.Background(), "flaky", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUp(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, Logger: NewNopLogger()}
	boom := errors.New("boom")

	err := r.Do(context.Background(), "broken", func(context.Context) error { return boom })

	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "broken failed after 2 attempts")
}

func TestRetryStopsOnCancel(t *testing.T) {
	r := &RetryConfig{MaxAttempts: 5, BaseDelay: time.Hour, Logger: NewNopLogger()}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0

	err := r.Do(ctx, "cancelled", func(context.Context) error {
		calls++
		cancel()
		return errors.New("fail")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
