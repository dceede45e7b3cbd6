package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-valuation/models"
	"property-valuation/storage"
	"property-valuation/utils"
)

type slowFinder struct {
	calls   atomic.Int32
	release chan struct{}
	result  []models.Property
}

func (f *slowFinder) FindProperties(context.Context, models.SearchParameters) ([]models.Property, error) {
	f.calls.Add(1)
	<-f.release
	return f.result, nil
}

func TestCachedFinderCachesListings(t *testing.T) {
	cache := storage.NewMemoryCache()
	next := &fakeFinder{purchases: []models.Property{purchase("p1", 200000)}}
	f := NewCachedFinder(next, cache, utils.NewNopLogger(), nil, EngineOptions{})
	ctx := context.Background()
	search := testSearch(t)

	first, err := f.FindProperties(ctx, search)
	require.NoError(t, err)
	second, err := f.FindProperties(ctx, search)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), next.calls.Load())

	_, ok, err := cache.Get(ctx, ListingsKey(search))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCachedFinderKeysByCategory(t *testing.T) {
	search := testSearch(t)
	assert.NotEqual(t, ListingsKey(search.ToBuy()), ListingsKey(search.ToRent()))
	assert.Equal(t, "properties:"+search.URL(), ListingsKey(search))
}

func TestCachedFinderPropagatesError(t *testing.T) {
	boom := errors.New("blocked")
	next := &fakeFinder{buyErr: boom}
	cache := storage.NewMemoryCache()
	f := NewCachedFinder(next, cache, utils.NewNopLogger(), nil, EngineOptions{})

	_, err := f.FindProperties(context.Background(), testSearch(t))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, cache.Len())
}

func TestCachedFinderCollapsesConcurrentMisses(t *testing.T) {
	next := &slowFinder{release: make(chan struct{}), result: []models.Property{purchase("p1", 1)}}
	f := NewCachedFinder(next, &failingCache{}, utils.NewNopLogger(), nil, EngineOptions{})
	search := testSearch(t)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := f.FindProperties(context.Background(), search)
			assert.NoError(t, err)
			assert.Len(t, got, 1)
		}()
	}

	require.Eventually(t, func() bool { return next.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(next.release)
	wg.Wait()

	assert.LessOrEqual(t, next.calls.Load(), int32(5))
	assert.GreaterOrEqual(t, next.calls.Load(), int32(1))
}
