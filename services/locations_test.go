package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-valuation/models"
	"property-valuation/storage"
	"property-valuation/utils"
)

type fakeLocations struct {
	result []models.Location
	err    error
	calls  int
}

func (f *fakeLocations) FetchLocations(context.Context, string) ([]models.Location, error) {
	f.calls++
	return f.result, f.err
}

func TestLocationEngineCachesByLowercaseInput(t *testing.T) {
	cache := storage.NewMemoryCache()
	fetcher := &fakeLocations{result: []models.Location{{DisplayName: "London", Identifier: "REGION^87490", NormalisedName: "LONDON"}}}
	e := NewLocationEngine(fetcher, cache, utils.NewNopLogger(), nil, EngineOptions{})
	ctx := context.Background()

	first, err := e.FindLocations(ctx, "London")
	require.NoError(t, err)
	second, err := e.FindLocations(ctx, "LONDON")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls)

	_, ok, err := cache.Get(ctx, "location:london")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocationEngineBlankInput(t *testing.T) {
	fetcher := &fakeLocations{}
	e := NewLocationEngine(fetcher, storage.NewMemoryCache(), utils.NewNopLogger(), nil, EngineOptions{})

	got, err := e.FindLocations(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, fetcher.calls)
}

func TestLocationEngineUpstreamError(t *testing.T) {
	fetcher := &fakeLocations{err: errors.New("status 503")}
	e := NewLocationEngine(fetcher, storage.NewMemoryCache(), utils.NewNopLogger(), nil, EngineOptions{})

	_, err := e.FindLocations(context.Background(), "Leeds")
	assert.ErrorIs(t, err, ErrUpstreamFetch)
}
