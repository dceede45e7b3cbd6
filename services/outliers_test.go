package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterOutliersDropsHighValue(t *testing.T) {
	got := FilterOutliers([]float64{1000, 1100, 1200, 1300, 10000}, DefaultOutlierThreshold)
	assert.Equal(t, []float64{1000, 1100, 1200, 1300}, got)
}

func TestFilterOutliersKeepsOrder(t *testing.T) {
	got := FilterOutliers([]float64{1300, 1000, 1200, 1100}, DefaultOutlierThreshold)
	assert.Equal(t, []float64{1300, 1000, 1200, 1100}, got)
}

func TestFilterOutliersEmpty(t *testing.T) {
	got := FilterOutliers(nil, DefaultOutlierThreshold)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFilterOutliersSingleAndIdentical(t *testing.T) {
	assert.Equal(t, []float64{900}, FilterOutliers([]float64{900}, DefaultOutlierThreshold))
	assert.Equal(t, []float64{5, 5, 5}, FilterOutliers([]float64{5, 5, 5}, DefaultOutlierThreshold))
}

func TestFilterOutliersBoundsInclusive(t *testing.T) {
	// Q1 = 2, Q3 = 4, IQR = 2, bounds [-1, 7]
	onBounds := []float64{-1, 2, 2, 2, 3, 4, 4, 4, 7}
	assert.Equal(t, onBounds, FilterOutliers(onBounds, DefaultOutlierThreshold))

	pastBounds := []float64{-2, 2, 2, 2, 3, 4, 4, 4, 8}
	assert.Equal(t, []float64{2, 2, 2, 3, 4, 4, 4}, FilterOutliers(pastBounds, DefaultOutlierThreshold))
}

func TestPercentileLinear(t *testing.T) {
	sorted := []float64{1000, 1100, 1200, 1300, 10000}
	assert.InDelta(t, 1100, percentile(sorted, 25), 1e-9)
	assert.InDelta(t, 1300, percentile(sorted, 75), 1e-9)

	assert.InDelta(t, 1.75, percentile([]float64{1, 2, 3, 4}, 25), 1e-9)
	assert.InDelta(t, 3.25, percentile([]float64{1, 2, 3, 4}, 75), 1e-9)
}
