package services

import (
	"math"
	"math/rand"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"property-valuation/models"
)

func rental(id string, lon, lat, price float64) models.Property {
	return models.Property{
		Identifier:  id,
		Price:       price,
		GeoLocation: models.GeoLocation{Latitude: lat, Longitude: lon},
		Category:    models.CategoryRent,
	}
}

func TestRentSurfaceRejectsEmpty(t *testing.T) {
	_, err := NewRentSurface(nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestRentSurfaceSingleSample(t *testing.T) {
	s, err := NewRentSurface([]models.Property{rental("1", -0.1, 51.5, 1200)})
	require.NoError(t, err)

	assert.True(t, s.Degenerate())
	assert.Equal(t, 1200.0, s.Estimate(-0.1, 51.5))
	assert.Equal(t, 1200.0, s.Estimate(10, 10))
}

func TestRentSurfaceCollinearSamplesFallBackToMean(t *testing.T) {
	s, err := NewRentSurface([]models.Property{
		rental("1", 0, 0, 100),
		rental("2", 1, 0, 200),
		rental("3", 2, 0, 300),
	})
	require.NoError(t, err)

	assert.True(t, s.Degenerate())
	assert.Equal(t, 200.0, s.Estimate(1, 0))
}

func TestRentSurfaceInterpolatesInsideHull(t *testing.T) {
	s, err := NewRentSurface([]models.Property{
		rental("sw", 0, 0, 100),
		rental("se", 2, 0, 100),
		rental("nw", 0, 2, 100),
		rental("ne", 2, 2, 100),
		rental("c", 1, 1, 500),
	})
	require.NoError(t, err)
	require.False(t, s.Degenerate())

	assert.InDelta(t, 180, s.Mean(), 1e-9)
	assert.InDelta(t, 500, s.Estimate(1, 1), 1e-6)
	assert.InDelta(t, 300, s.Estimate(1, 0.5), 1e-6)
	assert.InDelta(t, 100, s.Estimate(0, 0), 1e-6)
}

func TestRentSurfaceOutsideHullReturnsMean(t *testing.T) {
	s, err := NewRentSurface([]models.Property{
		rental("1", 0, 0, 100),
		rental("2", 1, 1, 300),
		rental("3", 0.2, 0.8, 200),
	})
	require.NoError(t, err)

	assert.Equal(t, s.Mean(), s.Estimate(5, 5))
	assert.Equal(t, s.Mean(), s.Estimate(-1, 0.5))
	assert.Equal(t, s.Mean(), s.Estimate(math.NaN(), 0.5))
	assert.Equal(t, s.Mean(), s.Estimate(0.5, math.Inf(1)))
}

func TestRentSurfaceCornersPinnedToMean(t *testing.T) {
	s, err := NewRentSurface([]models.Property{
		rental("1", 0.5, 0.1, 1000),
		rental("2", 0.1, 0.9, 2000),
		rental("3", 0.9, 0.5, 3000),
	})
	require.NoError(t, err)

	b := s.Bounds()
	assert.Equal(t, orb.Bound{Min: orb.Point{0.1, 0.1}, Max: orb.Point{0.9, 0.9}}, b)
	assert.InDelta(t, 2000, s.Estimate(0.9, 0.9), 1e-6)
	assert.InDelta(t, 2000, s.Estimate(0.1, 0.1), 1e-6)
}

func TestRentSurfaceDuplicateCoordinatesKeepFirst(t *testing.T) {
	s, err := NewRentSurface([]models.Property{
		rental("a", 0, 0, 100),
		rental("b", 0, 0, 900),
		rental("c", 1, 1, 500),
	})
	require.NoError(t, err)

	assert.InDelta(t, 500, s.Mean(), 1e-9)
	assert.InDelta(t, 100, s.Estimate(0, 0), 1e-6)
}

func TestRentSurfaceIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var rentals []models.Property
	for i := 0; i < 200; i++ {
		lon := -0.2 + rng.Float64()*0.1
		lat := 51.45 + rng.Float64()*0.1
		rentals = append(rentals, rental("r", lon, lat, 800+rng.Float64()*1500))
	}

	s, err := NewRentSurface(rentals)
	require.NoError(t, err)
	require.False(t, s.Degenerate())

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, r := range rentals {
		lo = math.Min(lo, r.Price)
		hi = math.Max(hi, r.Price)
	}

	for i := 0; i < 500; i++ {
		lon := -0.25 + rng.Float64()*0.2
		lat := 51.40 + rng.Float64()*0.2
		v := s.Estimate(lon, lat)
		require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "estimate at (%f, %f)", lon, lat)
		assert.GreaterOrEqual(t, v, lo-1e-6)
		assert.LessOrEqual(t, v, hi+1e-6)
	}
}

// thinRentals scatters n samples over a lon/lat box of the given size.
func thinRentals(rng *rand.Rand, n int, width, height float64) []models.Property {
	rentals := make([]models.Property, 0, n)
	for i := 0; i < n; i++ {
		lon := -0.1 + rng.Float64()*width
		lat := 51.5 + rng.Float64()*height
		rentals = append(rentals, rental("r", lon, lat, 900+rng.Float64()*1000))
	}
	return rentals
}

func triangleArea(a, b, c orb.Point) float64 {
	return math.Abs((b[0]-a[0])*(c[1]-a[1])-(c[0]-a[0])*(b[1]-a[1])) / 2
}

func TestRentSurfaceTrianglesTileBoundingBox(t *testing.T) {
	tests := []struct {
		name          string
		width, height float64
	}{
		{"square", 0.1, 0.1},
		{"wide", 0.1, 0.001},
		{"one street", 0.01, 0.0001},
		{"very thin", 0.1, 0.00001},
		{"tall", 0.0001, 0.05},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(7))
			for round := 0; round < 20; round++ {
				s, err := NewRentSurface(thinRentals(rng, 30, tt.width, tt.height))
				require.NoError(t, err)
				require.False(t, s.Degenerate())

				var covered float64
				for _, tri := range s.triangles {
					covered += triangleArea(s.points[tri.a], s.points[tri.b], s.points[tri.c])
				}
				b := s.Bounds()
				box := (b.Max[0] - b.Min[0]) / s.scale * (b.Max[1] - b.Min[1]) / s.scale
				assert.InEpsilon(t, box, covered, 1e-6)
			}
		})
	}
}

func TestRentSurfaceEveryInBoxQueryIsInterpolated(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	s, err := NewRentSurface(thinRentals(rng, 30, 0.01, 0.0001))
	require.NoError(t, err)

	b := s.Bounds()
	const steps = 100
	for i := 0; i <= steps; i++ {
		for j := 0; j <= steps; j++ {
			lon := b.Min[0] + (b.Max[0]-b.Min[0])*float64(i)/steps
			lat := b.Min[1] + (b.Max[1]-b.Min[1])*float64(j)/steps
			_, _, ok := s.locate(s.normalise(orb.Point{lon, lat}))
			require.True(t, ok, "query (%v, %v) fell outside every triangle", lon, lat)
		}
	}
}

func TestTriangulateSquareWithCentre(t *testing.T) {
	tris := triangulate([]orb.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}, {0.5, 0.5}})
	assert.Len(t, tris, 4)

	tris = triangulate([]orb.Point{{0, 0}, {1, 0}, {0, 1}})
	assert.Len(t, tris, 1)

	assert.Empty(t, triangulate([]orb.Point{{0, 0}, {1, 1}}))
}
