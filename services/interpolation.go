package services

import (
	"math"

	"github.com/fogleman/delaunay"
	"github.com/paulmach/orb"

	"property-valuation/models"
)

// barycentricTolerance admits points that sit on a shared edge or on the hull
// boundary despite rounding.
const barycentricTolerance = 1e-9

// triangle holds vertex indices into RentSurface.points.
type triangle struct {
	a, b, c int
}

// RentSurface is a piecewise-linear rent surface over (longitude, latitude).
// The bounding box corners of the samples are pinned to the mean rent, so the
// surface covers the whole box. Estimate is total: anything it cannot
// interpolate resolves to the mean.
type RentSurface struct {
	points    []orb.Point // normalised coordinates
	values    []float64
	triangles []triangle
	mean      float64
	bounds    orb.Bound

	// normalisation: p' = (p - origin) / scale
	origin orb.Point
	scale  float64
}

// NewRentSurface builds the surface from filtered rental listings.
func NewRentSurface(rentals []models.Property) (*RentSurface, error) {
	if len(rentals) == 0 {
		return nil, ErrNoSamples
	}

	raw := make([]orb.Point, 0, len(rentals)+4)
	values := make([]float64, 0, len(rentals)+4)
	var sum float64
	bound := orb.Bound{
		Min: orb.Point{rentals[0].GeoLocation.Longitude, rentals[0].GeoLocation.Latitude},
		Max: orb.Point{rentals[0].GeoLocation.Longitude, rentals[0].GeoLocation.Latitude},
	}
	for _, r := range rentals {
		p := orb.Point{r.GeoLocation.Longitude, r.GeoLocation.Latitude}
		raw = append(raw, p)
		values = append(values, r.Price)
		sum += r.Price
		bound = bound.Extend(p)
	}
	mean := sum / float64(len(rentals))

	corners := []orb.Point{
		{bound.Min[0], bound.Min[1]},
		{bound.Max[0], bound.Min[1]},
		{bound.Min[0], bound.Max[1]},
		{bound.Max[0], bound.Max[1]},
	}
	for _, c := range corners {
		raw = append(raw, c)
		values = append(values, mean)
	}

	s := &RentSurface{
		mean:   mean,
		bounds: bound,
		origin: bound.Min,
		scale:  math.Max(bound.Max[0]-bound.Min[0], bound.Max[1]-bound.Min[1]),
	}

	// A zero-area box means every sample is collinear; the surface is flat.
	if !isFinite(mean) || !(bound.Max[0] > bound.Min[0]) || !(bound.Max[1] > bound.Min[1]) {
		return s, nil
	}

	seen := make(map[orb.Point]struct{}, len(raw))
	for i, p := range raw {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		s.points = append(s.points, s.normalise(p))
		s.values = append(s.values, values[i])
	}
	s.triangles = triangulate(s.points)
	return s, nil
}

// Estimate returns the interpolated monthly rent at (lon, lat).
func (s *RentSurface) Estimate(lon, lat float64) float64 {
	if len(s.triangles) == 0 || !isFinite(lon) || !isFinite(lat) {
		return s.mean
	}

	t, w, ok := s.locate(s.normalise(orb.Point{lon, lat}))
	if !ok {
		return s.mean
	}
	v := w[0]*s.values[t.a] + w[1]*s.values[t.b] + w[2]*s.values[t.c]
	if !isFinite(v) {
		return s.mean
	}
	return v
}

// locate finds the triangle containing q, a point in normalised space, and
// its barycentric weights.
func (s *RentSurface) locate(q orb.Point) (triangle, [3]float64, bool) {
	for _, t := range s.triangles {
		w1, w2, w3, ok := barycentric(q, s.points[t.a], s.points[t.b], s.points[t.c])
		if !ok {
			continue
		}
		if w1 < -barycentricTolerance || w2 < -barycentricTolerance || w3 < -barycentricTolerance {
			continue
		}
		return t, [3]float64{w1, w2, w3}, true
	}
	return triangle{}, [3]float64{}, false
}

// Mean is the average rent over the samples the surface was built from.
func (s *RentSurface) Mean() float64 { return s.mean }

// Bounds is the lon/lat bounding box of the samples.
func (s *RentSurface) Bounds() orb.Bound { return s.bounds }

// Degenerate reports whether every estimate resolves to the mean.
func (s *RentSurface) Degenerate() bool { return len(s.triangles) == 0 }

func (s *RentSurface) normalise(p orb.Point) orb.Point {
	if s.scale == 0 {
		return orb.Point{0, 0}
	}
	return orb.Point{(p[0] - s.origin[0]) / s.scale, (p[1] - s.origin[1]) / s.scale}
}

// triangulate computes a Delaunay triangulation of points. It returns nil
// when fewer than three distinct points are given or all are collinear.
func triangulate(points []orb.Point) []triangle {
	if len(points) < 3 {
		return nil
	}

	pts := make([]delaunay.Point, len(points))
	for i, p := range points {
		pts[i] = delaunay.Point{X: p[0], Y: p[1]}
	}
	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil
	}

	out := make([]triangle, 0, len(tri.Triangles)/3)
	for i := 0; i+2 < len(tri.Triangles); i += 3 {
		out = append(out, triangle{a: tri.Triangles[i], b: tri.Triangles[i+1], c: tri.Triangles[i+2]})
	}
	return out
}

func barycentric(p, a, b, c orb.Point) (float64, float64, float64, bool) {
	det := (b[1]-c[1])*(a[0]-c[0]) + (c[0]-b[0])*(a[1]-c[1])
	if det == 0 || !isFinite(det) {
		return 0, 0, 0, false
	}
	w1 := ((b[1]-c[1])*(p[0]-c[0]) + (c[0]-b[0])*(p[1]-c[1])) / det
	w2 := ((c[1]-a[1])*(p[0]-c[0]) + (a[0]-c[0])*(p[1]-c[1])) / det
	return w1, w2, 1 - w1 - w2, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
