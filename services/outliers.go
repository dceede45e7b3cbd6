package services

import "sort"

// DefaultOutlierThreshold is the IQR multiplier used for rent samples.
const DefaultOutlierThreshold = 1.5

// FilterOutliers keeps the values inside [Q1 - t*IQR, Q3 + t*IQR], bounds
// inclusive, preserving input order. Quartiles use linear interpolation
// between closest ranks (rank = p*(n-1)).
func FilterOutliers(prices []float64, threshold float64) []float64 {
	if len(prices) == 0 {
		return []float64{}
	}

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	q1 := percentile(sorted, 25)
	q3 := percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - iqr*threshold
	upper := q3 + iqr*threshold

	kept := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p >= lower && p <= upper {
			kept = append(kept, p)
		}
	}
	return kept
}

// percentile expects sorted input with at least one element.
func percentile(sorted []float64, p float64) float64 {
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
