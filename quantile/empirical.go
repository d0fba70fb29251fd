package quantile

import (
	"math"
	"sort"
)

// Empirical returns the q-th quantile of an ascending slice, linearly interpolating between
// the two closest ranks at position q*(n-1).
func Empirical(sorted []float64, q float64) (float64, error) {
	n := len(sorted)
	if n == 0 {
		return 0, ErrNoSamples
	}
	if math.IsNaN(q) || q < 0 || q > 1 {
		return 0, ErrInvalidQuantile
	}
	if n == 1 {
		return sorted[0], nil
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	if lo >= n-1 {
		return sorted[n-1], nil
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo]), nil
}

// FromSamples computes the empirical q-th quantile of unordered samples. The input is copied
// before sorting.
func FromSamples(samples []float64, q float64) (float64, error) {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return Empirical(sorted, q)
}
