// Package quantile contains the quantile level helpers and the pinball loss used to score
// probabilistic forecasts
package quantile

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidQuantile = errors.New("quantile level must be strictly between 0 and 1")
	ErrNoSamples       = errors.New("no samples to derive quantile from")
)

// DefaultLevels returns the deciles 0.1 through 0.9
func DefaultLevels() []float64 {
	return []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
}

// Validate checks that every level is strictly between 0 and 1 and returns a sorted copy with
// duplicates removed. The input slice is left untouched.
func Validate(levels []float64) ([]float64, error) {
	out := make([]float64, 0, len(levels))
	for _, q := range levels {
		if math.IsNaN(q) || q <= 0 || q >= 1 {
			return nil, fmt.Errorf("got %v, %w", q, ErrInvalidQuantile)
		}
		out = append(out, q)
	}
	sort.Float64s(out)
	return slices.Compact(out), nil
}

// ParseLevel parses a quantile level from either p-notation (p90, p99.5) or decimal
// notation (0.9).
func ParseLevel(s string) (float64, error) {
	s = strings.TrimSpace(s)

	scale := 1.0
	if strings.HasPrefix(strings.ToLower(s), "p") {
		s = s[1:]
		scale = 100.0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid quantile level %q, %w", s, err)
	}
	q := v / scale
	if math.IsNaN(q) || q <= 0 || q >= 1 {
		return 0, fmt.Errorf("got %v, %w", q, ErrInvalidQuantile)
	}
	return q, nil
}

// ParseLevels parses a list of levels and validates them as a set
func ParseLevels(strs []string) ([]float64, error) {
	levels := make([]float64, 0, len(strs))
	for _, s := range strs {
		q, err := ParseLevel(s)
		if err != nil {
			return nil, err
		}
		levels = append(levels, q)
	}
	return Validate(levels)
}

// FormatLevel formats a level in p-notation, e.g. 0.9 -> p90, 0.995 -> p99.5
func FormatLevel(q float64) string {
	p := math.Round(q*100*1e6) / 1e6
	if p == math.Trunc(p) {
		return fmt.Sprintf("p%d", int(p))
	}
	return "p" + strconv.FormatFloat(p, 'f', -1, 64)
}

// Key returns the metric key suffix for a level, e.g. QuantileLoss[0.9]
func Key(name string, q float64) string {
	return name + "[" + strconv.FormatFloat(q, 'f', -1, 64) + "]"
}
