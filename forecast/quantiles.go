package forecast

import (
	"fmt"
	"math"
	"sort"

	"github.com/aouyang1/go-forecast-eval/quantile"
)

const levelTolerance = 1e-9

// QuantileForecast holds predicted values for a fixed set of quantile levels. Levels between the
// provided ones are linearly interpolated.
type QuantileForecast struct {
	header
	levels []float64
	values [][]float64 // values[i] belongs to levels[i]
	mean   []float64
}

// NewQuantileForecast copies the predicted quantiles. mean is optional; without it the median is
// used as the expected value when available.
func NewQuantileForecast(meta Meta, values map[float64][]float64, mean []float64) (*QuantileForecast, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("no quantiles provided, %w", ErrQuantileNotAvailable)
	}

	levels := make([]float64, 0, len(values))
	for q := range values {
		levels = append(levels, q)
	}
	levels, err := quantile.Validate(levels)
	if err != nil {
		return nil, err
	}

	h := len(values[levels[0]])
	if h == 0 {
		return nil, ErrEmptyHorizon
	}
	vals := make([][]float64, len(levels))
	for i, q := range levels {
		if len(values[q]) != h {
			return nil, fmt.Errorf("quantile %v has length %d, expected %d, %w", q, len(values[q]), h, ErrHorizonMismatch)
		}
		vals[i] = copyValues(values[q])
	}
	if mean != nil && len(mean) != h {
		return nil, fmt.Errorf("mean has length %d, expected %d, %w", len(mean), h, ErrHorizonMismatch)
	}

	var m []float64
	if mean != nil {
		m = copyValues(mean)
	}
	return &QuantileForecast{
		header: header{meta: meta},
		levels: levels,
		values: vals,
		mean:   m,
	}, nil
}

func (f *QuantileForecast) Horizon() int {
	return len(f.values[0])
}

// Levels returns the quantile levels provided by the producer
func (f *QuantileForecast) Levels() []float64 {
	return copyValues(f.levels)
}

func (f *QuantileForecast) Quantile(q float64) ([]float64, error) {
	if err := checkLevel(q); err != nil {
		return nil, err
	}

	idx := sort.SearchFloat64s(f.levels, q-levelTolerance)
	if idx < len(f.levels) && math.Abs(f.levels[idx]-q) <= levelTolerance {
		return copyValues(f.values[idx]), nil
	}
	if idx == 0 || idx == len(f.levels) {
		return nil, fmt.Errorf("level %v outside of [%v, %v], %w",
			q, f.levels[0], f.levels[len(f.levels)-1], ErrQuantileNotAvailable)
	}

	lo, hi := idx-1, idx
	w := (q - f.levels[lo]) / (f.levels[hi] - f.levels[lo])
	res := make([]float64, f.Horizon())
	for i := range res {
		res[i] = f.values[lo][i] + w*(f.values[hi][i]-f.values[lo][i])
	}
	return res, nil
}

func (f *QuantileForecast) Mean() ([]float64, error) {
	if f.mean != nil {
		return copyValues(f.mean), nil
	}
	median, err := f.Quantile(0.5)
	if err != nil {
		return nil, fmt.Errorf("no mean or median provided, %w", ErrMeanNotAvailable)
	}
	return median, nil
}
