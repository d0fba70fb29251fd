package forecast

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Scale returns a copy of the forecast with every value multiplied by k. k must be positive and
// finite to keep quantile ordering intact.
func Scale(f Forecast, k float64) (Forecast, error) {
	if !(k > 0) || math.IsInf(k, 1) {
		return nil, fmt.Errorf("k=%g, %w", k, ErrInvalidScale)
	}
	switch v := f.(type) {
	case *PointForecast:
		values := v.Values()
		floats.Scale(k, values)
		return NewPointForecast(v.meta, values)
	case *SampleForecast:
		samples := v.Samples()
		for _, path := range samples {
			floats.Scale(k, path)
		}
		return NewSampleForecast(v.meta, samples)
	case *QuantileForecast:
		values := make(map[float64][]float64, len(v.levels))
		for i, q := range v.levels {
			scaled := copyValues(v.values[i])
			floats.Scale(k, scaled)
			values[q] = scaled
		}
		var mean []float64
		if v.mean != nil {
			mean = copyValues(v.mean)
			floats.Scale(k, mean)
		}
		return NewQuantileForecast(v.meta, values, mean)
	}
	return nil, fmt.Errorf("%T, %w", f, ErrUnknownType)
}
