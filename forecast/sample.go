package forecast

import (
	"fmt"
	"sort"

	"github.com/aouyang1/go-forecast-eval/quantile"
	"gonum.org/v1/gonum/stat"
)

// SampleForecast holds S sampled trajectories over the horizon. Quantiles and the mean are derived
// per step from the empirical distribution of the samples.
type SampleForecast struct {
	header
	samples [][]float64 // samples[s][h]
	steps   [][]float64 // steps[h] sorted ascending
}

// NewSampleForecast copies the sample paths. All paths must share the same non-empty length.
func NewSampleForecast(meta Meta, samples [][]float64) (*SampleForecast, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	h := len(samples[0])
	if h == 0 {
		return nil, ErrEmptyHorizon
	}

	paths := make([][]float64, len(samples))
	steps := make([][]float64, h)
	for i := range steps {
		steps[i] = make([]float64, len(samples))
	}
	for s, path := range samples {
		if len(path) != h {
			return nil, fmt.Errorf("sample %d has length %d, expected %d, %w", s, len(path), h, ErrHorizonMismatch)
		}
		paths[s] = copyValues(path)
		for i, v := range path {
			steps[i][s] = v
		}
	}
	for _, step := range steps {
		sort.Float64s(step)
	}

	return &SampleForecast{
		header:  header{meta: meta},
		samples: paths,
		steps:   steps,
	}, nil
}

func (f *SampleForecast) Horizon() int {
	return len(f.steps)
}

// NumSamples returns the number of sampled trajectories
func (f *SampleForecast) NumSamples() int {
	return len(f.samples)
}

func (f *SampleForecast) Quantile(q float64) ([]float64, error) {
	if err := checkLevel(q); err != nil {
		return nil, err
	}
	res := make([]float64, len(f.steps))
	for i, step := range f.steps {
		v, err := quantile.Empirical(step, q)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

func (f *SampleForecast) Mean() ([]float64, error) {
	res := make([]float64, len(f.steps))
	for i, step := range f.steps {
		res[i] = stat.Mean(step, nil)
	}
	return res, nil
}

// Samples returns a copy of the sample paths
func (f *SampleForecast) Samples() [][]float64 {
	out := make([][]float64, len(f.samples))
	for i, path := range f.samples {
		out[i] = copyValues(path)
	}
	return out
}
