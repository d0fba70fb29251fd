package timedataset

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrNoData             = errors.New("no time series data")
	ErrNonMonotonic       = errors.New("time feature is not monotonic")
	ErrDatasetLenMismatch = errors.New("time feature has a different length than observations")
	ErrInsufficientData   = errors.New("series is shorter than the requested held-out horizon")
	ErrCannotInferFreq    = errors.New("cannot infer frequency from less than two time points")
	ErrIrregular          = errors.New("time points are not regularly spaced")
)

// TimeDataset represents a time series storing a slice of time points and values.
// Both must be of the same length.
type TimeDataset struct {
	T []time.Time
	Y []float64
}

// NewUnivariateDataset returns an instance of a TimeDataset given a time and value slice.
// The inputs are copied. NaN values are allowed and represent missing observations.
func NewUnivariateDataset(t []time.Time, y []float64) (*TimeDataset, error) {
	if len(y) == 0 {
		return nil, ErrNoData
	}
	if len(t) != len(y) {
		return nil, fmt.Errorf(
			"time feature has length of %d, but values has a length of %d, %w",
			len(t), len(y), ErrDatasetLenMismatch,
		)
	}

	var lastT time.Time
	for i := 0; i < len(t); i++ {
		currT := t[i]
		if i > 0 && !currT.After(lastT) {
			return nil, fmt.Errorf("non-monotonic at %d, %w", i, ErrNonMonotonic)
		}
		lastT = currT
	}

	tSeries := make([]time.Time, len(t))
	ySeries := make([]float64, len(t))
	copy(tSeries, t)
	copy(ySeries, y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}, nil
}

// NewRegularDataset builds a dataset of values observed at a fixed frequency from the start time
func NewRegularDataset(start time.Time, freq Freq, y []float64) (*TimeDataset, error) {
	return NewUnivariateDataset(freq.Range(start, len(y)), y)
}

// Len returns the number of observations
func (td *TimeDataset) Len() int {
	if td == nil {
		return 0
	}
	return len(td.Y)
}

func (td *TimeDataset) Copy() *TimeDataset {
	if td == nil {
		return nil
	}
	tSeries := make([]time.Time, len(td.T))
	ySeries := make([]float64, len(td.Y))
	copy(tSeries, td.T)
	copy(ySeries, td.Y)
	return &TimeDataset{
		T: tSeries,
		Y: ySeries,
	}
}

// DropNan returns a copy of the dataset without any NaN observations
func (td *TimeDataset) DropNan() *TimeDataset {
	if td == nil {
		return nil
	}
	res := &TimeDataset{
		T: make([]time.Time, 0, len(td.T)),
		Y: make([]float64, 0, len(td.Y)),
	}
	for i := 0; i < len(td.Y); i++ {
		if math.IsNaN(td.Y[i]) {
			continue
		}
		res.T = append(res.T, td.T[i])
		res.Y = append(res.Y, td.Y[i])
	}
	return res
}

// Split holds out the last horizon observations. The first dataset is the training portion and
// the second is the held-out ground truth. At least one training point must remain.
func (td *TimeDataset) Split(horizon int) (*TimeDataset, *TimeDataset, error) {
	if td == nil || len(td.Y) == 0 {
		return nil, nil, ErrNoData
	}
	if horizon <= 0 || horizon >= len(td.Y) {
		return nil, nil, fmt.Errorf("horizon %d with %d observations, %w", horizon, len(td.Y), ErrInsufficientData)
	}
	cut := len(td.Y) - horizon
	train := &TimeDataset{T: td.T[:cut:cut], Y: td.Y[:cut:cut]}
	test := &TimeDataset{T: td.T[cut:], Y: td.Y[cut:]}
	return train.Copy(), test.Copy(), nil
}
