package evaluate

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecast-eval/quantile"
)

const (
	DefaultAlpha           = 0.05
	DefaultParallelization = 1
)

var (
	ErrInvalidAlpha            = errors.New("alpha must be strictly between 0 and 1")
	ErrNegativeSeasonality     = errors.New("negative seasonality")
	ErrNegativeParallelization = errors.New("negative parallelization")
)

// Options configures how forecasts are scored. Every forecast set that is meant to be compared
// must be scored with the same options.
type Options struct {
	// QuantileLevels are the levels at which the pinball loss is computed. Each must be strictly
	// between 0 and 1. An empty list falls back to the deciles 0.1 through 0.9.
	QuantileLevels []float64

	// Seasonality is the lag used for the seasonal naive error that scales MASE and MSIS. 0
	// derives it from each forecast's frequency.
	Seasonality int

	// Alpha sets the prediction interval used by MSIS, i.e. the (alpha/2, 1-alpha/2) quantiles.
	Alpha float64

	// Parallelization is the number of items scored concurrently. Values of 0 or 1 score
	// sequentially.
	Parallelization int
}

// NewDefaultOptions returns the decile levels with seasonality derived from the data
func NewDefaultOptions() *Options {
	return &Options{
		QuantileLevels:  quantile.DefaultLevels(),
		Seasonality:     0,
		Alpha:           DefaultAlpha,
		Parallelization: DefaultParallelization,
	}
}

// Validate runs basic validation on the evaluation options and returns a normalized copy with
// sorted, de-duplicated quantile levels
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}

	levels := o.QuantileLevels
	if len(levels) == 0 {
		levels = quantile.DefaultLevels()
	}
	levels, err := quantile.Validate(levels)
	if err != nil {
		return nil, err
	}

	if o.Seasonality < 0 {
		return nil, ErrNegativeSeasonality
	}
	if o.Parallelization < 0 {
		return nil, ErrNegativeParallelization
	}

	alpha := o.Alpha
	if alpha == 0 {
		alpha = DefaultAlpha
	}
	if alpha < 0 || alpha >= 1 {
		return nil, fmt.Errorf("got %v, %w", alpha, ErrInvalidAlpha)
	}

	return &Options{
		QuantileLevels:  levels,
		Seasonality:     o.Seasonality,
		Alpha:           alpha,
		Parallelization: o.Parallelization,
	}, nil
}
