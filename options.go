package forecasteval

import (
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/metrics"
)

const (
	DefaultNumSamples      = 100
	DefaultParallelization = 4
)

var (
	ErrInvalidNumSamples       = errors.New("number of samples must be positive")
	ErrNegativeParallelization = errors.New("negative parallelization")
)

// Options configures an experiment
type Options struct {
	// Evaluation is shared by every forecaster so their scores are comparable
	Evaluation *evaluate.Options

	// NumSamples is requested from every forecaster that does not set its own
	NumSamples int

	// Parallelization bounds the concurrent predict calls of one forecaster. 0 uses the default.
	Parallelization int

	// Recorder is optional and receives predict timings, errors and the final scores
	Recorder *metrics.Recorder
}

// NewDefaultOptions returns the default evaluation with 100 samples per forecast
func NewDefaultOptions() *Options {
	return &Options{
		Evaluation:      evaluate.NewDefaultOptions(),
		NumSamples:      DefaultNumSamples,
		Parallelization: DefaultParallelization,
	}
}

// Validate runs basic validation on the experiment options
func (o *Options) Validate() (*Options, error) {
	if o == nil {
		o = NewDefaultOptions()
	}
	res := *o

	ev, err := res.Evaluation.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid evaluation options, %w", err)
	}
	res.Evaluation = ev

	if res.NumSamples == 0 {
		res.NumSamples = DefaultNumSamples
	}
	if res.NumSamples < 0 {
		return nil, ErrInvalidNumSamples
	}
	if res.Parallelization < 0 {
		return nil, ErrNegativeParallelization
	}
	if res.Parallelization == 0 {
		res.Parallelization = DefaultParallelization
	}
	return &res, nil
}
