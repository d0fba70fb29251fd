// Package forecast represents the output of a forecasting procedure over a fixed horizon as either
// point estimates, sampled trajectories or a set of predicted quantiles.
package forecast

import (
	"errors"
	"math"
	"time"

	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/aouyang1/go-forecast-eval/timedataset"
)

var (
	ErrEmptyHorizon         = errors.New("forecast has an empty horizon")
	ErrNoSamples            = errors.New("sample forecast needs at least one sample path")
	ErrHorizonMismatch      = errors.New("forecast values have inconsistent horizon lengths")
	ErrQuantileNotAvailable = errors.New("quantile level not available from forecast")
	ErrMeanNotAvailable     = errors.New("mean not available from forecast")
	ErrUnknownType          = errors.New("unknown forecast type")
	ErrInvalidScale         = errors.New("scale factor must be positive and finite")
)

// Forecast is a read-only prediction for a single series over the next Horizon() steps
type Forecast interface {
	ItemID() string
	StartDate() time.Time
	Freq() timedataset.Freq
	Horizon() int

	// Quantile returns the predicted q-quantile for every horizon step
	Quantile(q float64) ([]float64, error)

	// Mean returns the expected value for every horizon step
	Mean() ([]float64, error)
}

// Meta identifies the series a forecast belongs to and when its horizon starts
type Meta struct {
	ItemID string
	Start  time.Time
	Freq   timedataset.Freq
}

type header struct {
	meta Meta
}

func (h header) ItemID() string {
	return h.meta.ItemID
}

func (h header) StartDate() time.Time {
	return h.meta.Start
}

func (h header) Freq() timedataset.Freq {
	return h.meta.Freq
}

// Index returns the time points covered by the horizon. Forecasts without a frequency return nil.
func Index(f Forecast) []time.Time {
	if f.Freq().IsZero() {
		return nil
	}
	return f.Freq().Range(f.StartDate(), f.Horizon())
}

func checkLevel(q float64) error {
	if math.IsNaN(q) || q < 0 || q > 1 {
		return quantile.ErrInvalidQuantile
	}
	return nil
}

func copyValues(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
