// Package producer contains the forecasting procedures whose output gets evaluated. The models
// themselves are opaque: baselines are computed locally and pretrained models are reached over HTTP.
package producer

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand/v2"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"gonum.org/v1/gonum/stat"
)

var (
	ErrEmptyHistory      = errors.New("training history is empty")
	ErrInvalidHorizon    = errors.New("horizon must be positive")
	ErrInvalidNumSamples = errors.New("number of samples must be positive")
	ErrMissingFreq       = errors.New("request frequency is required")
)

// Request asks a producer for a forecast of the Horizon steps following the training history
type Request struct {
	ItemID  string
	Train   *timedataset.TimeDataset
	Freq    timedataset.Freq
	Horizon int

	// NumSamples is the number of sample paths drawn by sampling producers. It is always set by
	// the caller so that runs with different sample counts are explicit.
	NumSamples int
}

// Validate checks the request is serviceable
func (r Request) Validate() error {
	if r.Train.Len() == 0 {
		return ErrEmptyHistory
	}
	if r.Horizon <= 0 {
		return fmt.Errorf("got %d, %w", r.Horizon, ErrInvalidHorizon)
	}
	if r.NumSamples <= 0 {
		return fmt.Errorf("got %d, %w", r.NumSamples, ErrInvalidNumSamples)
	}
	if r.Freq.IsZero() {
		return ErrMissingFreq
	}
	return nil
}

// Meta returns the forecast metadata, with the horizon starting one step after the history
func (r Request) Meta() forecast.Meta {
	last := r.Train.T[len(r.Train.T)-1]
	return forecast.Meta{
		ItemID: r.ItemID,
		Start:  r.Freq.Next(last),
		Freq:   r.Freq,
	}
}

// Producer generates a forecast for a single series
type Producer interface {
	Name() string
	Predict(ctx context.Context, req Request) (forecast.Forecast, error)
}

// filledHistory replaces missing observations with the mean of the observed ones so seasonal
// positions stay aligned
func filledHistory(y []float64) []float64 {
	observed := make([]float64, 0, len(y))
	for _, v := range y {
		if !math.IsNaN(v) {
			observed = append(observed, v)
		}
	}
	fill := 0.0
	if len(observed) > 0 {
		fill = stat.Mean(observed, nil)
	}

	out := make([]float64, len(y))
	for i, v := range y {
		if math.IsNaN(v) {
			out[i] = fill
			continue
		}
		out[i] = v
	}
	return out
}

// seasonalNaive repeats the last observed season over the horizon. Histories shorter than a season
// forecast their mean.
func seasonalNaive(y []float64, season, horizon int) []float64 {
	out := make([]float64, horizon)
	if season <= 0 || len(y) < season {
		level := stat.Mean(y, nil)
		for i := range out {
			out[i] = level
		}
		return out
	}
	offset := len(y) - season
	for i := range out {
		out[i] = y[offset+i%season]
	}
	return out
}

func resolveSeason(season int, freq timedataset.Freq) int {
	if season > 0 {
		return season
	}
	return freq.Seasonality()
}

// itemRand returns a random source that depends only on the seed and the item so that sample paths
// do not depend on the order requests are served in
func itemRand(seed uint64, itemID string) *rand.Rand {
	h := fnv.New64a()
	h.Write([]byte(itemID))
	return rand.New(rand.NewPCG(seed, h.Sum64()))
}
