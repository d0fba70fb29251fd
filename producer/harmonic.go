package producer

import (
	"context"
	"errors"
	"fmt"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/models"
	"gonum.org/v1/gonum/floats"
)

const DefaultHarmonicOrders = 3

var ErrNegativeOrders = errors.New("negative fourier orders")

// OutlierOptions controls the refits that drop observations whose residual falls outside the
// Tukey fence of the residual percentiles
type OutlierOptions struct {
	NumPasses       int
	UpperPercentile float64
	LowerPercentile float64
	TukeyFactor     float64
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// HarmonicOptions configures the harmonic regression producer
type HarmonicOptions struct {
	// Season is the period of the Fourier terms. 0 derives it from the request frequency.
	Season int

	// Orders is the number of sin/cos pairs, capped by what the season can resolve
	Orders int

	Seed uint64

	// OutlierOptions is optional. nil fits once with every observation.
	OutlierOptions *OutlierOptions
}

func NewDefaultHarmonicOptions() *HarmonicOptions {
	return &HarmonicOptions{
		Orders:         DefaultHarmonicOrders,
		Seed:           1,
		OutlierOptions: NewOutlierOptions(),
	}
}

// Validate runs basic validation on the harmonic options
func (o *HarmonicOptions) Validate() (*HarmonicOptions, error) {
	if o == nil {
		o = NewDefaultHarmonicOptions()
	}
	if o.Season < 0 {
		return nil, fmt.Errorf("negative season %d", o.Season)
	}
	if o.Orders < 0 {
		return nil, ErrNegativeOrders
	}
	res := *o
	return &res, nil
}

// HarmonicRegression fits a linear trend plus Fourier seasonality by least squares and samples
// paths around the extrapolated fit with the residual standard deviation
type HarmonicRegression struct {
	name string
	opt  *HarmonicOptions
}

// NewHarmonicRegression creates a regression producer. If no options are provided the defaults
// are used.
func NewHarmonicRegression(name string, opt *HarmonicOptions) (*HarmonicRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "harmonic_regression"
	}
	return &HarmonicRegression{name: name, opt: opt}, nil
}

func (h *HarmonicRegression) Name() string {
	return h.name
}

func (h *HarmonicRegression) Predict(ctx context.Context, req Request) (forecast.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	season := resolveSeason(h.opt.Season, req.Freq)
	orders := min(h.opt.Orders, models.MaxFourierOrder(season))
	period := float64(max(season, 1))

	// regress on the step index of every observed point
	n := req.Train.Len()
	steps := make(map[int64]int, n)
	for i, t := range req.Train.T {
		steps[t.UnixNano()] = i
	}
	observed := req.Train.DropNan()
	ts := make([]int, len(observed.T))
	for i, t := range observed.T {
		ts[i] = steps[t.UnixNano()]
	}

	model, err := h.fit(ts, observed.Y, period, orders)
	if err != nil {
		return nil, fmt.Errorf("item %s, %w", req.ItemID, err)
	}

	future := make([]int, req.Horizon)
	for i := range future {
		future[i] = n + i
	}
	design, err := models.HarmonicDesign(future, period, orders)
	if err != nil {
		return nil, err
	}
	center, err := model.Predict(design)
	if err != nil {
		return nil, err
	}

	sigma := model.ResidualStdDev()
	rng := itemRand(h.opt.Seed, req.ItemID)
	samples := make([][]float64, req.NumSamples)
	for s := range samples {
		path := make([]float64, req.Horizon)
		for i := range path {
			path[i] = center[i] + rng.NormFloat64()*sigma
		}
		samples[s] = path
	}
	return forecast.NewSampleForecast(req.Meta(), samples)
}

// fit refits without the residual outliers until none remain or the passes run out
func (h *HarmonicRegression) fit(ts []int, y []float64, period float64, orders int) (*models.OLSRegression, error) {
	model, err := models.NewOLSRegression(nil)
	if err != nil {
		return nil, err
	}

	outlierOpt := h.opt.OutlierOptions
	for pass := 0; ; pass++ {
		design, err := models.HarmonicDesign(ts, period, orders)
		if err != nil {
			return nil, err
		}
		if err := model.Fit(design, y); err != nil {
			return nil, err
		}
		if outlierOpt == nil || pass >= outlierOpt.NumPasses {
			return model, nil
		}

		predicted, err := model.Predict(design)
		if err != nil {
			return nil, err
		}
		residual := make([]float64, len(y))
		floats.SubTo(residual, y, predicted)

		outliers := models.DetectOutliers(
			residual,
			outlierOpt.LowerPercentile,
			outlierOpt.UpperPercentile,
			outlierOpt.TukeyFactor,
		)
		if len(outliers) == 0 || len(y)-len(outliers) <= len(model.Coef())+1 {
			return model, nil
		}
		ts, y = dropIndices(ts, y, outliers)
	}
}

// dropIndices removes the sorted indices from ts and y
func dropIndices(ts []int, y []float64, idx []int) ([]int, []float64) {
	keptT := make([]int, 0, len(ts)-len(idx))
	keptY := make([]float64, 0, len(y)-len(idx))
	j := 0
	for i := range ts {
		if j < len(idx) && idx[j] == i {
			j++
			continue
		}
		keptT = append(keptT, ts[i])
		keptY = append(keptY, y[i])
	}
	return keptT, keptY
}
