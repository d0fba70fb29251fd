package producer

import (
	"context"
	"math"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"gonum.org/v1/gonum/stat"
)

// SeasonalNaive forecasts by repeating the last season of the history
type SeasonalNaive struct {
	name   string
	season int
}

// NewSeasonalNaive creates a seasonal naive producer. A season of 0 is derived from the request
// frequency.
func NewSeasonalNaive(name string, season int) *SeasonalNaive {
	if name == "" {
		name = "seasonal_naive"
	}
	return &SeasonalNaive{name: name, season: season}
}

func (s *SeasonalNaive) Name() string {
	return s.name
}

func (s *SeasonalNaive) Predict(ctx context.Context, req Request) (forecast.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	y := filledHistory(req.Train.Y)
	return forecast.NewPointForecast(req.Meta(), seasonalNaive(y, resolveSeason(s.season, req.Freq), req.Horizon))
}

// GaussianBaseline samples paths around the seasonal naive forecast. The noise scale is the
// standard deviation of the seasonal differences of the history and widens with every season
// ahead, as the error of a seasonal random walk would.
type GaussianBaseline struct {
	name   string
	season int
	seed   uint64
}

// NewGaussianBaseline creates a sampling baseline. Paths are reproducible for a given seed and
// item id regardless of the order requests are served in.
func NewGaussianBaseline(name string, season int, seed uint64) *GaussianBaseline {
	if name == "" {
		name = "gaussian_baseline"
	}
	return &GaussianBaseline{name: name, season: season, seed: seed}
}

func (g *GaussianBaseline) Name() string {
	return g.name
}

func (g *GaussianBaseline) Predict(ctx context.Context, req Request) (forecast.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	y := filledHistory(req.Train.Y)
	season := resolveSeason(g.season, req.Freq)
	center := seasonalNaive(y, season, req.Horizon)

	lag := season
	if lag <= 0 || lag >= len(y) {
		lag = 1
	}
	sigma := 0.0
	if len(y)-lag >= 2 {
		diffs := make([]float64, 0, len(y)-lag)
		for t := lag; t < len(y); t++ {
			diffs = append(diffs, y[t]-y[t-lag])
		}
		sigma = stat.StdDev(diffs, nil)
	}

	rng := itemRand(g.seed, req.ItemID)

	samples := make([][]float64, req.NumSamples)
	for s := range samples {
		path := make([]float64, req.Horizon)
		for i := range path {
			scale := sigma * math.Sqrt(float64(i/lag+1))
			path[i] = center[i] + rng.NormFloat64()*scale
		}
		samples[s] = path
	}
	return forecast.NewSampleForecast(req.Meta(), samples)
}
