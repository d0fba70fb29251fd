package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/aouyang1/go-forecast-eval/timedataset"
)

var ErrInvalidSyntheticOptions = errors.New("invalid synthetic dataset options")

// SyntheticOptions describes a dataset of seasonal series with a level, a daily wave and gaussian
// noise
type SyntheticOptions struct {
	Name             string
	NumItems         int
	Length           int
	PredictionLength int
	Freq             timedataset.Freq
	Start            time.Time
	Level            float64
	Amplitude        float64
	NoiseScale       float64
	Seed             uint64
}

// NewDefaultSyntheticOptions returns 10 hourly series of four weeks with a one day horizon
func NewDefaultSyntheticOptions() *SyntheticOptions {
	return &SyntheticOptions{
		Name:             "synthetic",
		NumItems:         10,
		Length:           28 * 24,
		PredictionLength: 24,
		Freq:             timedataset.MustParseFreq("H"),
		Start:            time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Level:            100.0,
		Amplitude:        20.0,
		NoiseScale:       3.0,
		Seed:             1,
	}
}

// Validate runs basic validation on the synthetic options
func (o *SyntheticOptions) Validate() (*SyntheticOptions, error) {
	if o == nil {
		o = NewDefaultSyntheticOptions()
	}
	if o.NumItems <= 0 {
		return nil, fmt.Errorf("number of items must be positive, %w", ErrInvalidSyntheticOptions)
	}
	if o.PredictionLength <= 0 || o.Length <= o.PredictionLength {
		return nil, fmt.Errorf("length must exceed a positive prediction length, %w", ErrInvalidSyntheticOptions)
	}
	if o.Freq.IsZero() {
		return nil, ErrMissingFreq
	}
	if o.NoiseScale < 0 {
		return nil, fmt.Errorf("negative noise scale, %w", ErrInvalidSyntheticOptions)
	}
	return o, nil
}

// Synthetic generates a reproducible dataset. Each item gets its own level offset and phase.
func Synthetic(opt *SyntheticOptions) (*Dataset, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opt.Seed, opt.Seed))
	period := float64(opt.Freq.Seasonality())
	if period <= 1 {
		period = 7
	}

	items := make([]Item, 0, opt.NumItems)
	for i := 0; i < opt.NumItems; i++ {
		level := opt.Level * (1 + 0.5*rng.Float64())
		phase := rng.Float64() * 2 * math.Pi

		y := timedataset.GenerateConstY(opt.Length, level)
		y.Add(timedataset.GenerateWaveY(opt.Length, opt.Amplitude, period, 1, phase))
		y.Add(timedataset.GenerateNoise(opt.Length, opt.NoiseScale, rng))

		items = append(items, Item{
			ItemID: fmt.Sprintf("item_%d", i),
			Start:  opt.Start,
			Target: Target(y),
		})
	}
	return New(opt.Name, opt.Freq, opt.PredictionLength, items)
}
