// Package config loads the YAML description of a forecast comparison experiment: which dataset to
// score, how to score it, which forecasters to run and where results go.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/producer"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/aouyang1/go-forecast-eval/store"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"gopkg.in/yaml.v3"
)

const (
	DefaultNumSamples       = 100
	DefaultParallelization  = 4
	DefaultFreq             = "H"
	DefaultPredictionLength = 24

	TypeSeasonalNaive = "seasonal_naive"
	TypeGaussian      = "gaussian"
	TypeHarmonic      = "harmonic"
	TypeRemote        = "remote"

	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

var (
	ErrInvalidPredictionLength = errors.New("prediction length must be positive")
	ErrInvalidNumSamples       = errors.New("number of samples must be positive")
	ErrNoForecasters           = errors.New("at least one forecaster is required")
	ErrUnknownForecasterType   = errors.New("unknown forecaster type")
	ErrDuplicateForecaster     = errors.New("duplicate forecaster name")
	ErrUnknownStoreType        = errors.New("unknown store type")
)

// Config is the root of an experiment file
type Config struct {
	Dataset         DatasetConfig      `yaml:"dataset"`
	Evaluation      EvaluationConfig   `yaml:"evaluation"`
	NumSamples      int                `yaml:"num_samples"`
	Parallelization int                `yaml:"parallelization"`
	Forecasters     []ForecasterConfig `yaml:"forecasters"`
	Store           StoreConfig        `yaml:"store"`
	Outputs         OutputConfig       `yaml:"outputs"`
}

// DatasetConfig points at a JSON Lines dataset. A synthetic dataset is generated when Path is empty.
// Freq may be left out for a file whose items list their timestamps.
type DatasetConfig struct {
	Path             string          `yaml:"path"`
	Name             string          `yaml:"name"`
	Freq             string          `yaml:"freq"`
	PredictionLength int             `yaml:"prediction_length"`
	Synthetic        SyntheticConfig `yaml:"synthetic"`
}

// SyntheticConfig overrides the synthetic dataset defaults where non-zero
type SyntheticConfig struct {
	NumItems int    `yaml:"num_items"`
	Length   int    `yaml:"length"`
	Seed     uint64 `yaml:"seed"`
}

// EvaluationConfig mirrors evaluate.Options with quantile levels written as "p90" or "0.9"
type EvaluationConfig struct {
	Quantiles       []string `yaml:"quantiles"`
	Seasonality     int      `yaml:"seasonality"`
	Alpha           float64  `yaml:"alpha"`
	Parallelization int      `yaml:"parallelization"`
}

// ForecasterConfig describes one forecaster of the comparison. Only the fields of its type are
// used.
type ForecasterConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	NumSamples int    `yaml:"num_samples"`

	// seasonal_naive, gaussian and harmonic
	Season int    `yaml:"season"`
	Seed   uint64 `yaml:"seed"`

	// harmonic. OutlierPasses of 0 uses the default and a negative value fits once.
	Orders        int `yaml:"orders"`
	OutlierPasses int `yaml:"outlier_passes"`

	// remote
	URL           string            `yaml:"url"`
	Headers       map[string]string `yaml:"headers"`
	Params        map[string]any    `yaml:"params"`
	Timeout       time.Duration     `yaml:"timeout"`
	SamplesPath   string            `yaml:"samples_path"`
	QuantilesPath string            `yaml:"quantiles_path"`
	MeanPath      string            `yaml:"mean_path"`
}

// StoreConfig selects where reports are kept between runs. The memory store is held by the
// process that opened it, so only redis keeps history across CLI invocations.
type StoreConfig struct {
	Type     string        `yaml:"type"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// OutputConfig lists optional files written after a run
type OutputConfig struct {
	Report   string `yaml:"report"`
	Plot     string `yaml:"plot"`
	Textfile string `yaml:"textfile"`
}

// NewDefaultConfig compares a seasonal naive and a gaussian baseline on a synthetic hourly dataset
func NewDefaultConfig() *Config {
	return &Config{
		Dataset: DatasetConfig{
			PredictionLength: DefaultPredictionLength,
		},
		Evaluation: EvaluationConfig{
			Alpha:           evaluate.DefaultAlpha,
			Parallelization: evaluate.DefaultParallelization,
		},
		NumSamples:      DefaultNumSamples,
		Parallelization: DefaultParallelization,
		Forecasters: []ForecasterConfig{
			{Name: "seasonal_naive", Type: TypeSeasonalNaive},
			{Name: "gaussian_baseline", Type: TypeGaussian, Seed: 1},
		},
		Store: StoreConfig{Type: StoreNone},
	}
}

// Load reads and validates an experiment file
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read config file, %w", err)
	}
	return Parse(b)
}

// Parse decodes an experiment over the defaults and validates it. ${VAR} references are expanded
// from the environment first so secrets stay out of the file.
func Parse(b []byte) (*Config, error) {
	cfg := NewDefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader([]byte(os.ExpandEnv(string(b)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode config, %w", err)
	}
	return cfg.Validate()
}

// Validate runs basic validation on the config and returns a copy with per forecaster defaults
// filled in
func (c *Config) Validate() (*Config, error) {
	if c == nil {
		c = NewDefaultConfig()
	}
	res := *c

	switch {
	case res.Dataset.Freq != "":
		if _, err := timedataset.ParseFreq(res.Dataset.Freq); err != nil {
			return nil, fmt.Errorf("dataset frequency, %w", err)
		}
	case res.Dataset.Path == "":
		res.Dataset.Freq = DefaultFreq
	}
	if res.Dataset.PredictionLength <= 0 {
		return nil, ErrInvalidPredictionLength
	}
	if _, err := res.EvaluateOptions(); err != nil {
		return nil, fmt.Errorf("evaluation, %w", err)
	}
	if res.NumSamples <= 0 {
		return nil, ErrInvalidNumSamples
	}
	if res.Parallelization <= 0 {
		res.Parallelization = 1
	}

	if len(res.Forecasters) == 0 {
		return nil, ErrNoForecasters
	}
	res.Forecasters = make([]ForecasterConfig, len(c.Forecasters))
	seen := make(map[string]struct{}, len(c.Forecasters))
	for i, fc := range c.Forecasters {
		if fc.Name == "" {
			fc.Name = fc.Type
		}
		if fc.NumSamples == 0 {
			fc.NumSamples = res.NumSamples
		}
		if err := fc.validate(); err != nil {
			return nil, fmt.Errorf("forecaster %d, %w", i, err)
		}
		if _, exists := seen[fc.Name]; exists {
			return nil, fmt.Errorf("%q, %w", fc.Name, ErrDuplicateForecaster)
		}
		seen[fc.Name] = struct{}{}
		res.Forecasters[i] = fc
	}

	switch res.Store.Type {
	case "":
		res.Store.Type = StoreNone
	case StoreNone, StoreMemory:
	case StoreRedis:
		if res.Store.Addr == "" {
			return nil, store.ErrMissingAddr
		}
	default:
		return nil, fmt.Errorf("%q, %w", res.Store.Type, ErrUnknownStoreType)
	}
	return &res, nil
}

func (fc ForecasterConfig) validate() error {
	if fc.NumSamples <= 0 {
		return ErrInvalidNumSamples
	}
	switch fc.Type {
	case TypeSeasonalNaive, TypeGaussian, TypeHarmonic:
		if fc.Season < 0 {
			return fmt.Errorf("negative season %d", fc.Season)
		}
		if fc.Orders < 0 {
			return producer.ErrNegativeOrders
		}
	case TypeRemote:
		if fc.URL == "" {
			return producer.ErrMissingURL
		}
	default:
		return fmt.Errorf("%q, %w", fc.Type, ErrUnknownForecasterType)
	}
	return nil
}

// Options converts the evaluation section into evaluator options
func (e EvaluationConfig) Options() *evaluate.Options {
	return &evaluate.Options{
		Seasonality:     e.Seasonality,
		Alpha:           e.Alpha,
		Parallelization: e.Parallelization,
	}
}

// EvaluateOptions returns the evaluator options with the configured quantile levels parsed
func (c *Config) EvaluateOptions() (*evaluate.Options, error) {
	opt := c.Evaluation.Options()
	if len(c.Evaluation.Quantiles) > 0 {
		levels, err := quantile.ParseLevels(c.Evaluation.Quantiles)
		if err != nil {
			return nil, err
		}
		opt.QuantileLevels = levels
	}
	return opt.Validate()
}

// Freq returns the parsed dataset frequency. It is zero when the frequency is to be inferred from
// the dataset file.
func (c *Config) Freq() (timedataset.Freq, error) {
	if c.Dataset.Freq == "" {
		return timedataset.Freq{}, nil
	}
	return timedataset.ParseFreq(c.Dataset.Freq)
}

// LoadDataset reads the configured dataset or generates the synthetic one
func (c *Config) LoadDataset() (*dataset.Dataset, error) {
	freq, err := c.Freq()
	if err != nil {
		return nil, err
	}

	if c.Dataset.Path != "" {
		ds, err := dataset.LoadFile(c.Dataset.Path, freq, c.Dataset.PredictionLength)
		if err != nil {
			return nil, err
		}
		if c.Dataset.Name != "" {
			ds.Name = c.Dataset.Name
		}
		return ds, nil
	}

	opt := dataset.NewDefaultSyntheticOptions()
	opt.Freq = freq
	opt.PredictionLength = c.Dataset.PredictionLength
	if c.Dataset.Name != "" {
		opt.Name = c.Dataset.Name
	}
	if c.Dataset.Synthetic.NumItems > 0 {
		opt.NumItems = c.Dataset.Synthetic.NumItems
	}
	if c.Dataset.Synthetic.Length > 0 {
		opt.Length = c.Dataset.Synthetic.Length
	}
	if c.Dataset.Synthetic.Seed > 0 {
		opt.Seed = c.Dataset.Synthetic.Seed
	}
	return dataset.Synthetic(opt)
}

// Build creates the producer described by the forecaster config
func (fc ForecasterConfig) Build() (producer.Producer, error) {
	switch fc.Type {
	case TypeSeasonalNaive:
		return producer.NewSeasonalNaive(fc.Name, fc.Season), nil
	case TypeGaussian:
		return producer.NewGaussianBaseline(fc.Name, fc.Season, fc.Seed), nil
	case TypeHarmonic:
		opt := producer.NewDefaultHarmonicOptions()
		opt.Season = fc.Season
		opt.Seed = fc.Seed
		if fc.Orders > 0 {
			opt.Orders = fc.Orders
		}
		switch {
		case fc.OutlierPasses < 0:
			opt.OutlierOptions = nil
		case fc.OutlierPasses > 0:
			opt.OutlierOptions.NumPasses = fc.OutlierPasses
		}
		p, err := producer.NewHarmonicRegression(fc.Name, opt)
		if err != nil {
			return nil, err
		}
		return p, nil
	case TypeRemote:
		opt := producer.NewDefaultRemoteOptions(fc.URL)
		opt.Headers = fc.Headers
		opt.Params = fc.Params
		if fc.Timeout > 0 {
			opt.Timeout = fc.Timeout
		}
		if fc.SamplesPath != "" {
			opt.SamplesPath = fc.SamplesPath
		}
		if fc.QuantilesPath != "" {
			opt.QuantilesPath = fc.QuantilesPath
		}
		if fc.MeanPath != "" {
			opt.MeanPath = fc.MeanPath
		}
		p, err := producer.NewRemote(fc.Name, opt)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%q, %w", fc.Type, ErrUnknownForecasterType)
	}
}

// OpenStore connects to the configured report store. A nil store is returned for type none.
func (c *Config) OpenStore(ctx context.Context) (store.Store, error) {
	switch c.Store.Type {
	case "", StoreNone:
		return nil, nil
	case StoreMemory:
		return store.NewMemoryStore(), nil
	case StoreRedis:
		s, err := store.NewRedisStore(ctx, c.Store.Addr, c.Store.Password, c.Store.DB, c.Store.TTL)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%q, %w", c.Store.Type, ErrUnknownStoreType)
	}
}
