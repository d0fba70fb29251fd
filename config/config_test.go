package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/producer"
	"github.com/aouyang1/go-forecast-eval/store"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const experiment = `
dataset:
  name: toy
  freq: D
  prediction_length: 7
  synthetic:
    num_items: 3
    length: 60
evaluation:
  quantiles: [p10, p50, "0.9"]
  seasonality: 7
num_samples: 50
parallelization: 2
forecasters:
  - type: seasonal_naive
    season: 7
  - name: zero_shot
    type: remote
    url: http://localhost:8080/predict
    timeout: 30s
    headers:
      Authorization: Bearer ${FORECASTEVAL_TOKEN}
    params:
      checkpoint: small
    num_samples: 20
store:
  type: memory
outputs:
  report: report.json
`

func TestParse(t *testing.T) {
	t.Setenv("FORECASTEVAL_TOKEN", "secret")

	cfg, err := Parse([]byte(experiment))
	require.Nil(t, err)

	assert.Equal(t, "toy", cfg.Dataset.Name)
	assert.Equal(t, 7, cfg.Dataset.PredictionLength)
	assert.Equal(t, 2, cfg.Parallelization)
	assert.Equal(t, StoreMemory, cfg.Store.Type)
	assert.Equal(t, "report.json", cfg.Outputs.Report)

	require.Len(t, cfg.Forecasters, 2)
	naive := cfg.Forecasters[0]
	assert.Equal(t, "seasonal_naive", naive.Name)
	assert.Equal(t, 50, naive.NumSamples)
	assert.Equal(t, 7, naive.Season)

	remote := cfg.Forecasters[1]
	assert.Equal(t, 20, remote.NumSamples)
	assert.Equal(t, 30*time.Second, remote.Timeout)
	assert.Equal(t, "Bearer secret", remote.Headers["Authorization"])
	assert.Equal(t, "small", remote.Params["checkpoint"])

	opt, err := cfg.EvaluateOptions()
	require.Nil(t, err)
	assert.Equal(t, []float64{0.1, 0.5, 0.9}, opt.QuantileLevels)
	assert.Equal(t, 7, opt.Seasonality)
	assert.Equal(t, 0.05, opt.Alpha)

	freq, err := cfg.Freq()
	require.Nil(t, err)
	assert.Equal(t, timedataset.MustParseFreq("D"), freq)
}

func TestParseDefaults(t *testing.T) {
	testData := map[string]string{
		"empty":   "",
		"comment": "# nothing here\n",
	}

	for name, doc := range testData {
		t.Run(name, func(t *testing.T) {
			cfg, err := Parse([]byte(doc))
			require.Nil(t, err)
			assert.Equal(t, DefaultPredictionLength, cfg.Dataset.PredictionLength)
			assert.Equal(t, DefaultFreq, cfg.Dataset.Freq)
			assert.Equal(t, StoreNone, cfg.Store.Type)
			require.Len(t, cfg.Forecasters, 2)
			for _, fc := range cfg.Forecasters {
				assert.Equal(t, DefaultNumSamples, fc.NumSamples)
			}
		})
	}

	cfg, err := (*Config)(nil).Validate()
	require.Nil(t, err)
	assert.Equal(t, DefaultParallelization, cfg.Parallelization)
}

func TestParseErrors(t *testing.T) {
	testData := map[string]struct {
		doc string
		err error
	}{
		"unknown type": {
			doc: "forecasters:\n  - type: prophet\n",
			err: ErrUnknownForecasterType,
		},
		"duplicate name": {
			doc: "forecasters:\n  - type: gaussian\n  - type: gaussian\n",
			err: ErrDuplicateForecaster,
		},
		"remote without url": {
			doc: "forecasters:\n  - type: remote\n",
			err: producer.ErrMissingURL,
		},
		"negative orders": {
			doc: "forecasters:\n  - type: harmonic\n    orders: -2\n",
			err: producer.ErrNegativeOrders,
		},
		"no forecasters": {
			doc: "forecasters: []\n",
			err: ErrNoForecasters,
		},
		"negative horizon": {
			doc: "dataset:\n  prediction_length: -1\n",
			err: ErrInvalidPredictionLength,
		},
		"negative samples": {
			doc: "num_samples: -5\n",
			err: ErrInvalidNumSamples,
		},
		"redis without addr": {
			doc: "store:\n  type: redis\n",
			err: store.ErrMissingAddr,
		},
		"unknown store": {
			doc: "store:\n  type: postgres\n",
			err: ErrUnknownStoreType,
		},
		"bad frequency": {
			doc: "dataset:\n  freq: fortnight\n",
			err: timedataset.ErrUnknownFreq,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(td.doc))
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := Parse([]byte("datasets:\n  path: x\n"))
	assert.NotNil(t, err, "unknown fields are rejected")

	_, err = Parse([]byte("evaluation:\n  quantiles: [p150]\n"))
	assert.NotNil(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.NotNil(t, err)
}

func TestLoadDataset(t *testing.T) {
	cfg, err := Parse([]byte(experiment))
	require.Nil(t, err)

	ds, err := cfg.LoadDataset()
	require.Nil(t, err)
	assert.Equal(t, "toy", ds.Name)
	assert.Equal(t, 7, ds.PredictionLength)
	require.Len(t, ds.Items, 3)
	assert.Len(t, ds.Items[0].Target, 60)

	path := filepath.Join(t.TempDir(), "sales.jsonl")
	require.Nil(t, ds.WriteFile(path))

	fromFile := *cfg
	fromFile.Dataset.Path = path
	fromFile.Dataset.Name = ""
	loaded, err := fromFile.LoadDataset()
	require.Nil(t, err)
	assert.Equal(t, "sales", loaded.Name)
	assert.Len(t, loaded.Items, 3)
	assert.Equal(t, ds.Items[2].Target, loaded.Items[2].Target)

	fromFile.Dataset.Path = filepath.Join(t.TempDir(), "missing.jsonl")
	_, err = fromFile.LoadDataset()
	assert.NotNil(t, err)
}

func TestLoadDatasetInfersFreq(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "daily.jsonl")
	data := `{"item_id": "a", "timestamps": ["2024-03-01T00:00:00Z", "2024-03-02T00:00:00Z", "2024-03-03T00:00:00Z", "2024-03-04T00:00:00Z"], "target": [1, 2, 3, 4]}
`
	require.Nil(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Parse([]byte("dataset:\n  path: " + path + "\n  prediction_length: 2\n"))
	require.Nil(t, err)
	assert.Empty(t, cfg.Dataset.Freq)

	ds, err := cfg.LoadDataset()
	require.Nil(t, err)
	assert.Equal(t, timedataset.MustParseFreq("D"), ds.Freq)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ds.Items[0].Start)

	noTimestamps := filepath.Join(dir, "plain.jsonl")
	require.Nil(t, os.WriteFile(noTimestamps, []byte(`{"item_id": "a", "start": "2024-03-01T00:00:00Z", "target": [1, 2, 3]}`+"\n"), 0o644))
	cfg.Dataset.Path = noTimestamps
	_, err = cfg.LoadDataset()
	assert.ErrorIs(t, err, dataset.ErrMissingFreq)
}

func TestBuild(t *testing.T) {
	testData := map[string]struct {
		fc   ForecasterConfig
		want string
		err  error
	}{
		"seasonal naive": {ForecasterConfig{Name: "naive", Type: TypeSeasonalNaive}, "naive", nil},
		"gaussian":       {ForecasterConfig{Name: "noise", Type: TypeGaussian, Seed: 3}, "noise", nil},
		"harmonic":       {ForecasterConfig{Name: "fourier", Type: TypeHarmonic, Orders: 2, OutlierPasses: -1}, "fourier", nil},
		"remote":         {ForecasterConfig{Name: "zero_shot", Type: TypeRemote, URL: "http://localhost"}, "zero_shot", nil},
		"remote no url":  {ForecasterConfig{Name: "zero_shot", Type: TypeRemote}, "", producer.ErrMissingURL},
		"unknown":        {ForecasterConfig{Type: "arima"}, "", ErrUnknownForecasterType},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			p, err := td.fc.Build()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				assert.Nil(t, p)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.want, p.Name())
		})
	}
}

func TestOpenStore(t *testing.T) {
	cfg := NewDefaultConfig()

	s, err := cfg.OpenStore(context.Background())
	require.Nil(t, err)
	assert.Nil(t, s)

	cfg.Store.Type = StoreMemory
	s, err = cfg.OpenStore(context.Background())
	require.Nil(t, err)
	_, ok := s.(*store.MemoryStore)
	assert.True(t, ok)

	cfg.Store.Type = "etcd"
	_, err = cfg.OpenStore(context.Background())
	assert.ErrorIs(t, err, ErrUnknownStoreType)
}

func TestSyntheticDatasetDefaults(t *testing.T) {
	ds, err := NewDefaultConfig().LoadDataset()
	require.Nil(t, err)
	def := dataset.NewDefaultSyntheticOptions()
	assert.Equal(t, def.Name, ds.Name)
	assert.Len(t, ds.Items, def.NumItems)
}
