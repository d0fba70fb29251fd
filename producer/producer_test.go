package producer

import (
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func newRequest(t *testing.T, y []float64, horizon, numSamples int) Request {
	t.Helper()
	freq := timedataset.MustParseFreq("H")
	train, err := timedataset.NewRegularDataset(testStart, freq, y)
	require.Nil(t, err)
	return Request{
		ItemID:     "item_0",
		Train:      train,
		Freq:       freq,
		Horizon:    horizon,
		NumSamples: numSamples,
	}
}

func TestRequestValidate(t *testing.T) {
	valid := newRequest(t, []float64{1, 2, 3}, 2, 10)

	testData := map[string]struct {
		mutate func(r *Request)
		err    error
	}{
		"valid":        {func(r *Request) {}, nil},
		"no history":   {func(r *Request) { r.Train = nil }, ErrEmptyHistory},
		"zero horizon": {func(r *Request) { r.Horizon = 0 }, ErrInvalidHorizon},
		"zero samples": {func(r *Request) { r.NumSamples = 0 }, ErrInvalidNumSamples},
		"no frequency": {func(r *Request) { r.Freq = timedataset.Freq{} }, ErrMissingFreq},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			req := valid
			td.mutate(&req)
			err := req.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}
}

func TestSeasonalNaive(t *testing.T) {
	testData := map[string]struct {
		y        []float64
		season   int
		horizon  int
		expected []float64
	}{
		"repeats last season": {
			y:        []float64{1, 2, 3, 4, 5, 6},
			season:   3,
			horizon:  5,
			expected: []float64{4, 5, 6, 4, 5},
		},
		"short history uses mean": {
			y:        []float64{1, 2, 3},
			season:   4,
			horizon:  2,
			expected: []float64{2, 2},
		},
		"missing values filled with mean": {
			y:        []float64{2, math.NaN(), 4},
			season:   1,
			horizon:  2,
			expected: []float64{4, 4},
		},
		"missing value in last season": {
			y:        []float64{2, 4, math.NaN()},
			season:   2,
			horizon:  2,
			expected: []float64{4, 3},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			p := NewSeasonalNaive("", td.season)
			assert.Equal(t, "seasonal_naive", p.Name())

			f, err := p.Predict(context.Background(), newRequest(t, td.y, td.horizon, 1))
			require.Nil(t, err)
			median, err := f.Quantile(0.5)
			require.Nil(t, err)
			assert.Equal(t, td.expected, median)
			assert.Equal(t, testStart.Add(time.Duration(len(td.y))*time.Hour), f.StartDate())
		})
	}
}

func TestGaussianBaseline(t *testing.T) {
	y := make([]float64, 0, 96)
	for i := 0; i < 96; i++ {
		y = append(y, 50+10*math.Sin(2*math.Pi*float64(i)/24)+float64(i%5))
	}
	req := newRequest(t, y, 24, 200)

	p := NewGaussianBaseline("baseline", 0, 7)
	f, err := p.Predict(context.Background(), req)
	require.Nil(t, err)

	sf, ok := f.(*forecast.SampleForecast)
	require.True(t, ok)
	assert.Equal(t, 200, sf.NumSamples())
	assert.Equal(t, 24, sf.Horizon())

	mean, err := sf.Mean()
	require.Nil(t, err)
	center := seasonalNaive(y, 24, 24)
	for i := range mean {
		assert.InDelta(t, center[i], mean[i], 1.5)
	}

	again, err := p.Predict(context.Background(), req)
	require.Nil(t, err)
	assert.Equal(t, sf.Samples(), again.(*forecast.SampleForecast).Samples())

	other := req
	other.ItemID = "item_1"
	diff, err := p.Predict(context.Background(), other)
	require.Nil(t, err)
	assert.NotEqual(t, sf.Samples(), diff.(*forecast.SampleForecast).Samples())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Predict(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemoteSamples(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var req remoteRequest
		assert.Nil(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "item_0", req.ItemID)
		assert.Equal(t, "H", req.Freq)
		assert.Equal(t, 2, req.PredictionLength)
		assert.Equal(t, 3, req.NumSamples)
		assert.Equal(t, "small", req.Params["checkpoint"])
		if assert.Len(t, req.Target, 3) {
			assert.Nil(t, req.Target[1])
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"output": {"samples": [[1, 10], [2, 20], [3, 30]]}}`))
	}))
	defer server.Close()

	opt := NewDefaultRemoteOptions(server.URL)
	opt.SamplesPath = "output.samples"
	opt.Headers = map[string]string{"Authorization": "Bearer token"}
	opt.Params = map[string]any{"checkpoint": "small"}

	p, err := NewRemote("zero_shot", opt)
	require.Nil(t, err)
	assert.Equal(t, "zero_shot", p.Name())

	f, err := p.Predict(context.Background(), newRequest(t, []float64{1, math.NaN(), 3}, 2, 3))
	require.Nil(t, err)
	median, err := f.Quantile(0.5)
	require.Nil(t, err)
	assert.Equal(t, []float64{2, 20}, median)
	assert.Equal(t, "item_0", f.ItemID())
}

func TestRemoteQuantiles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"quantiles": {"p10": [1, 2], "0.5": [2, 3], "p90": [3, 4]}, "mean": [2.5, 3.5]}`))
	}))
	defer server.Close()

	p, err := NewRemote("fine_tuned", NewDefaultRemoteOptions(server.URL))
	require.Nil(t, err)

	f, err := p.Predict(context.Background(), newRequest(t, []float64{1, 2, 3}, 2, 20))
	require.Nil(t, err)

	q90, err := f.Quantile(0.9)
	require.Nil(t, err)
	assert.Equal(t, []float64{3, 4}, q90)

	mean, err := f.Mean()
	require.Nil(t, err)
	assert.Equal(t, []float64{2.5, 3.5}, mean)
}

func TestRemoteErrors(t *testing.T) {
	testData := map[string]struct {
		status int
		body   string
		err    error
	}{
		"server error":     {http.StatusInternalServerError, `model not loaded`, ErrRemoteStatus},
		"empty response":   {http.StatusOK, `{}`, ErrInvalidResponse},
		"wrong horizon":    {http.StatusOK, `{"samples": [[1, 2, 3]]}`, forecast.ErrHorizonMismatch},
		"ragged samples":   {http.StatusOK, `{"samples": [[1, 2], [1]]}`, forecast.ErrHorizonMismatch},
		"bad quantile key": {http.StatusOK, `{"quantiles": {"p150": [1, 2]}}`, quantile.ErrInvalidQuantile},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(td.status)
				w.Write([]byte(td.body))
			}))
			defer server.Close()

			p, err := NewRemote("", NewDefaultRemoteOptions(server.URL))
			require.Nil(t, err)
			_, err = p.Predict(context.Background(), newRequest(t, []float64{1, 2, 3}, 2, 5))
			assert.ErrorIs(t, err, td.err)
		})
	}

	_, err := NewRemote("", &RemoteOptions{})
	assert.ErrorIs(t, err, ErrMissingURL)
}

func TestHarmonicRegression(t *testing.T) {
	truth := func(i int) float64 {
		return 50 + 0.5*float64(i) + 10*math.Sin(2*math.Pi*float64(i)/24)
	}
	y := make([]float64, 96)
	for i := range y {
		y[i] = truth(i)
	}
	y[40] = 500
	y[41] = math.NaN()

	p, err := NewHarmonicRegression("", nil)
	require.Nil(t, err)
	assert.Equal(t, "harmonic_regression", p.Name())

	req := newRequest(t, y, 12, 30)
	f, err := p.Predict(context.Background(), req)
	require.Nil(t, err)

	sf, ok := f.(*forecast.SampleForecast)
	require.True(t, ok)
	assert.Equal(t, 30, sf.NumSamples())

	median, err := f.Quantile(0.5)
	require.Nil(t, err)
	for i, v := range median {
		assert.InDelta(t, truth(96+i), v, 1e-6)
	}

	again, err := p.Predict(context.Background(), req)
	require.Nil(t, err)
	assert.Equal(t, sf.Samples(), again.(*forecast.SampleForecast).Samples())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Predict(ctx, req)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHarmonicRegressionOptions(t *testing.T) {
	testData := map[string]struct {
		opt *HarmonicOptions
		err error
	}{
		"nil":             {nil, nil},
		"no outliers":     {&HarmonicOptions{Orders: 2}, nil},
		"negative orders": {&HarmonicOptions{Orders: -1}, ErrNegativeOrders},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := NewHarmonicRegression("", td.opt)
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			assert.Nil(t, err)
		})
	}

	// the outlier drags the single fit away from the underlying line
	y := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 100}
	req := newRequest(t, y, 1, 2001)

	robust, err := NewHarmonicRegression("robust", &HarmonicOptions{Season: 1, OutlierOptions: NewOutlierOptions()})
	require.Nil(t, err)
	f, err := robust.Predict(context.Background(), req)
	require.Nil(t, err)
	median, err := f.Quantile(0.5)
	require.Nil(t, err)
	assert.InDelta(t, 13.0, median[0], 1e-6)

	plain, err := NewHarmonicRegression("plain", &HarmonicOptions{Season: 1})
	require.Nil(t, err)
	f, err = plain.Predict(context.Background(), req)
	require.Nil(t, err)
	median, err = f.Quantile(0.5)
	require.Nil(t, err)
	assert.Greater(t, median[0], 20.0)
}

func TestDropIndices(t *testing.T) {
	ts, y := dropIndices([]int{0, 2, 3, 5}, []float64{1, 2, 3, 4}, []int{1, 3})
	assert.Equal(t, []int{0, 3}, ts)
	assert.Equal(t, []float64{1, 3}, y)
}
