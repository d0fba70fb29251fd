package evaluate

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMeta = forecast.Meta{
	ItemID: "item_0",
	Start:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	Freq:   timedataset.MustParseFreq("H"),
}

func pointPair(t *testing.T, actual, pred []float64) Pair {
	t.Helper()
	f, err := forecast.NewPointForecast(testMeta, pred)
	require.Nil(t, err)
	return Pair{Actual: actual, Forecast: f}
}

// centeredSamplePairs generates series with forecasts sampled from a gaussian around the truth
func centeredSamplePairs(tb testing.TB, numSeries, horizon, numSamples int, seed uint64) []Pair {
	tb.Helper()
	rng := rand.New(rand.NewPCG(seed, seed))

	pairs := make([]Pair, 0, numSeries)
	for s := 0; s < numSeries; s++ {
		past := timedataset.GenerateConstY(48, 20+float64(s)).Add(timedataset.GenerateNoise(48, 1, rng))
		actual := timedataset.GenerateConstY(horizon, 20+float64(s)).Add(timedataset.GenerateNoise(horizon, 1, rng))

		samples := make([][]float64, numSamples)
		for i := range samples {
			samples[i] = timedataset.Series(append([]float64(nil), actual...)).Add(timedataset.GenerateNoise(horizon, 1, rng))
		}
		f, err := forecast.NewSampleForecast(testMeta, samples)
		require.Nil(tb, err)
		pairs = append(pairs, Pair{ItemID: f.ItemID(), Past: past, Actual: actual, Forecast: f})
	}
	return pairs
}

func TestOptionsValidate(t *testing.T) {
	testData := map[string]struct {
		opt      *Options
		err      error
		expected *Options
	}{
		"nil": {nil, nil, NewDefaultOptions()},
		"empty levels use defaults": {
			&Options{Alpha: 0.1},
			nil,
			&Options{QuantileLevels: quantile.DefaultLevels(), Alpha: 0.1},
		},
		"levels sorted and deduplicated": {
			&Options{QuantileLevels: []float64{0.9, 0.1, 0.5, 0.1}},
			nil,
			&Options{QuantileLevels: []float64{0.1, 0.5, 0.9}, Alpha: DefaultAlpha},
		},
		"level of zero":            {&Options{QuantileLevels: []float64{0, 0.5}}, ErrInvalidQuantile, nil},
		"level of one":             {&Options{QuantileLevels: []float64{0.5, 1}}, ErrInvalidQuantile, nil},
		"negative seasonality":     {&Options{Seasonality: -1}, ErrNegativeSeasonality, nil},
		"negative parallelization": {&Options{Parallelization: -1}, ErrNegativeParallelization, nil},
		"alpha too large":          {&Options{Alpha: 1}, ErrInvalidAlpha, nil},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			opt, err := td.opt.Validate()
			if td.err != nil {
				assert.ErrorIs(t, err, td.err)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, td.expected, opt)
		})
	}
}

func TestScoreErrors(t *testing.T) {
	ev, err := New(nil)
	require.Nil(t, err)

	_, err = ev.Score(nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ev.Score([]Pair{pointPair(t, []float64{1, 2, 3}, []float64{1, 2})})
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = ev.Score([]Pair{{Actual: []float64{1}}})
	assert.ErrorIs(t, err, ErrMissingForecast)

	_, err = Score([]Pair{pointPair(t, []float64{1}, []float64{1})}, []float64{0.5, 1.5})
	assert.ErrorIs(t, err, ErrInvalidQuantile)

	qf, err := forecast.NewQuantileForecast(testMeta, map[float64][]float64{0.4: {1}, 0.6: {2}}, nil)
	require.Nil(t, err)
	_, err = ev.Score([]Pair{{Actual: []float64{1}, Forecast: qf}})
	assert.ErrorIs(t, err, forecast.ErrQuantileNotAvailable)
}

func TestScoreKnownValues(t *testing.T) {
	opt := &Options{
		QuantileLevels: []float64{0.1, 0.5, 0.9},
		Seasonality:    1,
	}
	ev, err := New(opt)
	require.Nil(t, err)

	pair := pointPair(t, []float64{10, 20}, []float64{12, 18})
	pair.Past = []float64{1, 2, 4, 7}

	res, err := ev.Score([]Pair{pair})
	require.Nil(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "item_0", res.Items[0].ItemID)

	expected := map[string]float64{
		MetricAbsTargetSum:             30,
		MetricAbsTargetMean:            15,
		MetricAbsError:                 4,
		MetricMSE:                      4,
		MetricRMSE:                     2,
		MetricNRMSE:                    2.0 / 15,
		MetricND:                       4.0 / 30,
		MetricSeasonalError:            2,
		MetricMASE:                     1,
		MetricMAPE:                     0.15,
		MetricSMAPE:                    (4.0/22 + 4.0/38) / 2,
		MetricMSIS:                     40,
		QuantileLossKey(0.1):           4,
		QuantileLossKey(0.5):           4,
		QuantileLossKey(0.9):           4,
		CoverageKey(0.1):               0.5,
		CoverageKey(0.9):               0.5,
		MetricMeanWQuantileLoss:        4.0 / 30,
		MetricMAECoverage:              0.8 / 3,
		MetricMeanAbsoluteQuantileLoss: 4,
	}
	for name, val := range expected {
		assert.InDelta(t, val, res.Aggregate[name], 1e-9, name)
	}
	assert.InDelta(t, res.Aggregate[MetricND], res.Aggregate[WeightedQuantileLossKey(0.5)], 1e-12)
	assert.InDelta(t, res.MeanWQuantileLoss(), res.Items[0].Metrics[MetricMeanWQuantileLoss], 1e-12)
}

func TestMeanWQuantileLossFormula(t *testing.T) {
	ev, err := New(&Options{QuantileLevels: []float64{0.1, 0.9}, Seasonality: 1})
	require.Nil(t, err)

	quantilePair := func(id string, actual, lower, upper float64) Pair {
		meta := testMeta
		meta.ItemID = id
		f, err := forecast.NewQuantileForecast(meta, map[float64][]float64{0.1: {lower}, 0.9: {upper}}, nil)
		require.Nil(t, err)
		return Pair{Actual: []float64{actual}, Forecast: f}
	}
	pairs := []Pair{
		quantilePair("a", 10, 8, 14),
		quantilePair("b", -20, -25, -10),
	}

	res, err := ev.Score(pairs)
	require.Nil(t, err)

	// pinball sums: q=0.1 is 0.2+0.5, q=0.9 is 0.4+1.0, over sum(|y|) = 30
	agg := res.Aggregate
	assert.InDelta(t, 2*0.7/30, agg[WeightedQuantileLossKey(0.1)], 1e-12)
	assert.InDelta(t, 2*1.4/30, agg[WeightedQuantileLossKey(0.9)], 1e-12)
	assert.InDelta(t, (2*0.7/30+2*1.4/30)/2, agg[MetricMeanWQuantileLoss], 1e-12)
}

func TestScorePerfectForecast(t *testing.T) {
	testData := map[string]struct {
		actual []float64
		levels []float64
	}{
		"varying series":               {[]float64{3, -1, 4, 1, -5, 9}, quantile.DefaultLevels()},
		"constant series":              {[]float64{7, 7, 7, 7}, []float64{0.05, 0.5, 0.95}},
		"constant series single level": {[]float64{7, 7, 7, 7}, []float64{0.3}},
		"all zero series":              {[]float64{0, 0, 0}, quantile.DefaultLevels()},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			agg, err := Score([]Pair{pointPair(t, td.actual, td.actual)}, td.levels)
			require.Nil(t, err)
			assert.Equal(t, 0.0, agg[MetricMeanWQuantileLoss])
			for _, q := range td.levels {
				assert.Equal(t, 0.0, agg[WeightedQuantileLossKey(q)])
			}
		})
	}
}

func TestScoreAllZeroTargetWithError(t *testing.T) {
	agg, err := Score([]Pair{pointPair(t, []float64{0, 0}, []float64{1, 1})}, []float64{0.5})
	require.Nil(t, err)
	assert.True(t, math.IsInf(agg[MetricMeanWQuantileLoss], 1))
}

func TestQuantileLossAsymmetry(t *testing.T) {
	over := quantile.Loss(0.9, 10, 5)
	under := quantile.Loss(0.1, 10, 5)
	assert.Greater(t, over, under)

	agg90, err := Score([]Pair{pointPair(t, []float64{10}, []float64{5})}, []float64{0.9})
	require.Nil(t, err)
	agg10, err := Score([]Pair{pointPair(t, []float64{10}, []float64{5})}, []float64{0.1})
	require.Nil(t, err)
	assert.Greater(t, agg90[MetricMeanWQuantileLoss], agg10[MetricMeanWQuantileLoss])
}

func TestScoreScaleInvariance(t *testing.T) {
	pairs := centeredSamplePairs(t, 4, 12, 50, 7)
	base, err := Score(pairs, nil)
	require.Nil(t, err)

	for _, k := range []float64{0.001, 3.7, 1e6} {
		scaled := make([]Pair, len(pairs))
		for i, p := range pairs {
			f, err := forecast.Scale(p.Forecast, k)
			require.Nil(t, err)
			scaled[i] = Pair{
				ItemID:   p.ItemID,
				Past:     timedataset.Series(append([]float64(nil), p.Past...)).Scale(k),
				Actual:   timedataset.Series(append([]float64(nil), p.Actual...)).Scale(k),
				Forecast: f,
			}
		}
		agg, err := Score(scaled, nil)
		require.Nil(t, err)
		for _, name := range []string{MetricMeanWQuantileLoss, MetricND, MetricMASE, MetricMSIS} {
			assert.InEpsilon(t, base[name], agg[name], 1e-9, "k=%v %s", k, name)
		}
	}
}

func TestScoreNaNMasking(t *testing.T) {
	opt := &Options{QuantileLevels: []float64{0.1, 0.5, 0.9}, Seasonality: 1}
	ev, err := New(opt)
	require.Nil(t, err)

	clean := pointPair(t, []float64{10, 20}, []float64{12, 18})
	masked := pointPair(t, []float64{10, math.NaN(), 20}, []float64{12, 999, 18})

	cleanRes, err := ev.Score([]Pair{clean})
	require.Nil(t, err)
	maskedRes, err := ev.Score([]Pair{masked})
	require.Nil(t, err)

	for _, name := range []string{MetricMeanWQuantileLoss, MetricAbsError, MetricMSE, CoverageKey(0.1)} {
		assert.InDelta(t, cleanRes.Aggregate[name], maskedRes.Aggregate[name], 1e-12, name)
	}
	// no history, so the seasonal scaled metrics are undefined
	assert.True(t, math.IsNaN(maskedRes.Aggregate[MetricMASE]))
}

func TestScoreDoesNotMutateInput(t *testing.T) {
	pairs := centeredSamplePairs(t, 2, 6, 10, 3)
	actual := append([]float64(nil), pairs[0].Actual...)
	past := append([]float64(nil), pairs[0].Past...)

	_, err := Score(pairs, nil)
	require.Nil(t, err)
	assert.Equal(t, actual, pairs[0].Actual)
	assert.Equal(t, past, pairs[0].Past)
}

func TestScoreParallelMatchesSequential(t *testing.T) {
	pairs := centeredSamplePairs(t, 50, 24, 30, 11)

	seq, err := New(&Options{Parallelization: 1})
	require.Nil(t, err)
	par, err := New(&Options{Parallelization: 8})
	require.Nil(t, err)

	seqRes, err := seq.Score(pairs)
	require.Nil(t, err)
	parRes, err := par.Score(pairs)
	require.Nil(t, err)

	assert.Equal(t, seqRes.Aggregate, parRes.Aggregate)
	for i := range pairs {
		assert.Equal(t, seqRes.Items[i], parRes.Items[i])
	}
}

func TestScoreEndToEnd(t *testing.T) {
	pairs := centeredSamplePairs(t, 3, 24, 100, 42)

	agg, err := Score(pairs, quantile.DefaultLevels())
	require.Nil(t, err)

	score := agg[MetricMeanWQuantileLoss]
	assert.False(t, math.IsNaN(score))
	assert.False(t, math.IsInf(score, 0))
	assert.GreaterOrEqual(t, score, 0.0)
	assert.Less(t, score, 0.5)
}

func TestMetricsJSON(t *testing.T) {
	m := Metrics{"a": 1.5, "b": math.NaN(), "c": math.Inf(1)}
	b, err := m.MarshalJSON()
	require.Nil(t, err)
	assert.JSONEq(t, `{"a": 1.5, "b": null, "c": null}`, string(b))

	var decoded Metrics
	require.Nil(t, decoded.UnmarshalJSON(b))
	assert.Equal(t, 1.5, decoded["a"])
	assert.True(t, math.IsNaN(decoded.Get("b")))
	assert.True(t, math.IsNaN(decoded.Get("missing")))
	assert.Equal(t, []string{"a", "b", "c"}, decoded.Names())
}
