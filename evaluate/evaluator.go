// Package evaluate scores probabilistic forecasts against held-out ground truth. The headline
// metric is the mean weighted quantile loss, the pinball loss summed over quantile levels, horizon
// steps and series and normalized by the total absolute magnitude of the ground truth.
package evaluate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrEmptyInput      = errors.New("no forecast and ground truth pairs to score")
	ErrShapeMismatch   = errors.New("forecast horizon does not match held-out ground truth length")
	ErrMissingForecast = errors.New("pair has no forecast")

	// ErrInvalidQuantile is returned for levels outside of (0, 1). It is the same error value as
	// quantile.ErrInvalidQuantile.
	ErrInvalidQuantile = quantile.ErrInvalidQuantile
)

// Pair couples a forecast with the values that were actually observed over its horizon
type Pair struct {
	// ItemID identifies the series. Falls back to the forecast's item id when empty.
	ItemID string

	// Past is the history preceding the horizon. Only used to compute the seasonal error that
	// scales MASE and MSIS; may be nil.
	Past []float64

	// Actual holds the held-out ground truth. NaN marks a missing observation which is excluded
	// from every metric.
	Actual []float64

	Forecast forecast.Forecast
}

func (p Pair) id() string {
	if p.ItemID != "" || p.Forecast == nil {
		return p.ItemID
	}
	return p.Forecast.ItemID()
}

// Evaluator scores collections of forecasts. It holds no state beyond its options and is safe for
// concurrent use.
type Evaluator struct {
	opt *Options
}

// New creates an evaluator, using the default options when opt is nil
func New(opt *Options) (*Evaluator, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid evaluation options, %w", err)
	}
	return &Evaluator{opt: opt}, nil
}

// QuantileLevels returns the sorted levels every forecast is scored at
func (e *Evaluator) QuantileLevels() []float64 {
	levels := make([]float64, len(e.opt.QuantileLevels))
	copy(levels, e.opt.QuantileLevels)
	return levels
}

// Score computes per item metrics for every pair and folds them into dataset level aggregates.
// Items are folded in input order, so the result does not depend on Parallelization.
func (e *Evaluator) Score(pairs []Pair) (*Result, error) {
	if len(pairs) == 0 {
		return nil, ErrEmptyInput
	}
	for i, p := range pairs {
		if err := checkPair(p); err != nil {
			return nil, fmt.Errorf("pair %d (%s), %w", i, p.id(), err)
		}
	}

	items := make([]ItemMetrics, len(pairs))
	scoreAt := func(i int) error {
		m, err := e.scoreItem(pairs[i])
		if err != nil {
			return fmt.Errorf("unable to score pair %d (%s), %w", i, pairs[i].id(), err)
		}
		items[i] = ItemMetrics{ItemID: pairs[i].id(), Metrics: m}
		return nil
	}

	if e.opt.Parallelization <= 1 {
		for i := range pairs {
			if err := scoreAt(i); err != nil {
				return nil, err
			}
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.opt.Parallelization)
		for i := range pairs {
			g.Go(func() error {
				return scoreAt(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return &Result{
		QuantileLevels: e.QuantileLevels(),
		Aggregate:      e.aggregate(items),
		Items:          items,
	}, nil
}

// Score evaluates pairs at the given quantile levels with otherwise default options and returns
// the aggregate metrics
func Score(pairs []Pair, levels []float64) (Metrics, error) {
	opt := NewDefaultOptions()
	opt.QuantileLevels = levels
	ev, err := New(opt)
	if err != nil {
		return nil, err
	}
	res, err := ev.Score(pairs)
	if err != nil {
		return nil, err
	}
	return res.Aggregate, nil
}

func checkPair(p Pair) error {
	if p.Forecast == nil {
		return ErrMissingForecast
	}
	if p.Forecast.Horizon() != len(p.Actual) {
		return fmt.Errorf(
			"forecast horizon of %d, but %d held-out values, %w",
			p.Forecast.Horizon(), len(p.Actual), ErrShapeMismatch,
		)
	}
	return nil
}

func (e *Evaluator) seasonality(f forecast.Forecast) int {
	if e.opt.Seasonality > 0 {
		return e.opt.Seasonality
	}
	return f.Freq().Seasonality()
}

func (e *Evaluator) scoreItem(p Pair) (Metrics, error) {
	f := p.Forecast
	actual := p.Actual

	var n int
	var absTargetSum float64
	for _, y := range actual {
		if math.IsNaN(y) {
			continue
		}
		absTargetSum += math.Abs(y)
		n++
	}
	if n == 0 {
		slog.Warn("no observed ground truth values in horizon", "item_id", p.id())
	}

	m := make(Metrics, 12+3*len(e.opt.QuantileLevels))
	m[MetricAbsTargetSum] = absTargetSum
	m[MetricAbsTargetMean] = mean(absTargetSum, n)

	seasonalErr := seasonalError(p.Past, e.seasonality(f))
	m[MetricSeasonalError] = seasonalErr

	m[MetricMSE] = math.NaN()
	if fcMean, err := f.Mean(); err == nil {
		m[MetricMSE] = squaredError(actual, fcMean, n)
	} else {
		slog.Warn("forecast has no mean, skipping MSE", "item_id", p.id(), "error", err)
	}

	m[MetricAbsError] = math.NaN()
	m[MetricMASE] = math.NaN()
	m[MetricMAPE] = math.NaN()
	m[MetricSMAPE] = math.NaN()
	m[MetricND] = math.NaN()
	if median, err := f.Quantile(0.5); err == nil {
		absErr, mape, smape := medianErrors(actual, median)
		m[MetricAbsError] = absErr
		m[MetricMASE] = div(mean(absErr, n), seasonalErr)
		m[MetricMAPE] = mape
		m[MetricSMAPE] = smape
		m[MetricND] = div(absErr, absTargetSum)
	} else {
		slog.Warn("forecast has no median, skipping absolute error metrics", "item_id", p.id(), "error", err)
	}

	m[MetricMSIS] = math.NaN()
	lower, errLower := f.Quantile(e.opt.Alpha / 2)
	upper, errUpper := f.Quantile(1 - e.opt.Alpha/2)
	if errLower == nil && errUpper == nil {
		m[MetricMSIS] = div(intervalScore(actual, lower, upper, e.opt.Alpha, n), seasonalErr)
	}

	wQuantileLosses := make([]float64, 0, len(e.opt.QuantileLevels))
	for _, q := range e.opt.QuantileLevels {
		pred, err := f.Quantile(q)
		if err != nil {
			return nil, fmt.Errorf("quantile %v, %w", q, err)
		}
		var loss float64
		var covered int
		for i, y := range actual {
			if math.IsNaN(y) {
				continue
			}
			loss += quantile.Loss(q, y, pred[i])
			if quantile.Covered(y, pred[i]) {
				covered++
			}
		}
		// doubled so that the weighted loss at the median equals ND
		m[QuantileLossKey(q)] = 2 * loss
		m[CoverageKey(q)] = mean(float64(covered), n)
		m[WeightedQuantileLossKey(q)] = div(2*loss, absTargetSum)
		wQuantileLosses = append(wQuantileLosses, m[WeightedQuantileLossKey(q)])
	}
	m[MetricMeanWQuantileLoss] = floats.Sum(wQuantileLosses) / float64(len(wQuantileLosses))

	return m, nil
}

// aggregate folds the per item metrics in order. Totals are summed and the ratio metrics are
// recomputed from the totals. Everything else is averaged over the items where it is defined.
func (e *Evaluator) aggregate(items []ItemMetrics) Metrics {
	levels := e.opt.QuantileLevels
	column := func(name string) []float64 {
		vals := make([]float64, len(items))
		for i, item := range items {
			vals[i] = item.Metrics.Get(name)
		}
		return vals
	}

	agg := make(Metrics, 12+4*len(levels))
	for _, name := range []string{MetricAbsError, MetricAbsTargetSum} {
		agg[name] = floats.Sum(column(name))
	}
	for _, name := range []string{
		MetricMSE, MetricAbsTargetMean, MetricSeasonalError,
		MetricMASE, MetricMAPE, MetricSMAPE, MetricMSIS,
	} {
		agg[name] = nanMean(column(name))
	}

	absTargetSum := agg[MetricAbsTargetSum]
	agg[MetricRMSE] = math.Sqrt(agg[MetricMSE])
	agg[MetricNRMSE] = div(agg[MetricRMSE], agg[MetricAbsTargetMean])
	agg[MetricND] = div(agg[MetricAbsError], absTargetSum)

	quantileLosses := make([]float64, len(levels))
	wQuantileLosses := make([]float64, len(levels))
	coverageErrs := make([]float64, len(levels))
	for i, q := range levels {
		ql := floats.Sum(column(QuantileLossKey(q)))
		cov := nanMean(column(CoverageKey(q)))

		agg[QuantileLossKey(q)] = ql
		agg[CoverageKey(q)] = cov
		agg[WeightedQuantileLossKey(q)] = div(ql, absTargetSum)

		quantileLosses[i] = ql
		wQuantileLosses[i] = agg[WeightedQuantileLossKey(q)]
		coverageErrs[i] = math.Abs(cov - q)
	}
	agg[MetricMeanWQuantileLoss] = floats.Sum(wQuantileLosses) / float64(len(levels))
	agg[MetricMeanAbsoluteQuantileLoss] = floats.Sum(quantileLosses) / float64(len(levels))
	agg[MetricMAECoverage] = floats.Sum(coverageErrs) / float64(len(levels))
	return agg
}

func mean(sum float64, n int) float64 {
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// seasonalError is the mean absolute error of the seasonal naive forecast over the history. A
// history no longer than one season falls back to a lag of 1.
func seasonalError(past []float64, season int) float64 {
	if season <= 0 || season >= len(past) {
		season = 1
	}
	var sum float64
	var n int
	for t := season; t < len(past); t++ {
		d := past[t] - past[t-season]
		if math.IsNaN(d) {
			continue
		}
		sum += math.Abs(d)
		n++
	}
	return mean(sum, n)
}

func squaredError(actual, pred []float64, n int) float64 {
	var sum float64
	for i, y := range actual {
		if math.IsNaN(y) {
			continue
		}
		sum += (y - pred[i]) * (y - pred[i])
	}
	return mean(sum, n)
}

// medianErrors returns the summed absolute error with the mean absolute percentage and symmetric
// percentage errors. Steps whose percentage denominator is zero are skipped.
func medianErrors(actual, median []float64) (absErr, mape, smape float64) {
	var apeSum, sapeSum float64
	var apeN, sapeN int
	for i, y := range actual {
		if math.IsNaN(y) {
			continue
		}
		e := math.Abs(y - median[i])
		absErr += e
		if y != 0 {
			apeSum += e / math.Abs(y)
			apeN++
		}
		if den := math.Abs(y) + math.Abs(median[i]); den != 0 {
			sapeSum += 2 * e / den
			sapeN++
		}
	}
	return absErr, mean(apeSum, apeN), mean(sapeSum, sapeN)
}

// intervalScore is the mean interval score of the (lower, upper) prediction interval at level
// alpha. Misses are penalized by 2/alpha times their distance from the interval.
func intervalScore(actual, lower, upper []float64, alpha float64, n int) float64 {
	var sum float64
	for i, y := range actual {
		if math.IsNaN(y) {
			continue
		}
		sum += upper[i] - lower[i]
		if y < lower[i] {
			sum += 2 / alpha * (lower[i] - y)
		}
		if y > upper[i] {
			sum += 2 / alpha * (y - upper[i])
		}
	}
	return mean(sum, n)
}
