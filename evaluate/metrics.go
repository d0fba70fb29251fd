package evaluate

import (
	"math"
	"sort"

	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/stat"
)

// metric names match the ones reported by the widely used forecasting evaluators so scores can be
// compared side by side
const (
	MetricMSE                      = "MSE"
	MetricRMSE                     = "RMSE"
	MetricNRMSE                    = "NRMSE"
	MetricAbsError                 = "abs_error"
	MetricAbsTargetSum             = "abs_target_sum"
	MetricAbsTargetMean            = "abs_target_mean"
	MetricSeasonalError            = "seasonal_error"
	MetricMASE                     = "MASE"
	MetricMAPE                     = "MAPE"
	MetricSMAPE                    = "sMAPE"
	MetricMSIS                     = "MSIS"
	MetricND                       = "ND"
	MetricQuantileLoss             = "QuantileLoss"
	MetricCoverage                 = "Coverage"
	MetricWeightedQuantileLoss     = "wQuantileLoss"
	// MetricMeanWQuantileLoss is the mean over the quantile levels of wQuantileLoss[q], where
	// wQuantileLoss[q] = 2 * sum(pinball loss at q) / sum(|y|) over every item and horizon step.
	MetricMeanWQuantileLoss        = "mean_wQuantileLoss"
	MetricMeanAbsoluteQuantileLoss = "mean_absolute_QuantileLoss"
	MetricMAECoverage              = "MAE_Coverage"
)

// QuantileLossKey is the metric name of the summed quantile loss at level q
func QuantileLossKey(q float64) string {
	return quantile.Key(MetricQuantileLoss, q)
}

// CoverageKey is the metric name of the fraction of true values at or below the q-quantile
func CoverageKey(q float64) string {
	return quantile.Key(MetricCoverage, q)
}

// WeightedQuantileLossKey is the metric name of the quantile loss at level q normalized by the
// absolute target sum
func WeightedQuantileLossKey(q float64) string {
	return quantile.Key(MetricWeightedQuantileLoss, q)
}

// Metrics maps a metric name to its value. Undefined metrics are NaN.
type Metrics map[string]float64

// Names returns the metric names in sorted order
func (m Metrics) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named metric or NaN if it was not computed
func (m Metrics) Get(name string) float64 {
	v, exists := m[name]
	if !exists {
		return math.NaN()
	}
	return v
}

// MarshalJSON renders NaN and infinite values as null since JSON has no representation for them
func (m Metrics) MarshalJSON() ([]byte, error) {
	out := make(map[string]*float64, len(m))
	for name, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			out[name] = nil
			continue
		}
		val := v
		out[name] = &val
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads null values back as NaN
func (m *Metrics) UnmarshalJSON(b []byte) error {
	var in map[string]*float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Metrics, len(in))
	for name, v := range in {
		if v == nil {
			out[name] = math.NaN()
			continue
		}
		out[name] = *v
	}
	*m = out
	return nil
}

// ItemMetrics holds the metrics of a single scored series
type ItemMetrics struct {
	ItemID  string  `json:"item_id"`
	Metrics Metrics `json:"metrics"`
}

// Result is the outcome of an evaluation run
type Result struct {
	QuantileLevels []float64     `json:"quantile_levels"`
	Aggregate      Metrics       `json:"aggregate"`
	Items          []ItemMetrics `json:"items"`
}

// MeanWQuantileLoss returns the headline mean weighted quantile loss
func (r *Result) MeanWQuantileLoss() float64 {
	return r.Aggregate.Get(MetricMeanWQuantileLoss)
}

// div treats 0/0 as 0 so a perfect forecast of an all zero series scores 0 instead of NaN. Any
// other division by zero is +Inf.
func div(num, den float64) float64 {
	if math.IsNaN(num) || math.IsNaN(den) {
		return math.NaN()
	}
	if den == 0 {
		if num == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return num / den
}

// nanMean averages the values that are not NaN, returning NaN when none are left
func nanMean(vals []float64) float64 {
	valid := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return stat.Mean(valid, nil)
}
