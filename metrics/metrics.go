// Package metrics exports evaluation results and producer timings as Prometheus metrics. Batch
// evaluation jobs write them to a file for the node exporter textfile collector.
//
// Metrics exposed:
//   - forecasteval_score: Gauge of every aggregate metric by forecaster and metric name
//   - forecasteval_predict_seconds: Histogram of forecast production time by forecaster
//   - forecasteval_errors_total: Counter of errors by component and reason
//   - forecasteval_last_run_timestamp_seconds: Gauge of when the last report was recorded
package metrics

import (
	"math"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the metrics on a private registry so several recorders never collide
type Recorder struct {
	registry *prometheus.Registry

	Score          *prometheus.GaugeVec
	PredictSeconds *prometheus.HistogramVec
	ErrorsTotal    *prometheus.CounterVec
	LastRun        prometheus.Gauge
}

// New creates a recorder. dataset is attached to every metric as a constant label when set.
func New(dataset string) *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	var constLabels prometheus.Labels
	if dataset != "" {
		constLabels = prometheus.Labels{"dataset": dataset}
	}

	return &Recorder{
		registry: reg,

		Score: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name:        "forecasteval_score",
			Help:        "Aggregate evaluation metric of the last run",
			ConstLabels: constLabels,
		}, []string{"forecaster", "metric"}),

		PredictSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "forecasteval_predict_seconds",
			Help:        "Time spent producing a single forecast",
			ConstLabels: constLabels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"forecaster"}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "forecasteval_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: constLabels,
		}, []string{"component", "reason"}),

		LastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "forecasteval_last_run_timestamp_seconds",
			Help:        "Unix time the last report was recorded",
			ConstLabels: constLabels,
		}),
	}
}

// Registry returns the registry holding the recorder's metrics
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordPredict records the time spent producing one forecast
func (r *Recorder) RecordPredict(forecaster string, seconds float64) {
	r.PredictSeconds.WithLabelValues(forecaster).Observe(seconds)
}

// RecordError increments the error counter
func (r *Recorder) RecordError(component, reason string) {
	r.ErrorsTotal.WithLabelValues(component, reason).Inc()
}

// RecordReport sets a score gauge for every aggregate metric of every entry. Undefined metrics
// are skipped since they cannot be compared across runs.
func (r *Recorder) RecordReport(report *compare.Report) {
	for _, e := range report.Entries {
		if e.Result == nil {
			continue
		}
		for name, v := range e.Result.Aggregate {
			if math.IsNaN(v) {
				continue
			}
			r.Score.WithLabelValues(e.Forecaster, name).Set(v)
		}
	}
	r.LastRun.Set(float64(report.CreatedAt.UnixNano()) / 1e9)
}

// WriteTextfile writes the metrics in the Prometheus text format to path
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
