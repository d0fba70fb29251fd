// Package forecasteval runs forecast comparison experiments: every forecaster predicts the held-out
// horizon of every series in a dataset and the forecasts are scored side by side with one
// evaluator.
package forecasteval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/producer"
	"golang.org/x/sync/errgroup"
)

var ErrNilProducer = errors.New("forecaster has no producer")

// Forecaster is one contender of an experiment. A NumSamples of 0 uses the experiment default.
type Forecaster struct {
	Producer   producer.Producer
	NumSamples int
}

// Experiment scores forecasters against the held-out tail of a dataset
type Experiment struct {
	opt *Options
	ev  *evaluate.Evaluator
}

// New creates an experiment. If no options are provided the defaults are used.
func New(opt *Options) (*Experiment, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	ev, err := evaluate.New(opt.Evaluation)
	if err != nil {
		return nil, err
	}
	return &Experiment{opt: opt, ev: ev}, nil
}

// Evaluator returns the evaluator every forecaster is scored with
func (e *Experiment) Evaluator() *evaluate.Evaluator {
	return e.ev
}

// Run splits off the last PredictionLength values of every item, asks each forecaster to predict
// them from the remaining history and compares the forecasts
func (e *Experiment) Run(ctx context.Context, ds *dataset.Dataset, forecasters []Forecaster) (*Results, error) {
	if len(forecasters) == 0 {
		return nil, compare.ErrNoSets
	}
	seen := make(map[string]struct{}, len(forecasters))
	for i, fc := range forecasters {
		if fc.Producer == nil {
			return nil, fmt.Errorf("forecaster %d, %w", i, ErrNilProducer)
		}
		name := fc.Producer.Name()
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("%q, %w", name, compare.ErrDuplicateSet)
		}
		seen[name] = struct{}{}
	}

	splits, err := ds.TestSplit()
	if err != nil {
		return nil, fmt.Errorf("unable to split dataset, %w", err)
	}

	truth := make([]compare.Truth, len(splits))
	for i, s := range splits {
		truth[i] = compare.Truth{
			ItemID: s.ItemID,
			Past:   s.Train.Y,
			Actual: s.Test.Y,
		}
	}

	res := &Results{
		Forecasts: make(map[string][]forecast.Forecast, len(forecasters)),
		Splits:    splits,
	}
	sets := make([]compare.Set, 0, len(forecasters))
	for _, fc := range forecasters {
		forecasts, err := e.predict(ctx, ds, splits, fc)
		if err != nil {
			return nil, err
		}
		name := fc.Producer.Name()
		res.Forecasts[name] = forecasts
		sets = append(sets, compare.Set{Name: name, Forecasts: forecasts})
	}

	report, err := compare.Run(e.ev, truth, sets)
	if err != nil {
		e.recordError("compare", err)
		return nil, err
	}
	report.Dataset = ds.Name
	res.Report = report

	if e.opt.Recorder != nil {
		e.opt.Recorder.RecordReport(report)
	}
	if best, ok := report.Best(); ok {
		slog.Info("experiment complete",
			"run_id", report.RunID,
			"dataset", ds.Name,
			"items", len(splits),
			"best", best.Forecaster,
			evaluate.MetricMeanWQuantileLoss, best.Score(),
		)
	}
	return res, nil
}

func (e *Experiment) predict(ctx context.Context, ds *dataset.Dataset, splits []dataset.Split, fc Forecaster) ([]forecast.Forecast, error) {
	name := fc.Producer.Name()
	numSamples := fc.NumSamples
	if numSamples <= 0 {
		numSamples = e.opt.NumSamples
	}

	forecasts := make([]forecast.Forecast, len(splits))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opt.Parallelization)
	for i, s := range splits {
		g.Go(func() error {
			req := producer.Request{
				ItemID:     s.ItemID,
				Train:      s.Train,
				Freq:       ds.Freq,
				Horizon:    ds.PredictionLength,
				NumSamples: numSamples,
			}
			start := time.Now()
			f, err := fc.Producer.Predict(gctx, req)
			if err != nil {
				e.recordError("producer", err)
				return fmt.Errorf("forecaster %s item %s, %w", name, s.ItemID, err)
			}
			if e.opt.Recorder != nil {
				e.opt.Recorder.RecordPredict(name, time.Since(start).Seconds())
			}
			forecasts[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slog.Debug("forecaster done", "forecaster", name, "items", len(splits), "num_samples", numSamples)
	return forecasts, nil
}

func (e *Experiment) recordError(component string, err error) {
	if e.opt.Recorder == nil {
		return
	}
	e.opt.Recorder.RecordError(component, errorReason(err))
}

// errorReason maps an error to a low cardinality label value
func errorReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, producer.ErrRemoteStatus):
		return "remote_status"
	case errors.Is(err, producer.ErrInvalidResponse), errors.Is(err, forecast.ErrHorizonMismatch):
		return "invalid_forecast"
	case errors.Is(err, compare.ErrSeriesSetMismatch), errors.Is(err, evaluate.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, evaluate.ErrInvalidQuantile), errors.Is(err, forecast.ErrQuantileNotAvailable):
		return "quantile"
	default:
		return "other"
	}
}
