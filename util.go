package forecasteval

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

const (
	DefaultPlotItems   = 5
	DefaultPlotHistory = 3

	bandLower = 0.1
	bandUpper = 0.9
)

var ErrNoReport = errors.New("results have no report")

// PlotOpts limits how much of the experiment is drawn. History is the number of horizons of
// training data shown before each forecast.
type PlotOpts struct {
	MaxItems int
	History  int
}

// missing is rendered by echarts as a gap in the line
const missing = "-"

func plotValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return v
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. Every
// series in y must have the same length as t; NaN values are drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
		charts.WithTooltipOpts(
			opts.Tooltip{
				Trigger: "axis",
			},
		),
	)

	line = line.SetXAxis(t)
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, v := range y[i] {
			lineData = append(lineData, opts.LineData{Value: plotValue(v)})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineItem plots the tail of an item's history and its held-out values along with the median and
// 10-90% band of every forecaster
func LineItem(split dataset.Split, names []string, forecasts []forecast.Forecast, history int) *charts.Line {
	train, test := split.Train, split.Test
	start := len(train.T) - history
	if start < 0 {
		start = 0
	}
	numPast := len(train.T) - start
	n := numPast + len(test.T)

	t := make([]time.Time, 0, n)
	t = append(t, train.T[start:]...)
	t = append(t, test.T...)

	actual := make([]float64, 0, n)
	actual = append(actual, train.Y[start:]...)
	actual = append(actual, test.Y...)

	seriesNames := []string{"Actual"}
	y := [][]float64{actual}
	for i, f := range forecasts {
		bands := []struct {
			label string
			q     float64
		}{
			{"Median", 0.5},
			{"Lower", bandLower},
			{"Upper", bandUpper},
		}
		for _, b := range bands {
			values, err := f.Quantile(b.q)
			if err != nil {
				continue
			}
			padded := make([]float64, n)
			for j := range padded {
				padded[j] = math.NaN()
			}
			copy(padded[numPast:], values)
			seriesNames = append(seriesNames, names[i]+" "+b.label)
			y = append(y, padded)
		}
	}
	return LineTSeries(split.ItemID, seriesNames, t, y)
}

// BarScores generates a bar chart of an aggregate metric for every entry of the report
func BarScores(report *compare.Report, metric string) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: metric,
			},
		),
	)

	names := make([]string, 0, len(report.Entries))
	barData := make([]opts.BarData, 0, len(report.Entries))
	for _, e := range report.Entries {
		names = append(names, e.Forecaster)
		v := math.NaN()
		if e.Result != nil {
			v = e.Result.Aggregate.Get(metric)
		}
		barData = append(barData, opts.BarData{Value: plotValue(v)})
	}
	bar.SetXAxis(names).AddSeries(metric, barData)
	return bar
}

// PlotComparison uses the Apache Echarts library to render an html page with the score of every
// forecaster and the forecasts of the first few items
func (r *Results) PlotComparison(w io.Writer, opt *PlotOpts) error {
	if r.Report == nil {
		return ErrNoReport
	}

	maxItems := DefaultPlotItems
	history := DefaultPlotHistory
	if opt != nil {
		maxItems = opt.MaxItems
		history = opt.History
	}
	if maxItems > len(r.Splits) || maxItems <= 0 {
		maxItems = len(r.Splits)
	}

	page := components.NewPage()
	page.AddCharts(BarScores(r.Report, evaluate.MetricMeanWQuantileLoss))

	names := make([]string, 0, len(r.Report.Entries))
	for _, e := range r.Report.Entries {
		if _, exists := r.Forecasts[e.Forecaster]; exists {
			names = append(names, e.Forecaster)
		}
	}
	for i := 0; i < maxItems; i++ {
		split := r.Splits[i]
		forecasts := make([]forecast.Forecast, len(names))
		for j, name := range names {
			forecasts[j] = r.Forecasts[name][i]
		}
		page.AddCharts(LineItem(split, names, forecasts, history*split.Test.Len()))
	}
	return page.Render(w)
}
