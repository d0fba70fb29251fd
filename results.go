package forecasteval

import (
	"io"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/forecast"
)

// Results of an experiment. Forecasts are keyed by forecaster name and ordered like Splits.
type Results struct {
	Report    *compare.Report
	Forecasts map[string][]forecast.Forecast
	Splits    []dataset.Split
}

// TablePrint writes the comparison table of the report
func (r *Results) TablePrint(w io.Writer) error {
	if r.Report == nil {
		return ErrNoReport
	}
	return r.Report.TablePrint(w)
}
