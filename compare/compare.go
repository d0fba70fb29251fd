// Package compare scores several forecast sets for the same series with one evaluator so their
// aggregate scores are directly comparable, e.g. a zero-shot model, a fine-tuned model and a
// baseline.
package compare

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

var (
	ErrNoSets            = errors.New("no forecast sets to compare")
	ErrDuplicateSet      = errors.New("duplicate forecast set name")
	ErrSeriesSetMismatch = errors.New("forecast set does not cover the same series as the ground truth")
)

// TableMetrics are the aggregate metrics shown by TablePrint
var TableMetrics = []string{
	evaluate.MetricMeanWQuantileLoss,
	evaluate.MetricND,
	evaluate.MetricRMSE,
	evaluate.MetricMASE,
	evaluate.MetricMSIS,
	evaluate.MetricMAECoverage,
}

// Truth is the observed data of one series. Past is optional history used for seasonal scaling.
type Truth struct {
	ItemID string
	Past   []float64
	Actual []float64
}

// Set is the output of one forecaster, with Forecasts[i] predicting Truth[i]
type Set struct {
	Name      string
	Forecasts []forecast.Forecast
}

// Entry is the evaluation of one forecast set
type Entry struct {
	Forecaster string           `json:"forecaster"`
	Result     *evaluate.Result `json:"result"`
}

// Score is the mean weighted quantile loss of the entry
func (e Entry) Score() float64 {
	if e.Result == nil {
		return math.NaN()
	}
	return e.Result.MeanWQuantileLoss()
}

// Report holds the entries of a comparison run ordered from best to worst score
type Report struct {
	RunID          string    `json:"run_id"`
	CreatedAt      time.Time `json:"created_at"`
	Dataset        string    `json:"dataset,omitempty"`
	QuantileLevels []float64 `json:"quantile_levels"`
	Entries        []Entry   `json:"entries"`
}

// Run scores every set against the same truth with the same evaluator. Sets must have one forecast
// per truth series in the same order; item ids are checked whenever both sides carry one.
func Run(ev *evaluate.Evaluator, truth []Truth, sets []Set) (*Report, error) {
	if len(sets) == 0 {
		return nil, ErrNoSets
	}
	if len(truth) == 0 {
		return nil, evaluate.ErrEmptyInput
	}

	seen := make(map[string]struct{}, len(sets))
	for _, s := range sets {
		if _, exists := seen[s.Name]; exists {
			return nil, fmt.Errorf("%q, %w", s.Name, ErrDuplicateSet)
		}
		seen[s.Name] = struct{}{}
		if err := checkSet(truth, s); err != nil {
			return nil, err
		}
	}

	report := &Report{
		RunID:          uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		QuantileLevels: ev.QuantileLevels(),
		Entries:        make([]Entry, 0, len(sets)),
	}
	for _, s := range sets {
		pairs := make([]evaluate.Pair, len(truth))
		for i, tr := range truth {
			pairs[i] = evaluate.Pair{
				ItemID:   tr.ItemID,
				Past:     tr.Past,
				Actual:   tr.Actual,
				Forecast: s.Forecasts[i],
			}
		}
		res, err := ev.Score(pairs)
		if err != nil {
			return nil, fmt.Errorf("unable to score forecast set %s, %w", s.Name, err)
		}
		report.Entries = append(report.Entries, Entry{Forecaster: s.Name, Result: res})
	}

	sort.SliceStable(report.Entries, func(i, j int) bool {
		return lessScore(report.Entries[i].Score(), report.Entries[j].Score())
	})
	return report, nil
}

func checkSet(truth []Truth, s Set) error {
	if len(s.Forecasts) != len(truth) {
		return fmt.Errorf(
			"set %s has %d forecasts for %d series, %w",
			s.Name, len(s.Forecasts), len(truth), ErrSeriesSetMismatch,
		)
	}
	for i, f := range s.Forecasts {
		if f == nil || truth[i].ItemID == "" || f.ItemID() == "" {
			continue
		}
		if f.ItemID() != truth[i].ItemID {
			return fmt.Errorf(
				"set %s forecast %d is for %s but the series is %s, %w",
				s.Name, i, f.ItemID(), truth[i].ItemID, ErrSeriesSetMismatch,
			)
		}
	}
	return nil
}

// lessScore orders ascending with NaN last
func lessScore(a, b float64) bool {
	if math.IsNaN(a) {
		return false
	}
	if math.IsNaN(b) {
		return true
	}
	return a < b
}

// Best returns the entry with the lowest score
func (r *Report) Best() (Entry, bool) {
	if r == nil || len(r.Entries) == 0 || math.IsNaN(r.Entries[0].Score()) {
		return Entry{}, false
	}
	return r.Entries[0], true
}

// Entry returns the entry of the named forecaster
func (r *Report) Entry(forecaster string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.Forecaster == forecaster {
			return e, true
		}
	}
	return Entry{}, false
}

// TablePrint writes the headline aggregate metrics of every entry as a table
func (r *Report) TablePrint(w io.Writer) error {
	fmt.Fprintf(w, "Run: %s\n", r.RunID)
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset: %s\n", r.Dataset)
	}

	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "Forecaster\t")
	for _, name := range TableMetrics {
		fmt.Fprintf(tbl, "%s\t", name)
	}
	fmt.Fprintf(tbl, "\n")

	for _, e := range r.Entries {
		fmt.Fprintf(tbl, "%s\t", e.Forecaster)
		for _, name := range TableMetrics {
			v := math.NaN()
			if e.Result != nil {
				v = e.Result.Aggregate.Get(name)
			}
			fmt.Fprintf(tbl, "%.4f\t", v)
		}
		fmt.Fprintf(tbl, "\n")
	}
	return tbl.Flush()
}

// Marshal encodes the report as indented JSON. Undefined metrics are written as null.
func (r *Report) Marshal() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// Unmarshal decodes a report previously encoded with Marshal
func Unmarshal(b []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, fmt.Errorf("unable to decode report, %w", err)
	}
	return &r, nil
}

// WriteFile writes the report JSON to path
func (r *Report) WriteFile(path string) error {
	b, err := r.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}
