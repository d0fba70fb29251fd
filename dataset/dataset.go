// Package dataset loads collections of regularly sampled series and splits them into the training
// history and held-out horizon that forecasts are scored against
package dataset

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/aouyang1/go-forecast-eval/timedataset"
	"github.com/goccy/go-json"
)

const maxLineBytes = 64 * 1024 * 1024

var (
	ErrEmptyDataset            = errors.New("dataset has no items")
	ErrShortSeries             = errors.New("series is not longer than the prediction length")
	ErrInvalidPredictionLength = errors.New("prediction length must be positive")
	ErrMissingFreq             = errors.New("dataset frequency is required")
	ErrDuplicateItem           = errors.New("duplicate item id")
	ErrTimestampMismatch       = errors.New("item timestamps do not match its start and target")
)

// Target holds observed values. Missing observations are NaN in memory and null in JSON.
type Target []float64

func (t Target) MarshalJSON() ([]byte, error) {
	out := make([]*float64, len(t))
	for i, v := range t {
		if math.IsNaN(v) {
			continue
		}
		val := v
		out[i] = &val
	}
	return json.Marshal(out)
}

func (t *Target) UnmarshalJSON(b []byte) error {
	var in []*float64
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	out := make(Target, len(in))
	for i, v := range in {
		if v == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *v
	}
	*t = out
	return nil
}

// Item is a single series of the dataset
type Item struct {
	ItemID string    `json:"item_id"`
	Start  time.Time `json:"start"`
	Target Target    `json:"target"`

	// Timestamps is optional. It holds one time point per target value and lets the dataset
	// frequency be inferred when none is given.
	Timestamps []time.Time `json:"timestamps,omitempty"`
}

// Series returns the item as a time dataset sampled at freq
func (it Item) Series(freq timedataset.Freq) (*timedataset.TimeDataset, error) {
	return timedataset.NewRegularDataset(it.Start, freq, it.Target)
}

// Dataset is a named collection of series sharing a sampling frequency and prediction length
type Dataset struct {
	Name             string
	Freq             timedataset.Freq
	PredictionLength int
	Items            []Item
}

// Split is the training history of an item together with its held-out horizon
type Split struct {
	ItemID string
	Train  *timedataset.TimeDataset
	Test   *timedataset.TimeDataset
}

// New validates the items and builds a dataset. The item slice is copied before missing ids and
// starts are filled in; targets are shared with the caller. A zero freq is inferred from the item
// timestamps.
func New(name string, freq timedataset.Freq, predictionLength int, items []Item) (*Dataset, error) {
	if predictionLength <= 0 {
		return nil, fmt.Errorf("got %d, %w", predictionLength, ErrInvalidPredictionLength)
	}
	if len(items) == 0 {
		return nil, ErrEmptyDataset
	}
	items = slices.Clone(items)

	if freq.IsZero() {
		inferred, err := inferFreq(items)
		if err != nil {
			return nil, err
		}
		freq = inferred
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		if items[i].ItemID == "" {
			items[i].ItemID = fmt.Sprintf("item_%d", i)
		}
		if _, exists := seen[items[i].ItemID]; exists {
			return nil, fmt.Errorf("%q, %w", items[i].ItemID, ErrDuplicateItem)
		}
		seen[items[i].ItemID] = struct{}{}

		if err := alignTimestamps(&items[i], freq); err != nil {
			return nil, fmt.Errorf("item %s, %w", items[i].ItemID, err)
		}
	}

	return &Dataset{
		Name:             name,
		Freq:             freq,
		PredictionLength: predictionLength,
		Items:            items,
	}, nil
}

// inferFreq estimates the frequency from the first item carrying at least two timestamps
func inferFreq(items []Item) (timedataset.Freq, error) {
	for _, item := range items {
		if len(item.Timestamps) < 2 {
			continue
		}
		freq, err := timedataset.TimeSlice(item.Timestamps).EstimateFreq()
		if err != nil {
			return timedataset.Freq{}, fmt.Errorf("unable to infer frequency from item %s, %w", item.ItemID, err)
		}
		return freq, nil
	}
	return timedataset.Freq{}, fmt.Errorf("no item has timestamps to infer it from, %w", ErrMissingFreq)
}

// alignTimestamps checks that the timestamps follow freq and fills in a missing start
func alignTimestamps(item *Item, freq timedataset.Freq) error {
	ts := timedataset.TimeSlice(item.Timestamps)
	if len(ts) == 0 {
		return nil
	}
	if len(ts) != len(item.Target) {
		return fmt.Errorf("%d timestamps for %d values, %w", len(ts), len(item.Target), ErrTimestampMismatch)
	}
	if !ts.FollowsFreq(freq) {
		return fmt.Errorf("timestamps do not follow %s, %w", freq, timedataset.ErrIrregular)
	}
	if item.Start.IsZero() {
		item.Start = ts.StartTime()
		return nil
	}
	if !item.Start.Equal(ts.StartTime()) {
		return fmt.Errorf("start %s but first timestamp %s, %w", item.Start, ts.StartTime(), ErrTimestampMismatch)
	}
	return nil
}

// Load reads a JSON Lines dataset where every line holds one item, e.g.
// {"item_id": "a", "start": "2024-01-01T00:00:00Z", "target": [1, 2, null, 4]}
// A zero freq is inferred from items that list their "timestamps" instead of a start.
func Load(r io.Reader, name string, freq timedataset.Freq, predictionLength int) (*Dataset, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var items []Item
	var lineNum int
	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item Item
		if err := json.Unmarshal(line, &item); err != nil {
			return nil, fmt.Errorf("unable to decode item on line %d, %w", lineNum, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read dataset, %w", err)
	}
	return New(name, freq, predictionLength, items)
}

// LoadFile loads a JSON Lines dataset from disk, naming it after the file
func LoadFile(path string, freq timedataset.Freq, predictionLength int) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Load(f, name, freq, predictionLength)
}

// Write encodes the dataset as JSON Lines
func (d *Dataset) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, item := range d.Items {
		b, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("unable to encode item %s, %w", item.ItemID, err)
		}
		if _, err := bw.Write(b); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the dataset as JSON Lines to path
func (d *Dataset) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// TestSplit holds out the last PredictionLength observations of every item
func (d *Dataset) TestSplit() ([]Split, error) {
	splits := make([]Split, 0, len(d.Items))
	for _, item := range d.Items {
		if len(item.Target) <= d.PredictionLength {
			return nil, fmt.Errorf(
				"item %s has %d observations with a prediction length of %d, %w",
				item.ItemID, len(item.Target), d.PredictionLength, ErrShortSeries,
			)
		}
		series, err := item.Series(d.Freq)
		if err != nil {
			return nil, fmt.Errorf("item %s, %w", item.ItemID, err)
		}
		train, test, err := series.Split(d.PredictionLength)
		if err != nil {
			return nil, fmt.Errorf("item %s, %w", item.ItemID, err)
		}
		splits = append(splits, Split{ItemID: item.ItemID, Train: train, Test: test})
	}
	return splits, nil
}
