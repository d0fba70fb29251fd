package forecast

import (
	"fmt"
	"strconv"
	"time"

	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/aouyang1/go-forecast-eval/timedataset"
	"github.com/goccy/go-json"
)

const (
	TypePoint     = "point"
	TypeSamples   = "samples"
	TypeQuantiles = "quantiles"
)

// Spec is the serializeable form of a forecast. Exactly one of Point, Samples or Quantiles is
// read depending on Type. Quantile keys accept decimal (0.9) or p-notation (p90).
type Spec struct {
	Type      string               `json:"type"`
	ItemID    string               `json:"item_id,omitempty"`
	Start     time.Time            `json:"start"`
	Freq      timedataset.Freq     `json:"freq"`
	Point     []float64            `json:"point,omitempty"`
	Samples   [][]float64          `json:"samples,omitempty"`
	Quantiles map[string][]float64 `json:"quantiles,omitempty"`
	Mean      []float64            `json:"mean,omitempty"`
}

func (s Spec) meta() Meta {
	return Meta{ItemID: s.ItemID, Start: s.Start, Freq: s.Freq}
}

// Decode builds the forecast described by the spec
func (s Spec) Decode() (Forecast, error) {
	switch s.Type {
	case TypePoint:
		return NewPointForecast(s.meta(), s.Point)
	case TypeSamples:
		return NewSampleForecast(s.meta(), s.Samples)
	case TypeQuantiles:
		values := make(map[float64][]float64, len(s.Quantiles))
		for key, v := range s.Quantiles {
			q, err := quantile.ParseLevel(key)
			if err != nil {
				return nil, err
			}
			values[q] = v
		}
		return NewQuantileForecast(s.meta(), values, s.Mean)
	}
	return nil, fmt.Errorf("type %q, %w", s.Type, ErrUnknownType)
}

// Encode converts a forecast into its serializeable spec
func Encode(f Forecast) (Spec, error) {
	s := Spec{
		ItemID: f.ItemID(),
		Start:  f.StartDate(),
		Freq:   f.Freq(),
	}
	switch v := f.(type) {
	case *PointForecast:
		s.Type = TypePoint
		s.Point = v.Values()
	case *SampleForecast:
		s.Type = TypeSamples
		s.Samples = v.Samples()
	case *QuantileForecast:
		s.Type = TypeQuantiles
		s.Quantiles = make(map[string][]float64, len(v.levels))
		for i, q := range v.levels {
			s.Quantiles[strconv.FormatFloat(q, 'f', -1, 64)] = copyValues(v.values[i])
		}
		if v.mean != nil {
			s.Mean = copyValues(v.mean)
		}
	default:
		return Spec{}, fmt.Errorf("%T, %w", f, ErrUnknownType)
	}
	return s, nil
}

// UnmarshalForecast decodes a JSON forecast spec
func UnmarshalForecast(b []byte) (Forecast, error) {
	var s Spec
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unable to decode forecast spec, %w", err)
	}
	return s.Decode()
}

// MarshalForecast encodes a forecast as a JSON spec
func MarshalForecast(f Forecast) ([]byte, error) {
	s, err := Encode(f)
	if err != nil {
		return nil, err
	}
	return json.Marshal(s)
}
