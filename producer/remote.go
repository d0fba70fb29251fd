package producer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const (
	DefaultRemoteTimeout = 60 * time.Second
	DefaultSamplesPath   = "samples"
	DefaultQuantilesPath = "quantiles"
	DefaultMeanPath      = "mean"

	maxErrorBody = 1024
)

var (
	ErrMissingURL      = errors.New("remote producer URL is required")
	ErrRemoteStatus    = errors.New("remote producer returned a non-200 status")
	ErrInvalidResponse = errors.New("remote producer response has neither samples nor quantiles")
)

// RemoteOptions configures a pretrained model served behind an HTTP inference endpoint. Zero-shot
// and fine-tuned checkpoints are separate Remote producers pointing at different endpoints or
// passing different Params.
type RemoteOptions struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration

	// Params are passed through untouched in the request body, e.g. a checkpoint name
	Params map[string]any

	// gjson paths into the response. Sample paths take precedence over quantiles when both exist.
	SamplesPath   string
	QuantilesPath string
	MeanPath      string

	// HTTPClient is optional. A client with Timeout is created when nil.
	HTTPClient *http.Client
}

// NewDefaultRemoteOptions returns the default response paths and timeout for url
func NewDefaultRemoteOptions(url string) *RemoteOptions {
	return &RemoteOptions{
		URL:           url,
		Timeout:       DefaultRemoteTimeout,
		SamplesPath:   DefaultSamplesPath,
		QuantilesPath: DefaultQuantilesPath,
		MeanPath:      DefaultMeanPath,
	}
}

// Validate runs basic validation and fills in the default paths
func (o *RemoteOptions) Validate() (*RemoteOptions, error) {
	if o == nil || o.URL == "" {
		return nil, ErrMissingURL
	}
	res := *o
	if res.Timeout <= 0 {
		res.Timeout = DefaultRemoteTimeout
	}
	if res.SamplesPath == "" {
		res.SamplesPath = DefaultSamplesPath
	}
	if res.QuantilesPath == "" {
		res.QuantilesPath = DefaultQuantilesPath
	}
	if res.MeanPath == "" {
		res.MeanPath = DefaultMeanPath
	}
	return &res, nil
}

// Remote requests forecasts from an inference service. The request body carries the history and
// horizon; the response must contain either sample paths ([][]float64) or quantiles keyed by level
// ({"p10": [...], "0.9": [...]}), optionally with a mean.
type Remote struct {
	name   string
	opt    *RemoteOptions
	client *http.Client
}

type remoteRequest struct {
	ItemID           string         `json:"item_id"`
	Start            time.Time      `json:"start"`
	Freq             string         `json:"freq"`
	Target           []*float64     `json:"target"`
	PredictionLength int            `json:"prediction_length"`
	NumSamples       int            `json:"num_samples"`
	Params           map[string]any `json:"params,omitempty"`
}

// NewRemote creates a remote producer
func NewRemote(name string, opt *RemoteOptions) (*Remote, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	if name == "" {
		name = "remote"
	}
	client := opt.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opt.Timeout}
	}
	return &Remote{name: name, opt: opt, client: client}, nil
}

func (r *Remote) Name() string {
	return r.name
}

func (r *Remote) Predict(ctx context.Context, req Request) (forecast.Forecast, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	target := make([]*float64, len(req.Train.Y))
	for i, v := range req.Train.Y {
		if math.IsNaN(v) {
			continue
		}
		val := v
		target[i] = &val
	}
	body, err := json.Marshal(remoteRequest{
		ItemID:           req.ItemID,
		Start:            req.Train.T[0],
		Freq:             req.Freq.String(),
		Target:           target,
		PredictionLength: req.Horizon,
		NumSamples:       req.NumSamples,
		Params:           r.opt.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to encode request, %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.opt.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("unable to create request, %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for key, value := range r.opt.Headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request failed, %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("http %d: %s, %w", resp.StatusCode, string(msg), ErrRemoteStatus)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("unable to read response, %w", err)
	}

	f, err := r.decode(req, respBody)
	if err != nil {
		return nil, err
	}
	if f.Horizon() != req.Horizon {
		return nil, fmt.Errorf(
			"requested %d steps, got %d, %w",
			req.Horizon, f.Horizon(), forecast.ErrHorizonMismatch,
		)
	}
	return f, nil
}

func (r *Remote) decode(req Request, body []byte) (forecast.Forecast, error) {
	if samples := gjson.GetBytes(body, r.opt.SamplesPath); samples.Exists() && samples.IsArray() {
		paths := make([][]float64, 0, len(samples.Array()))
		for _, path := range samples.Array() {
			paths = append(paths, floatArray(path))
		}
		return forecast.NewSampleForecast(req.Meta(), paths)
	}

	quantiles := gjson.GetBytes(body, r.opt.QuantilesPath)
	if !quantiles.Exists() || !quantiles.IsObject() {
		return nil, ErrInvalidResponse
	}

	values := make(map[float64][]float64)
	var parseErr error
	quantiles.ForEach(func(key, value gjson.Result) bool {
		q, err := quantile.ParseLevel(key.String())
		if err != nil {
			parseErr = fmt.Errorf("quantile key %q, %w", key.String(), err)
			return false
		}
		values[q] = floatArray(value)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	var mean []float64
	if m := gjson.GetBytes(body, r.opt.MeanPath); m.Exists() && m.IsArray() {
		mean = floatArray(m)
	}
	return forecast.NewQuantileForecast(req.Meta(), values, mean)
}

// floatArray converts a JSON array, mapping null to NaN
func floatArray(res gjson.Result) []float64 {
	arr := res.Array()
	out := make([]float64, len(arr))
	for i, v := range arr {
		if v.Type == gjson.Null {
			out[i] = math.NaN()
			continue
		}
		out[i] = v.Float()
	}
	return out
}
