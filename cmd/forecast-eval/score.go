package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/aouyang1/go-forecast-eval/forecast"
	"github.com/aouyang1/go-forecast-eval/quantile"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var scoreFlags struct {
	Input           string
	Quantiles       string
	Seasonality     int
	Alpha           float64
	Parallelization int
	Output          string
	Items           bool
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score forecasts produced elsewhere against their ground truth",
	Long: `Score reads a JSON array of ground truth and forecast pairs, e.g.

  [{"item_id": "a", "past": [1, 2, 3], "actual": [4, 5],
    "forecast": {"type": "quantiles", "quantiles": {"p10": [3, 4], "p50": [4, 5], "p90": [5, 6]}}}]

and prints the aggregate metrics. Missing values are written as null.`,
	Args: cobra.NoArgs,
	RunE: runScore,
}

func init() {
	scoreCmd.Flags().StringVarP(&scoreFlags.Input, "input", "i", "", "Path to the pairs JSON file (- for stdin)")
	scoreCmd.Flags().StringVarP(&scoreFlags.Quantiles, "quantiles", "q", "", "Comma separated quantile levels, e.g. p10,p50,p90 (default deciles)")
	scoreCmd.Flags().IntVar(&scoreFlags.Seasonality, "seasonality", 0, "Seasonal lag for MASE and MSIS (0 derives it from the forecast frequency)")
	scoreCmd.Flags().Float64Var(&scoreFlags.Alpha, "alpha", evaluate.DefaultAlpha, "Significance level of the MSIS interval")
	scoreCmd.Flags().IntVar(&scoreFlags.Parallelization, "parallelization", evaluate.DefaultParallelization, "Number of items scored concurrently")
	scoreCmd.Flags().StringVarP(&scoreFlags.Output, "output", "o", FormatText, "Output format (text|json)")
	scoreCmd.Flags().BoolVar(&scoreFlags.Items, "items", false, "Include per item metrics in the output")
	scoreCmd.MarkFlagRequired("input")
}

// pairSpec is the file form of an evaluate.Pair
type pairSpec struct {
	ItemID   string          `json:"item_id"`
	Past     dataset.Target  `json:"past"`
	Actual   dataset.Target  `json:"actual"`
	Forecast json.RawMessage `json:"forecast"`
}

func readPairs(r io.Reader) ([]evaluate.Pair, error) {
	var specs []pairSpec
	if err := json.NewDecoder(r).Decode(&specs); err != nil {
		return nil, fmt.Errorf("unable to decode pairs, %w", err)
	}

	pairs := make([]evaluate.Pair, len(specs))
	for i, s := range specs {
		f, err := forecast.UnmarshalForecast(s.Forecast)
		if err != nil {
			return nil, fmt.Errorf("pair %d, %w", i, err)
		}
		pairs[i] = evaluate.Pair{
			ItemID:   s.ItemID,
			Past:     s.Past,
			Actual:   s.Actual,
			Forecast: f,
		}
	}
	return pairs, nil
}

func runScore(cmd *cobra.Command, args []string) error {
	opt := &evaluate.Options{
		Seasonality:     scoreFlags.Seasonality,
		Alpha:           scoreFlags.Alpha,
		Parallelization: scoreFlags.Parallelization,
	}
	if scoreFlags.Quantiles != "" {
		levels, err := quantile.ParseLevels(strings.Split(scoreFlags.Quantiles, ","))
		if err != nil {
			return fmt.Errorf("--quantiles, %w", err)
		}
		opt.QuantileLevels = levels
	}
	ev, err := evaluate.New(opt)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if scoreFlags.Input != "-" {
		file, err := os.Open(scoreFlags.Input)
		if err != nil {
			return err
		}
		defer file.Close()
		in = file
	}
	pairs, err := readPairs(in)
	if err != nil {
		return err
	}

	res, err := ev.Score(pairs)
	if err != nil {
		return err
	}
	if !scoreFlags.Items {
		res.Items = nil
	}

	out := cmd.OutOrStdout()
	switch scoreFlags.Output {
	case FormatJSON:
		b, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	case FormatText:
		return printMetrics(out, res)
	default:
		return fmt.Errorf("--output %q, %w", scoreFlags.Output, ErrInvalidFlag)
	}
}

// printMetrics writes one metric per row with an optional column per item
func printMetrics(w io.Writer, res *evaluate.Result) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "Metric\tAggregate\t")
	for _, item := range res.Items {
		fmt.Fprintf(tbl, "%s\t", item.ItemID)
	}
	fmt.Fprintf(tbl, "\n")

	for _, name := range res.Aggregate.Names() {
		fmt.Fprintf(tbl, "%s\t%.6f\t", name, res.Aggregate.Get(name))
		for _, item := range res.Items {
			fmt.Fprintf(tbl, "%.6f\t", item.Metrics.Get(name))
		}
		fmt.Fprintf(tbl, "\n")
	}
	return tbl.Flush()
}
