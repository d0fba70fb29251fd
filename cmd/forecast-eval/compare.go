package main

import (
	"fmt"
	"log/slog"
	"os"

	forecasteval "github.com/aouyang1/go-forecast-eval"
	"github.com/aouyang1/go-forecast-eval/config"
	"github.com/aouyang1/go-forecast-eval/metrics"
	"github.com/spf13/cobra"
)

var compareFlags struct {
	ConfigFile string
	Report     string
	Plot       string
	Textfile   string
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run every configured forecaster on a dataset and rank them",
	Long: `Compare holds out the last prediction_length values of every series in the
dataset, asks each forecaster for a probabilistic forecast of them and scores
all forecasts with the same evaluator.

Without --config two baselines are compared on a synthetic hourly dataset.`,
	Args: cobra.NoArgs,
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().StringVarP(&compareFlags.ConfigFile, "config", "c", "", "Path to the experiment YAML file")
	compareCmd.Flags().StringVar(&compareFlags.Report, "report", "", "Write the report JSON to this path")
	compareCmd.Flags().StringVar(&compareFlags.Plot, "plot", "", "Write an HTML comparison chart to this path")
	compareCmd.Flags().StringVar(&compareFlags.Textfile, "textfile", "", "Write Prometheus metrics to this path")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewDefaultConfig().Validate()
	}
	return config.Load(path)
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(compareFlags.ConfigFile)
	if err != nil {
		return err
	}
	outputs := cfg.Outputs
	if compareFlags.Report != "" {
		outputs.Report = compareFlags.Report
	}
	if compareFlags.Plot != "" {
		outputs.Plot = compareFlags.Plot
	}
	if compareFlags.Textfile != "" {
		outputs.Textfile = compareFlags.Textfile
	}

	ds, err := cfg.LoadDataset()
	if err != nil {
		return fmt.Errorf("unable to load dataset, %w", err)
	}
	evalOpt, err := cfg.EvaluateOptions()
	if err != nil {
		return err
	}

	forecasters := make([]forecasteval.Forecaster, 0, len(cfg.Forecasters))
	for _, fc := range cfg.Forecasters {
		p, err := fc.Build()
		if err != nil {
			return fmt.Errorf("forecaster %s, %w", fc.Name, err)
		}
		forecasters = append(forecasters, forecasteval.Forecaster{Producer: p, NumSamples: fc.NumSamples})
	}

	rec := metrics.New(ds.Name)
	exp, err := forecasteval.New(&forecasteval.Options{
		Evaluation:      evalOpt,
		NumSamples:      cfg.NumSamples,
		Parallelization: cfg.Parallelization,
		Recorder:        rec,
	})
	if err != nil {
		return err
	}

	slog.Info("running experiment",
		"dataset", ds.Name,
		"items", len(ds.Items),
		"prediction_length", ds.PredictionLength,
		"forecasters", len(forecasters),
	)
	res, err := exp.Run(ctx, ds, forecasters)
	if err != nil {
		return err
	}

	if err := res.TablePrint(cmd.OutOrStdout()); err != nil {
		return err
	}

	if outputs.Report != "" {
		if err := res.Report.WriteFile(outputs.Report); err != nil {
			return fmt.Errorf("unable to write report, %w", err)
		}
		slog.Info("wrote report", "path", outputs.Report)
	}
	if outputs.Plot != "" {
		file, err := os.Create(outputs.Plot)
		if err != nil {
			return err
		}
		defer file.Close()
		if err := res.PlotComparison(file, nil); err != nil {
			return fmt.Errorf("unable to render plot, %w", err)
		}
		slog.Info("wrote plot", "path", outputs.Plot)
	}
	if outputs.Textfile != "" {
		if err := rec.WriteTextfile(outputs.Textfile); err != nil {
			return fmt.Errorf("unable to write metrics, %w", err)
		}
		slog.Info("wrote metrics", "path", outputs.Textfile)
	}

	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return nil
	}
	defer st.Close()
	if cfg.Store.Type == config.StoreMemory {
		slog.Warn("memory store is discarded when the process exits, use redis to keep history")
	}
	if err := st.Put(ctx, res.Report); err != nil {
		return fmt.Errorf("unable to store report, %w", err)
	}
	slog.Info("stored report", "run_id", res.Report.RunID, "store", cfg.Store.Type)
	return nil
}
