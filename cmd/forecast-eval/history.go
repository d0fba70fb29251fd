package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-forecast-eval/compare"
	"github.com/aouyang1/go-forecast-eval/config"
	"github.com/aouyang1/go-forecast-eval/evaluate"
	"github.com/spf13/cobra"
)

var (
	ErrNoStore        = errors.New("no report store configured")
	ErrEphemeralStore = errors.New("memory store does not keep reports between runs, use redis")
)

var historyFlags struct {
	ConfigFile string
	Limit      int
	RunID      string
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored comparison runs",
	Long: `History reads reports from the store configured in the experiment file. By
default the latest runs are summarized; with --run the full table of one run
is printed. A memory store only lives for one process and cannot be listed.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyFlags.ConfigFile, "config", "c", "", "Path to the experiment YAML file")
	historyCmd.Flags().IntVarP(&historyFlags.Limit, "limit", "n", 10, "Number of runs to list")
	historyCmd.Flags().StringVar(&historyFlags.RunID, "run", "", "Print the report of this run")
	historyCmd.MarkFlagRequired("config")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(historyFlags.ConfigFile)
	if err != nil {
		return err
	}
	if cfg.Store.Type == config.StoreMemory {
		return ErrEphemeralStore
	}
	st, err := cfg.OpenStore(ctx)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrNoStore
	}
	defer st.Close()

	if historyFlags.RunID != "" {
		report, found, err := st.Get(ctx, historyFlags.RunID)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("run %s not found", historyFlags.RunID)
		}
		return report.TablePrint(cmd.OutOrStdout())
	}

	reports, err := st.Latest(ctx, historyFlags.Limit)
	if err != nil {
		return err
	}
	return printHistory(cmd.OutOrStdout(), reports)
}

func printHistory(w io.Writer, reports []*compare.Report) error {
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tbl, "Run\tCreated\tDataset\tForecasters\tBest\t%s\t\n", evaluate.MetricMeanWQuantileLoss)
	for _, r := range reports {
		best, score := "-", "-"
		if e, ok := r.Best(); ok {
			best = e.Forecaster
			score = fmt.Sprintf("%.4f", e.Score())
		}
		fmt.Fprintf(tbl, "%s\t%s\t%s\t%d\t%s\t%s\t\n",
			r.RunID, r.CreatedAt.Format(time.RFC3339), r.Dataset, len(r.Entries), best, score,
		)
	}
	return tbl.Flush()
}
