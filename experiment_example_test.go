package forecasteval

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aouyang1/go-forecast-eval/dataset"
	"github.com/aouyang1/go-forecast-eval/producer"
)

func Example_compareBaselines() {
	ds, err := dataset.Synthetic(dataset.NewDefaultSyntheticOptions())
	if err != nil {
		panic(err)
	}

	exp, err := New(nil)
	if err != nil {
		panic(err)
	}
	res, err := exp.Run(context.Background(), ds, []Forecaster{
		{Producer: producer.NewSeasonalNaive("", 0)},
		{Producer: producer.NewGaussianBaseline("", 0, 1)},
	})
	if err != nil {
		panic(err)
	}

	if err := res.TablePrint(os.Stderr); err != nil {
		panic(err)
	}

	file, err := os.Create(filepath.Join(os.TempDir(), "forecasteval_comparison.html"))
	if err != nil {
		panic(err)
	}
	defer file.Close()
	if err := res.PlotComparison(file, nil); err != nil {
		panic(err)
	}

	names := make([]string, 0, len(res.Report.Entries))
	for _, e := range res.Report.Entries {
		names = append(names, e.Forecaster)
	}
	sort.Strings(names)
	fmt.Println(names)
	// Output: [gaussian_baseline seasonal_naive]
}
