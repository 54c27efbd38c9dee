/*
PURPOSE:
  Defines the 'dataset' subcommand.
  Helps debug corpus download, parsing, and sampling before a long sweep.

REQUIREMENTS:
  User-specified:
  - Show what the run would actually replay: record counts per category,
    before or after sampling.

  Implementation-discovered:
  - Useful validation step before tying up a machine for hours.

ARCHITECTURE INTEGRATION:
  - Calls: internal/dataset.Load()/Sample()

ERROR HANDLING:
  - Prints error if download/parse fails.

IMPLEMENTATION RULES:
  - Simple output to stdout.

USAGE:
  mtbench-runner dataset --sampled

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/dataset/loader.go
  - internal/dataset/sampler.go

MAINTENANCE:
  - None.
*/

package cli

import (
	"fmt"
	"sort"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/dataset"
	"github.com/lcarvalho/mtbench-runner/internal/model"
)

var showSampled bool

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Inspect the benchmark corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		records, err := dataset.Load(cfg)
		if err != nil {
			return err
		}

		if showSampled {
			records = dataset.Sample(records, cfg.Sampling)
		}

		replayable := lo.CountBy(records, func(r model.Record) bool {
			return len(r.UserTurns()) >= 2
		})

		counts := lo.CountValuesBy(records, func(r model.Record) string {
			return r.CategoryOrDefault()
		})
		categories := lo.Keys(counts)
		sort.Strings(categories)

		for _, cat := range categories {
			fmt.Printf("%-24s %d\n", cat, counts[cat])
		}
		fmt.Printf("\ntotal: %d records (%d replayable with >=2 turns)\n", len(records), replayable)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(datasetCmd)
	datasetCmd.Flags().BoolVar(&showSampled, "sampled", false, "Apply the configured sampling before counting")
}
