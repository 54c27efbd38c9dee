/*
PURPOSE:
  Defines the 'run' subcommand.
  Executes the full benchmark sweep.

REQUIREMENTS:
  User-specified:
  - Run the benchmark across all configured models.
  - Specific flags for per-run overrides.
  - Optional post-run shutdown (from config, abortable).

  Implementation-discovered:
  - Need to load config first, apply flag overrides, then validate: a
    missing required field must abort before any work starts.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run(), internal/shutdown.MaybeShutdown()
  - Uses: internal/config

ERROR HANDLING:
  - Returns error if config load/validation fails or the sweep aborts.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> engine.Run -> shutdown.

USAGE:
  mtbench-runner run --models phi4-mini --output-csv out.csv

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/lcarvalho/mtbench-runner/internal/config"
	"github.com/lcarvalho/mtbench-runner/internal/engine"
	"github.com/lcarvalho/mtbench-runner/internal/shutdown"
)

var (
	outputCSVOverride string
	modelsOverride    []string
	threadsOverride   int
	noSampling        bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the benchmark sweep",
	Long: `Executes the full MT-Bench-101 benchmark sweep.
For each configured model, a llama-server process is started and health-polled,
every sampled conversation record is replayed over two turns (the second turn
carries the first turn's answer as context), and per-turn latency metrics
(TTFT, TPOT, tokens/sec) are appended to the CSV report as the run progresses.

Records are drawn category-balanced and reproducibly when sampling is enabled;
identical config and seed select the identical question set.`,
	Example: `  # Run with defaults (uses mtbench_runner.yaml)
  mtbench-runner run

  # Run only specific configured models
  mtbench-runner run --models phi4-mini,qwen2.5-3b

  # Full corpus, no sampling, custom report path
  mtbench-runner run --no-sampling --output-csv full_sweep.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. Load Config
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		// 2. Overrides
		if outputCSVOverride != "" {
			cfg.OutputCSV = outputCSVOverride
		}
		if threadsOverride > 0 {
			cfg.Threads = threadsOverride
		}
		if noSampling {
			cfg.Sampling.Enabled = false
		}
		if len(modelsOverride) > 0 {
			selected := lo.Filter(cfg.Models, func(m config.ModelConfig, _ int) bool {
				return lo.Contains(modelsOverride, m.Name)
			})
			if len(selected) == 0 {
				return fmt.Errorf("none of the requested models %v are configured", modelsOverride)
			}
			cfg.Models = selected
		}

		// 3. Validate before touching anything
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// 4. Execution
		if err := engine.Run(context.Background(), cfg); err != nil {
			return err
		}

		// 5. Optional unattended power-off
		shutdown.MaybeShutdown(cfg)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&outputCSVOverride, "output-csv", "o", "", "Report CSV path (overrides config)")
	runCmd.Flags().StringSliceVar(&modelsOverride, "models", nil, "Comma-separated subset of configured model names to run")
	runCmd.Flags().IntVarP(&threadsOverride, "threads", "t", 0, "Server thread count (overrides config)")
	runCmd.Flags().BoolVar(&noSampling, "no-sampling", false, "Replay the full corpus even if sampling is enabled in config")
}
