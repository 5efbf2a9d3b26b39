package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minds-lab/minds-cli/internal/bench"
)

var (
	benchRunName     string
	benchSolverName  string
	benchConcurrency int
)

var benchCmd = &cobra.Command{
	Use:   "bench <task-file>",
	Short: "Run a benchmark task file through the solver",
	Long:  "Loads a YAML or JSONL task file, solves every task with the configured model panel, scores answers against expected values, and records the run.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		tf, err := bench.LoadTasks(args[0])
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		solver, err := buildSolver()
		if err != nil {
			return err
		}

		name := benchRunName
		if name == "" {
			name = tf.Name
		}
		concurrency := benchConcurrency
		if concurrency == 0 {
			concurrency = cfg.Bench.Concurrency
		}
		solverName := benchSolverName
		if solverName == "" {
			solverName = fmt.Sprintf("minds-%d", len(cfg.Providers))
		}

		runner := bench.NewRunner(solver, st, bench.RunnerConfig{
			RunName:      name,
			SolverName:   solverName,
			Concurrency:  concurrency,
			LowAgreement: cfg.Solver.LowAgreement,
		})

		run, err := runner.Run(ctx, tf)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Run %s complete: %d/%d passed (%.1f%%), $%.4f, %.1fs\n",
			run.ID,
			run.Summary.PassedCount, run.Summary.Samples,
			run.Summary.PassRate*100,
			run.Summary.TotalCostUSD,
			run.Summary.WallTimeSecs,
		)
		return nil
	},
}

func init() {
	benchCmd.Flags().StringVar(&benchRunName, "name", "", "run name (default: benchmark name)")
	benchCmd.Flags().StringVar(&benchSolverName, "solver-name", "", "solver label recorded on the run")
	benchCmd.Flags().IntVar(&benchConcurrency, "concurrency", 0, "tasks solved in parallel (default: config)")
	rootCmd.AddCommand(benchCmd)
}
