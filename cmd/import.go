package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minds-lab/minds-cli/internal/bench"
)

var (
	importRunName   string
	importBenchmark string
	importSolver    string
)

var importCmd = &cobra.Command{
	Use:   "import <jsonl-file>",
	Short: "Import outcomes from an external eval log",
	Long:  "Loads a JSONL log of {sample_id, passed, failure_mode} rows produced by another harness and records it as a finished run, so it can be compared against native runs.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		run, err := bench.ImportOutcomes(ctx, st, args[0], importRunName, importBenchmark, importSolver)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Imported run %s: %d samples, %.1f%% passed\n",
			run.ID, run.Summary.Samples, run.Summary.PassRate*100)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importRunName, "name", "imported", "run name")
	importCmd.Flags().StringVar(&importBenchmark, "benchmark", "external", "benchmark label")
	importCmd.Flags().StringVar(&importSolver, "solver-name", "external", "solver label")
	rootCmd.AddCommand(importCmd)
}
