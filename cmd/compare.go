package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/minds-lab/minds-cli/internal/model"
	"github.com/minds-lab/minds-cli/internal/stats"
)

var (
	compareAlpha     float64
	compareIntersect bool
)

var compareCmd = &cobra.Command{
	Use:   "compare <run-id> [run-id...]",
	Short: "Compare runs with confidence intervals and paired tests",
	Long: "With one run, prints its pass rate and Wilson interval. With two, adds the pass-rate delta and McNemar's paired test. " +
		"With --intersect, prints the samples every listed run failed on. Mismatched sample sets are a hard error.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sets := make([]model.RunOutcomeSet, 0, len(args))
		for _, id := range args {
			set, err := st.GetOutcomes(ctx, id)
			if err != nil {
				return err
			}
			sets = append(sets, set)
		}

		if compareIntersect {
			ids := stats.IntersectFailSets(sets...)
			fmt.Fprintf(os.Stdout, "%d samples failed by all %d runs\n", len(ids), len(sets))
			for _, id := range ids {
				fmt.Fprintln(os.Stdout, id)
			}
			return nil
		}

		var result *stats.ComparisonResult
		switch len(sets) {
		case 1:
			result, err = stats.Summarize(sets[0], compareAlpha)
		case 2:
			result, err = stats.Compare(sets[0], sets[1], compareAlpha)
		default:
			return fmt.Errorf("compare takes 1 or 2 runs without --intersect, got %d", len(sets))
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

var failuresCmd = &cobra.Command{
	Use:   "failures <run-id>",
	Short: "Break a run's failures down by mode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		set, err := st.GetOutcomes(ctx, args[0])
		if err != nil {
			return err
		}

		breakdown := stats.FailureBreakdown(set)
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(breakdown)
	},
}

func init() {
	compareCmd.Flags().Float64Var(&compareAlpha, "alpha", 0.05, "significance level for intervals and tests")
	compareCmd.Flags().BoolVar(&compareIntersect, "intersect", false, "print samples failed by every listed run")
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(failuresCmd)
}
