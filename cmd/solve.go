package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/minds-lab/minds-cli/internal/model"
)

var (
	solveID       string
	solveContext  string
	solveExpected string
)

var solveCmd = &cobra.Command{
	Use:   "solve <prompt>",
	Short: "Solve one task with the full model panel",
	Long:  "Runs a single prompt through generate, critique, revise, and the confidence-gated challenge pass, then prints the synthesized answer as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		solver, err := buildSolver()
		if err != nil {
			return err
		}

		id := solveID
		if id == "" {
			id = uuid.New().String()
		}
		task := model.Task{
			ID:       id,
			Prompt:   args[0],
			Context:  solveContext,
			Expected: solveExpected,
		}

		answer, err := solver.Solve(cmd.Context(), task)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	},
}

func init() {
	solveCmd.Flags().StringVar(&solveID, "id", "", "task ID (default: random)")
	solveCmd.Flags().StringVar(&solveContext, "context", "", "extra context appended to the prompt")
	solveCmd.Flags().StringVar(&solveExpected, "expected", "", "expected answer, recorded but not scored")
	rootCmd.AddCommand(solveCmd)
}
