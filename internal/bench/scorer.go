package bench

import "github.com/minds-lab/minds-cli/internal/minds"

// scoreAnswer checks a final answer against the benchmark's expected answer
// using the same canonicalization that consensus grouping uses, so "4" and
// "4.0" both pass a task expecting "4".
func scoreAnswer(got, expected string) bool {
	return minds.Equivalent(got, expected)
}
