package stats

import (
	"sort"

	"github.com/minds-lab/minds-cli/internal/model"
)

// ComparisonResult aggregates everything a comparison invocation produces.
// It is a pure function of its input sets; inputs are never mutated.
type ComparisonResult struct {
	RunA           string   `json:"run_a"`
	RunB           string   `json:"run_b,omitempty"`
	PointEstimateA float64  `json:"point_estimate_a"`
	IntervalA      Interval `json:"interval_a"`
	PointEstimateB float64  `json:"point_estimate_b,omitempty"`
	IntervalB      Interval `json:"interval_b,omitempty"`
	Delta          float64  `json:"delta,omitempty"`
	PValue         float64  `json:"p_value,omitempty"`
	TestUsed       TestKind `json:"test_used,omitempty"`
	Discordant     [2]int   `json:"discordant,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Summarize computes one run's pass rate and Wilson interval.
func Summarize(set model.RunOutcomeSet, alpha float64) (*ComparisonResult, error) {
	interval, warnings, err := Wilson(set.Passed(), set.Total(), alpha)
	if err != nil {
		return nil, err
	}
	return &ComparisonResult{
		RunA:           set.RunID,
		PointEstimateA: set.PassRate(),
		IntervalA:      interval,
		Warnings:       warnings,
	}, nil
}

// Compare runs the full paired comparison of two runs: per-run Wilson
// intervals, the pass-rate delta, and McNemar's test on the shared sample
// set. A structural error (mismatched samples) aborts the comparison.
func Compare(a, b model.RunOutcomeSet, alpha float64) (*ComparisonResult, error) {
	intervalA, warnA, err := Wilson(a.Passed(), a.Total(), alpha)
	if err != nil {
		return nil, err
	}
	intervalB, warnB, err := Wilson(b.Passed(), b.Total(), alpha)
	if err != nil {
		return nil, err
	}

	mn, err := McNemar(a, b)
	if err != nil {
		return nil, err
	}

	res := &ComparisonResult{
		RunA:           a.RunID,
		RunB:           b.RunID,
		PointEstimateA: a.PassRate(),
		IntervalA:      intervalA,
		PointEstimateB: b.PassRate(),
		IntervalB:      intervalB,
		Delta:          b.PassRate() - a.PassRate(),
		PValue:         mn.PValue,
		TestUsed:       mn.TestUsed,
		Discordant:     [2]int{mn.APassBFail, mn.AFailBPass},
	}
	res.Warnings = append(res.Warnings, warnA...)
	res.Warnings = append(res.Warnings, warnB...)
	res.Warnings = append(res.Warnings, mn.Warnings...)

	return res, nil
}

// FailSet returns the sorted sample IDs a run failed on.
func FailSet(set model.RunOutcomeSet) []string {
	ids := set.FailedIDs()
	sort.Strings(ids)
	return ids
}

// IntersectFailSets returns the sample IDs every given run failed on,
// sorted. Useful for focusing iteration on the hard cases shared across
// solver configurations.
func IntersectFailSets(sets ...model.RunOutcomeSet) []string {
	if len(sets) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, s := range sets {
		for _, id := range s.FailedIDs() {
			counts[id]++
		}
	}

	var shared []string
	for id, n := range counts {
		if n == len(sets) {
			shared = append(shared, id)
		}
	}
	sort.Strings(shared)
	return shared
}

// FailureBreakdown tallies a run's outcomes by failure mode.
func FailureBreakdown(set model.RunOutcomeSet) map[model.FailureMode]int {
	counts := make(map[model.FailureMode]int)
	for _, o := range set.Outcomes {
		if !o.Passed {
			counts[o.FailureMode]++
		}
	}
	return counts
}
