package model

// FailureMode classifies why a sample did not pass.
type FailureMode string

const (
	FailureNone        FailureMode = "none"
	FailureWrongAnswer FailureMode = "wrong_answer"
	FailureTimeout     FailureMode = "timeout"
	FailureCrash       FailureMode = "crash"
	FailureCostLimit   FailureMode = "cost_limit_exceeded"
	FailureNoConsensus FailureMode = "no_consensus"
)

// Valid reports whether m is a known failure mode.
func (m FailureMode) Valid() bool {
	switch m {
	case FailureNone, FailureWrongAnswer, FailureTimeout, FailureCrash,
		FailureCostLimit, FailureNoConsensus:
		return true
	}
	return false
}

// SampleOutcome is one scored row of a run.
type SampleOutcome struct {
	SampleID    string      `json:"sample_id"`
	Passed      bool        `json:"passed"`
	FailureMode FailureMode `json:"failure_mode"`
	RunID       string      `json:"run_id"`
}

// RunOutcomeSet is the ordered outcome list for one run. Append-only while
// the run executes, frozen once it completes.
type RunOutcomeSet struct {
	RunID    string          `json:"run_id"`
	Outcomes []SampleOutcome `json:"outcomes"`
}

// Passed counts passing samples.
func (s RunOutcomeSet) Passed() int {
	n := 0
	for _, o := range s.Outcomes {
		if o.Passed {
			n++
		}
	}
	return n
}

// Total is the number of samples in the set.
func (s RunOutcomeSet) Total() int {
	return len(s.Outcomes)
}

// PassRate is Passed/Total, or 0 for an empty set.
func (s RunOutcomeSet) PassRate() float64 {
	if len(s.Outcomes) == 0 {
		return 0
	}
	return float64(s.Passed()) / float64(len(s.Outcomes))
}

// PassedByID returns sampleID -> passed for paired comparisons.
func (s RunOutcomeSet) PassedByID() map[string]bool {
	m := make(map[string]bool, len(s.Outcomes))
	for _, o := range s.Outcomes {
		m[o.SampleID] = o.Passed
	}
	return m
}

// FailedIDs returns the sample IDs this run failed on.
func (s RunOutcomeSet) FailedIDs() []string {
	var ids []string
	for _, o := range s.Outcomes {
		if !o.Passed {
			ids = append(ids, o.SampleID)
		}
	}
	return ids
}
