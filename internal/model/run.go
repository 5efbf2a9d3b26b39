package model

import "time"

// RunStatus tracks the lifecycle of an evaluation run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunSummary is the aggregate result recorded when a run is frozen.
type RunSummary struct {
	Samples      int     `json:"samples"`
	PassedCount  int     `json:"passed"`
	PassRate     float64 `json:"pass_rate"`
	TotalCostUSD float64 `json:"total_cost_usd"`
	WallTimeSecs float64 `json:"wall_time_secs"`
}

// Run is one evaluation run: a solver configuration applied to a benchmark.
type Run struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Benchmark string      `json:"benchmark"`
	Solver    string      `json:"solver"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Episode is the full audit record for one solved task: the synthesized
// answer plus every model response issued while producing it.
type Episode struct {
	ID        string            `json:"id"`
	RunID     string            `json:"run_id"`
	SampleID  string            `json:"sample_id"`
	Answer    SynthesizedAnswer `json:"answer"`
	CreatedAt time.Time         `json:"created_at"`
}
