// Package store persists runs, episodes, and outcomes behind a
// driver-neutral interface with SQLite and Postgres implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status    model.RunStatus `json:"status,omitempty"`
	Benchmark string          `json:"benchmark,omitempty"`
	Limit     int             `json:"limit,omitempty"`
	Offset    int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the evaluation harness.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, name, benchmark, solver string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	FinalizeRun(ctx context.Context, runID string, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Episodes (full audit trail per solved sample)
	SaveEpisode(ctx context.Context, ep *model.Episode) error
	ListEpisodes(ctx context.Context, runID string) ([]model.Episode, error)

	// Outcomes
	SaveOutcome(ctx context.Context, o model.SampleOutcome) error
	GetOutcomes(ctx context.Context, runID string) (model.RunOutcomeSet, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver      string
	DatabaseURL string
}

// New opens a store for the configured driver.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return NewSQLite(cfg.DatabaseURL)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
