package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/minds-lab/minds-cli/internal/model"
)

// pgPool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it for unit tests.
type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool pgPool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	benchmark  TEXT NOT NULL,
	solver     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS episodes (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	sample_id  TEXT NOT NULL,
	answer     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outcomes (
	seq          BIGSERIAL PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES runs(id),
	sample_id    TEXT NOT NULL,
	passed       BOOLEAN NOT NULL,
	failure_mode TEXT NOT NULL,
	UNIQUE (run_id, sample_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_benchmark ON runs(benchmark);
CREATE INDEX IF NOT EXISTS idx_episodes_run_id ON episodes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, name, benchmark, solver string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, name, benchmark, solver, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, name, benchmark, solver, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Name:      name,
		Benchmark: benchmark,
		Solver:    solver,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run status %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FinalizeRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summary")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET summary = $1, status = $2, updated_at = $3 WHERE id = $4`,
		summaryJSON, string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finalize run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, benchmark, solver, status, summary, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)

	r, err := scanPGRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, name, benchmark, solver, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any
	n := 0

	next := func() string {
		n++
		return "$" + strconv.Itoa(n)
	}

	if filter.Status != "" {
		query += ` AND status = ` + next()
		args = append(args, string(filter.Status))
	}
	if filter.Benchmark != "" {
		query += ` AND benchmark = ` + next()
		args = append(args, filter.Benchmark)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + next()
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ` + next()
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPGRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveEpisode(ctx context.Context, ep *model.Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}

	answerJSON, err := json.Marshal(ep.Answer)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal answer")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO episodes (id, run_id, sample_id, answer, created_at) VALUES ($1, $2, $3, $4, $5)`,
		ep.ID, ep.RunID, ep.SampleID, answerJSON, ep.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert episode for run %s", ep.RunID)
}

func (s *PostgresStore) ListEpisodes(ctx context.Context, runID string) ([]model.Episode, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, run_id, sample_id, answer, created_at FROM episodes WHERE run_id = $1 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list episodes")
	}
	defer rows.Close()

	var eps []model.Episode
	for rows.Next() {
		var ep model.Episode
		var answerJSON []byte
		if err := rows.Scan(&ep.ID, &ep.RunID, &ep.SampleID, &answerJSON, &ep.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan episode")
		}
		if err := json.Unmarshal(answerJSON, &ep.Answer); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal answer")
		}
		eps = append(eps, ep)
	}
	return eps, eris.Wrap(rows.Err(), "postgres: list episodes iterate")
}

func (s *PostgresStore) SaveOutcome(ctx context.Context, o model.SampleOutcome) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO outcomes (run_id, sample_id, passed, failure_mode) VALUES ($1, $2, $3, $4)`,
		o.RunID, o.SampleID, o.Passed, string(o.FailureMode),
	)
	return eris.Wrapf(err, "postgres: insert outcome %s/%s", o.RunID, o.SampleID)
}

func (s *PostgresStore) GetOutcomes(ctx context.Context, runID string) (model.RunOutcomeSet, error) {
	set := model.RunOutcomeSet{RunID: runID}

	rows, err := s.pool.Query(ctx,
		`SELECT sample_id, passed, failure_mode FROM outcomes WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return set, eris.Wrap(err, "postgres: get outcomes")
	}
	defer rows.Close()

	for rows.Next() {
		o := model.SampleOutcome{RunID: runID}
		var mode string
		if err := rows.Scan(&o.SampleID, &o.Passed, &mode); err != nil {
			return set, eris.Wrap(err, "postgres: scan outcome")
		}
		o.FailureMode = model.FailureMode(mode)
		set.Outcomes = append(set.Outcomes, o)
	}
	return set, eris.Wrap(rows.Err(), "postgres: get outcomes iterate")
}

// helpers

func scanPGRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	var summaryJSON []byte

	err := row.Scan(&r.ID, &r.Name, &r.Benchmark, &r.Solver, &status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)

	if len(summaryJSON) > 0 {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal(summaryJSON, r.Summary); err != nil {
			return nil, eris.Wrap(err, "unmarshal summary")
		}
	}
	return &r, nil
}
