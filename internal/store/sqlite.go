package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/minds-lab/minds-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	benchmark  TEXT NOT NULL,
	solver     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	summary    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS episodes (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	sample_id  TEXT NOT NULL,
	answer     TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outcomes (
	run_id       TEXT NOT NULL REFERENCES runs(id),
	sample_id    TEXT NOT NULL,
	passed       INTEGER NOT NULL,
	failure_mode TEXT NOT NULL,
	seq          INTEGER PRIMARY KEY AUTOINCREMENT
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_benchmark ON runs(benchmark);
CREATE INDEX IF NOT EXISTS idx_episodes_run_id ON episodes(run_id);
CREATE INDEX IF NOT EXISTS idx_outcomes_run_id ON outcomes(run_id);
CREATE UNIQUE INDEX IF NOT EXISTS idx_outcomes_run_sample ON outcomes(run_id, sample_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, name, benchmark, solver string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, benchmark, solver, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, name, benchmark, solver, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update run status %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FinalizeRun(ctx context.Context, runID string, summary *model.RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET summary = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(summaryJSON), string(model.RunStatusComplete), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finalize run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, benchmark, solver, status, summary, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, name, benchmark, solver, status, summary, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Benchmark != "" {
		query += ` AND benchmark = ?`
		args = append(args, filter.Benchmark)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveEpisode(ctx context.Context, ep *model.Episode) error {
	if ep.ID == "" {
		ep.ID = uuid.New().String()
	}
	if ep.CreatedAt.IsZero() {
		ep.CreatedAt = time.Now().UTC()
	}

	answerJSON, err := json.Marshal(ep.Answer)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal answer")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO episodes (id, run_id, sample_id, answer, created_at) VALUES (?, ?, ?, ?, ?)`,
		ep.ID, ep.RunID, ep.SampleID, string(answerJSON), ep.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert episode for run %s", ep.RunID)
}

func (s *SQLiteStore) ListEpisodes(ctx context.Context, runID string) ([]model.Episode, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, sample_id, answer, created_at FROM episodes WHERE run_id = ? ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list episodes")
	}
	defer rows.Close()

	var eps []model.Episode
	for rows.Next() {
		var ep model.Episode
		var answerJSON string
		if err := rows.Scan(&ep.ID, &ep.RunID, &ep.SampleID, &answerJSON, &ep.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan episode")
		}
		if err := json.Unmarshal([]byte(answerJSON), &ep.Answer); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal answer")
		}
		eps = append(eps, ep)
	}
	return eps, eris.Wrap(rows.Err(), "sqlite: list episodes iterate")
}

func (s *SQLiteStore) SaveOutcome(ctx context.Context, o model.SampleOutcome) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, sample_id, passed, failure_mode) VALUES (?, ?, ?, ?)`,
		o.RunID, o.SampleID, boolToInt(o.Passed), string(o.FailureMode),
	)
	return eris.Wrapf(err, "sqlite: insert outcome %s/%s", o.RunID, o.SampleID)
}

func (s *SQLiteStore) GetOutcomes(ctx context.Context, runID string) (model.RunOutcomeSet, error) {
	set := model.RunOutcomeSet{RunID: runID}

	rows, err := s.db.QueryContext(ctx,
		`SELECT sample_id, passed, failure_mode FROM outcomes WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return set, eris.Wrap(err, "sqlite: get outcomes")
	}
	defer rows.Close()

	for rows.Next() {
		o := model.SampleOutcome{RunID: runID}
		var passed int
		var mode string
		if err := rows.Scan(&o.SampleID, &passed, &mode); err != nil {
			return set, eris.Wrap(err, "sqlite: scan outcome")
		}
		o.Passed = passed != 0
		o.FailureMode = model.FailureMode(mode)
		set.Outcomes = append(set.Outcomes, o)
	}
	return set, eris.Wrap(rows.Err(), "sqlite: get outcomes iterate")
}

// helpers

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var summaryJSON sql.NullString

	err := row.Scan(&r.ID, &r.Name, &r.Benchmark, &r.Solver, &r.Status, &summaryJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if summaryJSON.Valid {
		r.Summary = &model.RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), r.Summary); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal summary")
		}
	}
	return &r, nil
}
