package runlog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run statuses.
const (
	StatusRunning  = "running"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

// Run is one pipeline execution as recorded in the history table.
type Run struct {
	ID          string     `json:"id"`
	Trigger     string     `json:"trigger"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Status      string     `json:"status"`
	Stage       string     `json:"stage,omitempty"`
	ErrorKind   string     `json:"error_kind,omitempty"`
	Message     string     `json:"message,omitempty"`
	CandidateR2 *float64   `json:"candidate_r2,omitempty"`
	DeployedR2  *float64   `json:"deployed_r2,omitempty"`
	Version     string     `json:"version,omitempty"`
}

var ErrNotFound = errors.New("runlog: run not found")

// Store keeps run history in SQLite.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	schema := `
	CREATE TABLE IF NOT EXISTS pipeline_runs (
		id           TEXT PRIMARY KEY,
		trigger_name TEXT NOT NULL,
		started_at   DATETIME NOT NULL,
		finished_at  DATETIME,
		status       TEXT NOT NULL,
		stage        TEXT DEFAULT '',
		error_kind   TEXT DEFAULT '',
		message      TEXT DEFAULT '',
		candidate_r2 REAL,
		deployed_r2  REAL,
		version      TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_pipeline_runs_started_at ON pipeline_runs(started_at);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Begin inserts a run in the running state.
func (s *Store) Begin(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_runs (id, trigger_name, started_at, status) VALUES (?, ?, ?, ?)`,
		r.ID, r.Trigger, r.StartedAt.UTC(), StatusRunning,
	)
	return err
}

// Complete stores the outcome of a run started with Begin.
func (s *Store) Complete(ctx context.Context, r Run) error {
	var finished any
	if r.FinishedAt != nil {
		finished = r.FinishedAt.UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET finished_at = ?, status = ?, stage = ?, error_kind = ?, message = ?,
		     candidate_r2 = ?, deployed_r2 = ?, version = ?
		 WHERE id = ?`,
		finished, r.Status, r.Stage, r.ErrorKind, r.Message,
		nullFloat(r.CandidateR2), nullFloat(r.DeployedR2), r.Version, r.ID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, trigger_name, started_at, finished_at, status, stage, error_kind, message,
		        candidate_r2, deployed_r2, version
		 FROM pipeline_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one run by id.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, trigger_name, started_at, finished_at, status, stage, error_kind, message,
		        candidate_r2, deployed_r2, version
		 FROM pipeline_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r        Run
		finished sql.NullTime
		cand     sql.NullFloat64
		dep      sql.NullFloat64
	)
	err := sc.Scan(&r.ID, &r.Trigger, &r.StartedAt, &finished, &r.Status, &r.Stage,
		&r.ErrorKind, &r.Message, &cand, &dep, &r.Version)
	if err != nil {
		return Run{}, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	if cand.Valid {
		v := cand.Float64
		r.CandidateR2 = &v
	}
	if dep.Valid {
		v := dep.Float64
		r.DeployedR2 = &v
	}
	return r, nil
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
