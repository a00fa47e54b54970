// Package history persists synthesis runs and their attempts in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Run is one persisted orchestrator run.
type Run struct {
	RunID        string
	Target       string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while the run is in progress
	Success      bool
	Attempts     int
	LastFeedback string
	OutputPath   string
}

// Attempt is one validated candidate within a run.
type Attempt struct {
	RunID      string
	Attempt    int
	Verdict    string
	Message    string
	Feedback   string
	CodeLength int
	CreatedAt  time.Time
}

// Store provides run history operations.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (or creates) the history database at path.
func NewStore(ctx context.Context, path string) (*Store, error) {
	// WAL lets `parsegen history` read while a batch is writing.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// Concurrent runs share this store; one connection serialises writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id        TEXT PRIMARY KEY,
		target        TEXT NOT NULL,
		started_at    INTEGER NOT NULL,
		finished_at   INTEGER,
		success       INTEGER NOT NULL DEFAULT 0,
		attempts      INTEGER NOT NULL DEFAULT 0,
		last_feedback TEXT,
		output_path   TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id      TEXT NOT NULL,
		attempt     INTEGER NOT NULL,
		verdict     TEXT NOT NULL,
		message     TEXT,
		feedback    TEXT,
		code_length INTEGER NOT NULL,
		created_at  INTEGER NOT NULL,
		FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(target, started_at);
	CREATE INDEX IF NOT EXISTS idx_attempts_run ON attempts(run_id, attempt);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// StartRun records the beginning of a run.
func (s *Store) StartRun(ctx context.Context, runID, target, outputPath string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, target, started_at, output_path) VALUES (?, ?, ?, ?)`,
		runID, target, s.now().UnixMilli(), outputPath)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", runID, err)
	}
	return nil
}

// RecordAttempt appends one attempt to a run.
func (s *Store) RecordAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts (run_id, attempt, verdict, message, feedback, code_length, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Attempt, a.Verdict, a.Message, a.Feedback, a.CodeLength, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert attempt %d of run %s: %w", a.Attempt, a.RunID, err)
	}
	return nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, success bool, attempts int, lastFeedback string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, success = ?, attempts = ?, last_feedback = ? WHERE run_id = ?`,
		s.now().UnixMilli(), boolToInt(success), attempts, lastFeedback, runID)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first. An empty target lists
// every target; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, target string, limit int) ([]Run, error) {
	query := `SELECT run_id, target, started_at, finished_at, success, attempts, last_feedback, output_path
		FROM runs WHERE (? = '' OR target = ?) ORDER BY started_at DESC, rowid DESC`
	args := []any{target, target}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			startedAt  int64
			finishedAt sql.NullInt64
			success    int
			feedback   sql.NullString
		)
		if err := rows.Scan(&r.RunID, &r.Target, &startedAt, &finishedAt, &success, &r.Attempts, &feedback, &r.OutputPath); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		if finishedAt.Valid {
			r.FinishedAt = time.UnixMilli(finishedAt.Int64)
		}
		r.Success = success != 0
		r.LastFeedback = feedback.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Attempts returns the attempts of a run in order.
func (s *Store) Attempts(ctx context.Context, runID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, attempt, verdict, message, feedback, code_length, created_at
		 FROM attempts WHERE run_id = ? ORDER BY attempt, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                 Attempt
			message, feedback sql.NullString
			createdAt         int64
		)
		if err := rows.Scan(&a.RunID, &a.Attempt, &a.Verdict, &message, &feedback, &a.CodeLength, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Message = message.String
		a.Feedback = feedback.String
		a.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
