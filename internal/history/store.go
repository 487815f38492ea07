// Package history keeps a SQLite log of every automation run.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"ignite/internal/logger"
)

// Triggers
const (
	TriggerPower  = "power"
	TriggerManual = "manual"
)

// DefaultLimit bounds List when no limit is given
const DefaultLimit = 50

// Run is one automation operation and how it ended
type Run struct {
	ID         string    `json:"id"`
	Operation  string    `json:"operation"`
	Trigger    string    `json:"trigger"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration is how long the run took
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const schemaSQL = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;

CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    operation TEXT NOT NULL,
    trigger_source TEXT NOT NULL,
    outcome TEXT NOT NULL,
    detail TEXT DEFAULT '',
    started_at INTEGER NOT NULL,
    finished_at INTEGER DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_operation ON runs(operation, started_at DESC);
`

// Store persists runs
type Store struct {
	db     *sql.DB
	dbPath string

	stmtInsert *sql.Stmt

	closeOnce sync.Once
}

// DefaultPath returns <user config dir>/Ignite/history.db
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "Ignite", "history.db")
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db, dbPath: path}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}

	s.stmtInsert, err = db.Prepare(`
		INSERT INTO runs (id, operation, trigger_source, outcome, detail, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare insert run: %w", err)
	}

	logger.Debug("history").Str("path", path).Msg("History store opened")
	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Record inserts a run. An empty ID is assigned a new UUID.
func (s *Store) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	var finished int64
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UnixMilli()
	}

	_, err := s.stmtInsert.ExecContext(ctx,
		run.ID, run.Operation, run.Trigger, run.Outcome, run.Detail,
		run.StartedAt.UnixMilli(), finished,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// List returns the most recent runs, newest first. operation filters when non-empty.
func (s *Store) List(ctx context.Context, operation string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, operation, trigger_source, outcome, detail, started_at, finished_at FROM runs`
	args := []interface{}{}
	if operation != "" {
		query += ` WHERE operation = ?`
		args = append(args, operation)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var detail sql.NullString
		var started, finished int64
		if err := rows.Scan(&r.ID, &r.Operation, &r.Trigger, &r.Outcome, &detail, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Detail = detail.String
		r.StartedAt = time.UnixMilli(started)
		if finished > 0 {
			r.FinishedAt = time.UnixMilli(finished)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Count returns the number of stored runs
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

// Prune deletes runs that started before cutoff and returns how many were removed
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the database. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.stmtInsert != nil {
			s.stmtInsert.Close()
		}
		err = s.db.Close()
	})
	return err
}
