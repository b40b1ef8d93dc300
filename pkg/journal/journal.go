package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Entry one journaled run.
type Entry struct {
	RunID      string
	Pipeline   string
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
	Counts     json.RawMessage
	Errors     []string
}

// Journal is a local SQLite copy of run reports. It stays writable when the primary
// database is the thing that failed.
type Journal struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens or creates the journal at path. Use ":memory:" in tests.
func Open(path string) (*Journal, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize journal: %w", err)
	}
	return j, nil
}

func (j *Journal) initialize() error {
	schema := `
	PRAGMA journal_mode = WAL;
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS runs (
		run_id      TEXT PRIMARY KEY,
		pipeline    TEXT NOT NULL,
		status      TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		counts      TEXT NOT NULL,
		errors      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline, started_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append stores e. Re-appending a run id replaces the earlier row.
func (j *Journal) Append(ctx context.Context, e *Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	errs := e.Errors
	if errs == nil {
		errs = []string{}
	}
	errorsJSON, err := json.Marshal(errs)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	counts := e.Counts
	if len(counts) == 0 {
		counts = json.RawMessage("{}")
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (run_id, pipeline, status, started_at, finished_at, counts, errors)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Pipeline, e.Status, e.StartedAt.UnixMilli(), e.FinishedAt.UnixMilli(), string(counts), string(errorsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty pipeline matches all.
func (j *Journal) Recent(ctx context.Context, pipeline string, limit int) ([]Entry, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}
	query := `SELECT run_id, pipeline, status, started_at, finished_at, counts, errors FROM runs`
	args := []any{}
	if pipeline != "" {
		query += ` WHERE pipeline = ?`
		args = append(args, pipeline)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			started, finished  int64
			counts, errorsJSON string
		)
		if err := rows.Scan(&e.RunID, &e.Pipeline, &e.Status, &started, &finished, &counts, &errorsJSON); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.UnixMilli(started).UTC()
		e.FinishedAt = time.UnixMilli(finished).UTC()
		e.Counts = json.RawMessage(counts)
		if err := json.Unmarshal([]byte(errorsJSON), &e.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal errors: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}
