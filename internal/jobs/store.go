// Package jobs persists the asynchronous job registry in SQLite and runs
// each accepted job's pipeline in the background.
package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"clipforge/internal/types"
)

// ErrNotFound is returned when a job id has no record.
var ErrNotFound = errors.New("job not found")

const schemaSQL = `
CREATE TABLE IF NOT EXISTS jobs (
    id          TEXT PRIMARY KEY,
    status      TEXT NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    source_path TEXT NOT NULL DEFAULT '',
    run_dir     TEXT NOT NULL DEFAULT '',
    clips_json  TEXT NOT NULL DEFAULT '[]',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL
);
`

const (
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Store is the job registry, backed by a SQLite database so job state
// survives process restarts.
type Store struct {
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Open initializes or connects to the job database.
func Open(dbPath string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open job db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, path: dbPath, log: log}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create registers a new queued job for the given source path and persists
// it immediately. Ids are UUIDs; rapid concurrent creation cannot collide.
func (s *Store) Create(ctx context.Context, sourcePath string) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.NewString(),
		Status:     StatusQueued,
		SourcePath: sourcePath,
		Clips:      []types.Candidate{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := s.withBusyRetry(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx,
			`INSERT INTO jobs (id, status, error, source_path, run_dir, clips_json, created_at, updated_at)
             VALUES (?, ?, '', ?, '', '[]', ?, ?)`,
			job.ID, job.Status, job.SourcePath,
			now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		)
		return execErr
	})
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

// Get returns the job for the id, or ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, error, source_path, run_dir, clips_json, created_at, updated_at
         FROM jobs WHERE id = ?`, id)
	return s.scanJob(row)
}

// List returns all jobs, newest first.
func (s *Store) List(ctx context.Context) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, error, source_path, run_dir, clips_json, created_at, updated_at
         FROM jobs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var out []*Job
	for rows.Next() {
		job, err := s.scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

// Update applies mutate to the current record inside a transaction and
// persists the result. Updates to the same id are last-writer-wins; a
// concurrent reader never observes a torn record.
func (s *Store) Update(ctx context.Context, id string, mutate func(*Job)) (*Job, error) {
	var updated *Job
	err := s.withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			`SELECT id, status, error, source_path, run_dir, clips_json, created_at, updated_at
             FROM jobs WHERE id = ?`, id)
		job, err := s.scanJob(row)
		if err != nil {
			return err
		}

		mutate(job)
		job.UpdatedAt = time.Now().UTC()

		clipsJSON, err := json.Marshal(job.Clips)
		if err != nil {
			return fmt.Errorf("marshal clips: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error = ?, source_path = ?, run_dir = ?, clips_json = ?, updated_at = ?
             WHERE id = ?`,
			job.Status, job.Error, job.SourcePath, job.RunDir, string(clipsJSON),
			job.UpdatedAt.Format(time.RFC3339Nano), job.ID,
		); err != nil {
			return fmt.Errorf("update job: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		updated = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the job record. Deleting an unknown id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withBusyRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
		return err
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanJob(row rowScanner) (*Job, error) {
	var (
		job                  Job
		clipsJSON            string
		createdAt, updatedAt string
	)
	err := row.Scan(&job.ID, &job.Status, &job.Error, &job.SourcePath, &job.RunDir,
		&clipsJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan job: %w", err)
	}

	if err := json.Unmarshal([]byte(clipsJSON), &job.Clips); err != nil {
		// Damaged persistence must not take the registry down.
		s.log.Warn("corrupt clips payload on job, treating as empty", "job", job.ID, "error", err)
		job.Clips = []types.Candidate{}
	}
	if job.Clips == nil {
		job.Clips = []types.Candidate{}
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		job.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		job.UpdatedAt = t
	}
	return &job, nil
}

func (s *Store) withBusyRetry(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil || !isBusy(lastErr) || attempt == busyRetryAttempts-1 {
			return lastErr
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
