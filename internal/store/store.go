// Package store keeps a history of stitch jobs in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Get for an unknown job.
var ErrNotFound = errors.New("store: job not found")

// DefaultLimit is used by List when limit is not positive.
const DefaultLimit = 50

// Job is one recorded stitch.
type Job struct {
	ID        uuid.UUID     `json:"id"`
	Images    []string      `json:"images"`
	Mode      string        `json:"mode"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store is a job history backed by a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// An in-memory database exists per connection.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			images TEXT NOT NULL,
			mode TEXT NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			success INTEGER NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			duration_ns INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS jobs_created_at ON jobs (created_at);
	`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record saves job. A zero ID or CreatedAt is filled in, and the stored job
// is returned.
func (s *Store) Record(ctx context.Context, job Job) (Job, error) {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now()
	}
	job.CreatedAt = job.CreatedAt.UTC()
	if job.Images == nil {
		job.Images = []string{}
	}
	images, err := json.Marshal(job.Images)
	if err != nil {
		return Job{}, fmt.Errorf("store: encode images: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, images, mode, width, height, success, error, duration_ns, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID.String(), string(images), job.Mode, job.Width, job.Height,
		job.Success, job.Error, int64(job.Duration), job.CreatedAt.UnixNano())
	if err != nil {
		return Job{}, fmt.Errorf("store: insert job: %w", err)
	}
	return job, nil
}

// Get returns the job with the given ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	row := s.db.QueryRowContext(ctx, selectJobs+` WHERE id = ?`, id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, err
}

// List returns up to limit jobs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, selectJobs+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

const selectJobs = `SELECT id, images, mode, width, height, success, error, duration_ns, created_at FROM jobs`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (Job, error) {
	var (
		job      Job
		id       string
		images   string
		duration int64
		created  int64
	)
	err := row.Scan(&id, &images, &job.Mode, &job.Width, &job.Height, &job.Success, &job.Error, &duration, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Job{}, err
		}
		return Job{}, fmt.Errorf("store: scan job: %w", err)
	}
	if job.ID, err = uuid.Parse(id); err != nil {
		return Job{}, fmt.Errorf("store: job id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(images), &job.Images); err != nil {
		return Job{}, fmt.Errorf("store: decode images: %w", err)
	}
	job.Duration = time.Duration(duration)
	job.CreatedAt = time.Unix(0, created).UTC()
	return job, nil
}
