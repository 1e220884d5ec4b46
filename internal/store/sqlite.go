package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/finfluencer-cli/internal/model"
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
CREATE TABLE IF NOT EXISTS batch_jobs (
	id             TEXT PRIMARY KEY,
	provider       TEXT NOT NULL,
	status         TEXT NOT NULL DEFAULT 'created',
	remote_id      TEXT NOT NULL DEFAULT '',
	input_file     TEXT NOT NULL DEFAULT '',
	input_file_id  TEXT NOT NULL DEFAULT '',
	output_file    TEXT NOT NULL DEFAULT '',
	task_count     INTEGER NOT NULL DEFAULT 0,
	response_count INTEGER NOT NULL DEFAULT 0,
	error          TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_batch_jobs_status ON batch_jobs(status);
CREATE INDEX IF NOT EXISTS idx_batch_jobs_remote_id ON batch_jobs(remote_id);
`

const jobColumns = `id, provider, status, remote_id, input_file, input_file_id, output_file, task_count, response_count, error, created_at, updated_at`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateJob inserts job in the created state, assigning an id when empty.
func (s *SQLiteStore) CreateJob(ctx context.Context, job *model.BatchJob) error {
	prepareNewJob(job)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.Provider, string(job.Status), job.RemoteID, job.InputFile, job.InputFileID,
		job.OutputFile, job.TaskCount, job.ResponseCount, job.Error, job.CreatedAt, job.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert job %s", job.ID)
}

// UpdateJob overwrites the mutable fields of job after checking that the
// status change is allowed.
func (s *SQLiteStore) UpdateJob(ctx context.Context, job *model.BatchJob) error {
	current, err := s.GetJob(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := checkTransition(job.ID, current.Status, job.Status); err != nil {
		return err
	}
	job.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE batch_jobs SET status = ?, remote_id = ?, input_file_id = ?, output_file = ?,
		 response_count = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(job.Status), job.RemoteID, job.InputFileID, job.OutputFile,
		job.ResponseCount, job.Error, job.UpdatedAt, job.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update job %s", job.ID)
	}
	return checkRowsAffected(res, job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.BatchJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM batch_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrJobNotFound, "id %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context, filter JobFilter) ([]model.BatchJob, error) {
	query := `SELECT ` + jobColumns + ` FROM batch_jobs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Provider != "" {
		query += ` AND provider = ?`
		args = append(args, filter.Provider)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close() //nolint:errcheck

	var jobs []model.BatchJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func prepareNewJob(job *model.BatchJob) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	job.Status = model.JobStatusCreated
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrJobNotFound, "id %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.BatchJob, error) {
	var (
		j      model.BatchJob
		status string
	)
	err := row.Scan(&j.ID, &j.Provider, &status, &j.RemoteID, &j.InputFile, &j.InputFileID,
		&j.OutputFile, &j.TaskCount, &j.ResponseCount, &j.Error, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Status = model.JobStatus(status)
	return &j, nil
}
