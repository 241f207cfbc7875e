package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// JobRepositorySQLite implements domain.JobStore on SQLite. SQLite serialises
// writers, so the conditional update in the claim is atomic across processes
// sharing the database file.
type JobRepositorySQLite struct {
	db     *sql.DB
	logger infra.Logger
	now    func() time.Time
}

// NewSQLiteJobRepository creates the schema if needed and returns the repository.
func NewSQLiteJobRepository(ctx context.Context, db *sql.DB, logger infra.Logger) (*JobRepositorySQLite, error) {
	if _, err := db.ExecContext(ctx, sqlinline.QSQLiteCreateJobsSchema); err != nil {
		return nil, fmt.Errorf("%w: create sqlite schema: %w", domain.ErrStorage, err)
	}
	return &JobRepositorySQLite{db: db, logger: logger, now: time.Now}, nil
}

// Insert creates a queued job stamped with the current time.
func (r *JobRepositorySQLite) Insert(ctx context.Context, scopeKey, jobType string, payload []byte) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, sqlinline.QSQLiteInsertJob, scopeKey, jobType, string(payload), r.now().UnixNano())
	job, err := scanSQLiteJob(row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert job: %w", domain.ErrStorage, err)
	}
	return job, nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositorySQLite) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := scanSQLiteJob(r.db.QueryRowContext(ctx, sqlinline.QSQLiteSelectJob, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get job %d: %w", domain.ErrStorage, id, err)
	}
	return job, nil
}

// ClaimNextQueued flips the oldest queued job to running. No row means an empty queue.
func (r *JobRepositorySQLite) ClaimNextQueued(ctx context.Context) (*domain.Job, error) {
	job, err := scanSQLiteJob(r.db.QueryRowContext(ctx, sqlinline.QSQLiteClaimJob, r.now().UnixNano()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: claim job: %w", domain.ErrStorage, err)
	}
	return job, nil
}

// MarkCompleted moves a running job to completed.
func (r *JobRepositorySQLite) MarkCompleted(ctx context.Context, id int64) error {
	return r.markTerminal(ctx, id, domain.JobStatusCompleted, nil)
}

// MarkFailed moves a running job to failed with the given message.
func (r *JobRepositorySQLite) MarkFailed(ctx context.Context, id int64, message string) error {
	return r.markTerminal(ctx, id, domain.JobStatusFailed, &message)
}

func (r *JobRepositorySQLite) markTerminal(ctx context.Context, id int64, status domain.JobStatus, message *string) error {
	res, err := r.db.ExecContext(ctx, sqlinline.QSQLiteMarkJobTerminal, string(status), r.now().UnixNano(), message, id)
	if err != nil {
		return fmt.Errorf("%w: mark job %d %s: %w", domain.ErrStorage, id, status, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		logSkippedTransition(r.logger, id, status)
	}
	return nil
}

func scanSQLiteJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		status      string
		payload     string
		createdAt   int64
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
		errMsg      sql.NullString
	)
	if err := row.Scan(&job.ID, &job.ScopeKey, &job.Type, &status, &payload, &createdAt, &startedAt, &completedAt, &errMsg); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	job.Payload = []byte(payload)
	job.CreatedAt = time.Unix(0, createdAt).UTC()
	job.StartedAt = nanosToTime(startedAt)
	job.CompletedAt = nanosToTime(completedAt)
	if errMsg.Valid {
		msg := errMsg.String
		job.ErrorMessage = &msg
	}
	return &job, nil
}

func nanosToTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

var _ domain.JobStore = (*JobRepositorySQLite)(nil)
