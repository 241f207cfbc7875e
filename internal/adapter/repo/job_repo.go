package repo

import (
	"context"
	"fmt"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobStore on PostgreSQL.
type JobRepositoryPG struct {
	sql    infra.SQLExecutor
	logger infra.Logger
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(sql infra.SQLExecutor, logger infra.Logger) *JobRepositoryPG {
	return &JobRepositoryPG{sql: sql, logger: logger}
}

// Insert creates a queued job.
func (r *JobRepositoryPG) Insert(ctx context.Context, scopeKey, jobType string, payload []byte) (*domain.Job, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QInsertJob, scopeKey, jobType, string(payload))
	job, err := scanJob(row)
	if err != nil {
		return nil, fmt.Errorf("%w: insert job: %w", domain.ErrStorage, err)
	}
	return job, nil
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, id int64) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QSelectJob, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get job %d: %w", domain.ErrStorage, id, err)
	}
	return job, nil
}

// ClaimNextQueued runs the single-statement claim. No row means an empty queue.
func (r *JobRepositoryPG) ClaimNextQueued(ctx context.Context) (*domain.Job, error) {
	job, err := scanJob(r.sql.QueryRow(ctx, sqlinline.QWorkerClaimJob))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: claim job: %w", domain.ErrStorage, err)
	}
	return job, nil
}

// MarkCompleted moves a running job to completed.
func (r *JobRepositoryPG) MarkCompleted(ctx context.Context, id int64) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobCompleted, id)
	if err != nil {
		return fmt.Errorf("%w: mark job %d completed: %w", domain.ErrStorage, id, err)
	}
	if tag.RowsAffected() == 0 {
		logSkippedTransition(r.logger, id, domain.JobStatusCompleted)
	}
	return nil
}

// MarkFailed moves a running job to failed with the given message.
func (r *JobRepositoryPG) MarkFailed(ctx context.Context, id int64, message string) error {
	tag, err := r.sql.Exec(ctx, sqlinline.QMarkJobFailed, id, message)
	if err != nil {
		return fmt.Errorf("%w: mark job %d failed: %w", domain.ErrStorage, id, err)
	}
	if tag.RowsAffected() == 0 {
		logSkippedTransition(r.logger, id, domain.JobStatusFailed)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.Job, error) {
	var (
		job         domain.Job
		status      string
		payload     []byte
		startedAt   *time.Time
		completedAt *time.Time
		errMsg      *string
	)
	if err := row.Scan(
		&job.ID,
		&job.ScopeKey,
		&job.Type,
		&status,
		&payload,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&errMsg,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	// Ensure payload bytes are not aliased.
	job.Payload = append([]byte(nil), payload...)
	job.StartedAt = startedAt
	job.CompletedAt = completedAt
	job.ErrorMessage = errMsg
	return &job, nil
}

func logSkippedTransition(logger infra.Logger, id int64, to domain.JobStatus) {
	logger.Warn().
		Int64("job_id", id).
		Str("to_status", string(to)).
		Msg("repo: job missing or not running, transition skipped")
}

var _ domain.JobStore = (*JobRepositoryPG)(nil)
