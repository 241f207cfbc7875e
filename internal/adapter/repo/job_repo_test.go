package repo

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/sqlinline"
)

type stubExecutor struct {
	row      jobRow
	rowErr   error
	execTag  string
	execErr  error
	queries  []string
	lastArgs []any
}

func (s *stubExecutor) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return pgconn.NewCommandTag(s.execTag), s.execErr
}

func (s *stubExecutor) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	s.queries = append(s.queries, query)
	s.lastArgs = args
	return stubRow{row: s.row, err: s.rowErr}
}

func (s *stubExecutor) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type jobRow struct {
	id          int64
	scopeKey    string
	jobType     string
	status      string
	payload     []byte
	createdAt   time.Time
	startedAt   *time.Time
	completedAt *time.Time
	errMsg      *string
}

type stubRow struct {
	row jobRow
	err error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != 9 {
		return fmt.Errorf("unexpected scan args: %d", len(dest))
	}
	*dest[0].(*int64) = r.row.id
	*dest[1].(*string) = r.row.scopeKey
	*dest[2].(*string) = r.row.jobType
	*dest[3].(*string) = r.row.status
	*dest[4].(*[]byte) = r.row.payload
	*dest[5].(*time.Time) = r.row.createdAt
	*dest[6].(**time.Time) = r.row.startedAt
	*dest[7].(**time.Time) = r.row.completedAt
	*dest[8].(**string) = r.row.errMsg
	return nil
}

func TestJobRepositoryPGInsert(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	exec := &stubExecutor{row: jobRow{
		id: 1, scopeKey: "york_county_sc", jobType: "ingest", status: "queued",
		payload: []byte(`{}`), createdAt: created,
	}}
	repo := NewJobRepository(exec, infra.NopLogger())

	job, err := repo.Insert(context.Background(), "york_county_sc", "ingest", []byte(`{}`))
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if exec.queries[0] != sqlinline.QInsertJob {
		t.Fatalf("unexpected query: %s", exec.queries[0])
	}
	if len(exec.lastArgs) != 3 || exec.lastArgs[2] != `{}` {
		t.Fatalf("unexpected args: %#v", exec.lastArgs)
	}
	if job.ID != 1 || job.Status != domain.JobStatusQueued || !job.CreatedAt.Equal(created) {
		t.Fatalf("unexpected job: %+v", job)
	}
	if job.StartedAt != nil || job.CompletedAt != nil {
		t.Fatalf("queued job must not have timestamps: %+v", job)
	}
}

func TestJobRepositoryPGInsertStorageError(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{rowErr: errors.New("connection refused")}, infra.NopLogger())

	_, err := repo.Insert(context.Background(), "s", "ingest", []byte(`{}`))
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}

func TestJobRepositoryPGGetNotFound(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{rowErr: pgx.ErrNoRows}, infra.NopLogger())

	_, err := repo.GetByID(context.Background(), 9)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestJobRepositoryPGClaim(t *testing.T) {
	started := time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC)
	exec := &stubExecutor{row: jobRow{
		id: 3, scopeKey: "s", jobType: "reindex", status: "running",
		payload: []byte(`{"full":true}`), startedAt: &started,
	}}
	repo := NewJobRepository(exec, infra.NopLogger())

	job, err := repo.ClaimNextQueued(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextQueued error: %v", err)
	}
	if exec.queries[0] != sqlinline.QWorkerClaimJob {
		t.Fatalf("unexpected query: %s", exec.queries[0])
	}
	if job.Status != domain.JobStatusRunning || job.StartedAt == nil || !job.StartedAt.Equal(started) {
		t.Fatalf("unexpected claimed job: %+v", job)
	}
}

func TestJobRepositoryPGClaimEmptyQueue(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{rowErr: pgx.ErrNoRows}, infra.NopLogger())

	job, err := repo.ClaimNextQueued(context.Background())
	if err != nil || job != nil {
		t.Fatalf("expected (nil, nil), got (%+v, %v)", job, err)
	}
}

func TestJobRepositoryPGMarkFailed(t *testing.T) {
	exec := &stubExecutor{execTag: "UPDATE 1"}
	repo := NewJobRepository(exec, infra.NopLogger())

	if err := repo.MarkFailed(context.Background(), 5, "boom"); err != nil {
		t.Fatalf("MarkFailed error: %v", err)
	}
	if exec.queries[0] != sqlinline.QMarkJobFailed {
		t.Fatalf("unexpected query: %s", exec.queries[0])
	}
	if exec.lastArgs[0] != int64(5) || exec.lastArgs[1] != "boom" {
		t.Fatalf("unexpected args: %#v", exec.lastArgs)
	}
}

func TestJobRepositoryPGMarkCompletedMissingIsBestEffort(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{execTag: "UPDATE 0"}, infra.NopLogger())

	if err := repo.MarkCompleted(context.Background(), 404); err != nil {
		t.Fatalf("expected nil for missing job, got %v", err)
	}
}

func TestJobRepositoryPGMarkCompletedStorageError(t *testing.T) {
	repo := NewJobRepository(&stubExecutor{execErr: errors.New("broken pipe")}, infra.NopLogger())

	if err := repo.MarkCompleted(context.Background(), 1); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}
}
