package repo

import (
	"context"
	"sync"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
)

// JobRepositoryMemory is an in-process domain.JobStore. A single mutex makes
// every operation, including the claim, atomic. Intended for development and tests.
type JobRepositoryMemory struct {
	mu     sync.Mutex
	jobs   map[int64]*domain.Job
	nextID int64
	now    func() time.Time
	logger infra.Logger
}

// MemoryOption configures a JobRepositoryMemory.
type MemoryOption func(*JobRepositoryMemory)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) MemoryOption {
	return func(r *JobRepositoryMemory) {
		r.now = now
	}
}

func NewMemoryJobRepository(logger infra.Logger, opts ...MemoryOption) *JobRepositoryMemory {
	r := &JobRepositoryMemory{
		jobs:   make(map[int64]*domain.Job),
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *JobRepositoryMemory) Insert(_ context.Context, scopeKey, jobType string, payload []byte) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	job := &domain.Job{
		ID:        r.nextID,
		ScopeKey:  scopeKey,
		Type:      jobType,
		Status:    domain.JobStatusQueued,
		Payload:   append([]byte(nil), payload...),
		CreatedAt: r.now(),
	}
	r.jobs[job.ID] = job
	return cloneJob(job), nil
}

func (r *JobRepositoryMemory) GetByID(_ context.Context, id int64) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *JobRepositoryMemory) ClaimNextQueued(_ context.Context) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var next *domain.Job
	for _, job := range r.jobs {
		if job.Status != domain.JobStatusQueued {
			continue
		}
		if next == nil || job.ID < next.ID {
			next = job
		}
	}
	if next == nil {
		return nil, nil
	}
	now := r.now()
	next.Status = domain.JobStatusRunning
	next.StartedAt = &now
	return cloneJob(next), nil
}

func (r *JobRepositoryMemory) MarkCompleted(_ context.Context, id int64) error {
	r.markTerminal(id, domain.JobStatusCompleted, nil)
	return nil
}

func (r *JobRepositoryMemory) MarkFailed(_ context.Context, id int64, message string) error {
	r.markTerminal(id, domain.JobStatusFailed, &message)
	return nil
}

func (r *JobRepositoryMemory) markTerminal(id int64, status domain.JobStatus, message *string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[id]
	if !ok || !job.Status.CanTransitionTo(status) {
		logSkippedTransition(r.logger, id, status)
		return
	}
	now := r.now()
	job.Status = status
	job.CompletedAt = &now
	job.ErrorMessage = message
}

func cloneJob(j *domain.Job) *domain.Job {
	out := *j
	out.Payload = append([]byte(nil), j.Payload...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		out.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		out.CompletedAt = &t
	}
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		out.ErrorMessage = &msg
	}
	return &out
}

var _ domain.JobStore = (*JobRepositoryMemory)(nil)
