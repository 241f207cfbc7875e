package domain

import "context"

// JobStore persists job records. Only ClaimNextQueued, MarkCompleted and
// MarkFailed ever write the status column.
type JobStore interface {
	Insert(ctx context.Context, scopeKey, jobType string, payload []byte) (*Job, error)
	GetByID(ctx context.Context, id int64) (*Job, error)
	// ClaimNextQueued moves the oldest queued job to running and returns it.
	// It returns (nil, nil) when nothing is queued.
	ClaimNextQueued(ctx context.Context) (*Job, error)
	// MarkCompleted and MarkFailed only affect running jobs; a missing or
	// non-running id is logged by the implementation, not returned.
	MarkCompleted(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, message string) error
}
