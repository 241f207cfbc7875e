// Package queue is the entry point for creating and resolving jobs. The HTTP
// facade and the CLI use Create and Get; the worker loop uses Claim, Complete
// and Fail.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/notify"
	"orchestrator/internal/redact"
)

const (
	maxScopeKeyLen = 128
	maxJobTypeLen  = 64
)

// Service implements the queue API on top of a domain.JobStore.
type Service struct {
	store    domain.JobStore
	notifier notify.Notifier
	logger   infra.Logger
}

// NewService wires the store with an optional notifier (nil disables notifications).
func NewService(store domain.JobStore, notifier notify.Notifier, logger infra.Logger) *Service {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Service{store: store, notifier: notifier, logger: logger}
}

// Create validates the request and inserts a queued job. An unknown job type is
// not an error here; it fails when a worker dispatches it.
func (s *Service) Create(ctx context.Context, scopeKey, jobType string, payload json.RawMessage) (*domain.Job, error) {
	scopeKey, jobType, body, err := normalize(scopeKey, jobType, payload)
	if err != nil {
		return nil, err
	}
	job, err := s.store.Insert(ctx, scopeKey, jobType, body)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Int64("job_id", job.ID).
		Str("job_type", job.Type).
		Str("scope_key", job.ScopeKey).
		Msg("queue: job queued")
	if err := s.notifier.Notify(ctx, job.ID); err != nil {
		s.logger.Warn().Err(err).Int64("job_id", job.ID).Msg("queue: notify failed")
	}
	return job, nil
}

// Get returns the job or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, id int64) (*domain.Job, error) {
	return s.store.GetByID(ctx, id)
}

// Claim hands the oldest queued job to the caller, or nil when none is queued.
func (s *Service) Claim(ctx context.Context) (*domain.Job, error) {
	return s.store.ClaimNextQueued(ctx)
}

// Complete marks a claimed job completed.
func (s *Service) Complete(ctx context.Context, id int64) error {
	return s.store.MarkCompleted(ctx, id)
}

// Fail marks a claimed job failed. The message is redacted and bounded before
// it reaches the store.
func (s *Service) Fail(ctx context.Context, id int64, message string) error {
	return s.store.MarkFailed(ctx, id, redact.String(message))
}

func normalize(scopeKey, jobType string, payload json.RawMessage) (string, string, []byte, error) {
	scopeKey = norm.NFC.String(strings.TrimSpace(scopeKey))
	jobType = strings.TrimSpace(jobType)

	switch {
	case scopeKey == "":
		return "", "", nil, fmt.Errorf("%w: scope_key is required", domain.ErrValidation)
	case len(scopeKey) > maxScopeKeyLen:
		return "", "", nil, fmt.Errorf("%w: scope_key exceeds %d bytes", domain.ErrValidation, maxScopeKeyLen)
	case jobType == "":
		return "", "", nil, fmt.Errorf("%w: job_type is required", domain.ErrValidation)
	case len(jobType) > maxJobTypeLen:
		return "", "", nil, fmt.Errorf("%w: job_type exceeds %d bytes", domain.ErrValidation, maxJobTypeLen)
	}

	body := bytes.TrimSpace(payload)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return scopeKey, jobType, []byte(`{}`), nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", "", nil, fmt.Errorf("%w: payload must be a JSON object", domain.ErrValidation)
	}
	compact := new(bytes.Buffer)
	if err := json.Compact(compact, body); err != nil {
		return "", "", nil, fmt.Errorf("%w: payload must be a JSON object", domain.ErrValidation)
	}
	return scopeKey, jobType, compact.Bytes(), nil
}
