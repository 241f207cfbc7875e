package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/middleware"

	"github.com/go-chi/chi/v5"
)

const maxCreateBodyBytes = 1 << 20

type createJobRequest struct {
	ScopeKey string          `json:"scope_key"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
}

// JobResponse is the wire form of a job record. Unset timestamps and error
// message encode as null.
type JobResponse struct {
	ID           int64           `json:"id"`
	ScopeKey     string          `json:"scope_key"`
	JobType      string          `json:"job_type"`
	Status       string          `json:"status"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"created_at"`
	StartedAt    *time.Time      `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
	ErrorMessage *string         `json:"error_message"`
}

// ToJobResponse renders j with UTC timestamps.
func ToJobResponse(j *domain.Job) JobResponse {
	payload := json.RawMessage(j.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}
	return JobResponse{
		ID:           j.ID,
		ScopeKey:     j.ScopeKey,
		JobType:      j.Type,
		Status:       string(j.Status),
		Payload:      payload,
		CreatedAt:    j.CreatedAt.UTC(),
		StartedAt:    utcPtr(j.StartedAt),
		CompletedAt:  utcPtr(j.CompletedAt),
		ErrorMessage: j.ErrorMessage,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBodyBytes)).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	job, err := a.Queue.Create(r.Context(), req.ScopeKey, req.JobType, req.Payload)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrValidation):
		a.error(w, http.StatusUnprocessableEntity, "validation_error", strings.TrimPrefix(err.Error(), domain.ErrValidation.Error()+": "))
		return
	default:
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create job")
		return
	}

	a.json(w, http.StatusOK, ToJobResponse(job))
}

func (a *App) GetJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusNotFound, "not_found", "Job not found")
		return
	}

	job, err := a.Queue.Get(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "Job not found")
		return
	default:
		a.Logger.Error().Err(err).
			Int64("job_id", id).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Msg("get job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	a.json(w, http.StatusOK, ToJobResponse(job))
}
