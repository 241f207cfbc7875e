package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
)

// JobQueue is the part of the queue API the HTTP facade needs.
type JobQueue interface {
	Create(ctx context.Context, scopeKey, jobType string, payload json.RawMessage) (*domain.Job, error)
	Get(ctx context.Context, id int64) (*domain.Job, error)
}

type App struct {
	Queue       JobQueue
	Logger      infra.Logger
	ServiceName string

	now func() time.Time
}

func NewApp(queue JobQueue, logger infra.Logger, serviceName string) *App {
	return &App{Queue: queue, Logger: logger, ServiceName: serviceName, now: time.Now}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, detail string) {
	a.json(w, code, map[string]string{"kind": kind, "detail": detail})
}

func (a *App) clock() time.Time {
	if a.now == nil {
		return time.Now()
	}
	return a.now()
}
