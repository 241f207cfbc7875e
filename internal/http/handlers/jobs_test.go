package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"orchestrator/internal/adapter/repo"
	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
	"orchestrator/internal/queue"

	"github.com/go-chi/chi/v5"
)

func newTestApp() *App {
	store := repo.NewMemoryJobRepository(infra.NopLogger())
	return NewApp(queue.NewService(store, nil, infra.NopLogger()), infra.NopLogger(), "job-orchestrator")
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", app.Health)
	r.Post("/jobs", app.CreateJob)
	r.Get("/jobs/{id}", app.GetJob)
	return r
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func TestCreateJobReturnsQueuedRecord(t *testing.T) {
	h := testRouter(newTestApp())

	req := httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"scope_key":"york_county_sc","job_type":"ingest","payload":{"source":"minutes"}}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["status"] != "queued" || body["scope_key"] != "york_county_sc" || body["job_type"] != "ingest" {
		t.Fatalf("unexpected body %v", body)
	}
	for _, key := range []string{"started_at", "completed_at", "error_message"} {
		v, ok := body[key]
		if !ok || v != nil {
			t.Fatalf("%s = %#v, want explicit null", key, v)
		}
	}
	if id, ok := body["id"].(float64); !ok || id < 1 {
		t.Fatalf("id = %#v", body["id"])
	}
	payload, _ := body["payload"].(map[string]any)
	if payload["source"] != "minutes" {
		t.Fatalf("payload = %#v", body["payload"])
	}
}

func TestCreateJobErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantKind string
	}{
		{name: "malformed json", body: `{"scope_key":`, wantCode: http.StatusBadRequest, wantKind: "bad_request"},
		{name: "missing scope", body: `{"job_type":"ingest"}`, wantCode: http.StatusUnprocessableEntity, wantKind: "validation_error"},
		{name: "blank job type", body: `{"scope_key":"s","job_type":"   "}`, wantCode: http.StatusUnprocessableEntity, wantKind: "validation_error"},
		{name: "payload not object", body: `{"scope_key":"s","job_type":"ingest","payload":[1,2]}`, wantCode: http.StatusUnprocessableEntity, wantKind: "validation_error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := testRouter(newTestApp())
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(tc.body)))

			if rr.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tc.wantCode, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body["kind"] != tc.wantKind {
				t.Fatalf("kind = %#v, want %q", body["kind"], tc.wantKind)
			}
			if tc.wantKind == "validation_error" && body["detail"] == "" {
				t.Fatalf("missing detail: %v", body)
			}
		})
	}
}

func TestCreateJobStorageFailureIsInternal(t *testing.T) {
	app := NewApp(failingQueue{}, infra.NopLogger(), "job-orchestrator")
	rr := httptest.NewRecorder()
	testRouter(app).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"scope_key":"s","job_type":"ingest"}`)))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["kind"] != "internal" {
		t.Fatalf("kind = %#v", body["kind"])
	}
	if strings.Contains(rr.Body.String(), "secret-host") {
		t.Fatalf("internal error leaked: %s", rr.Body.String())
	}
}

func TestGetJobNotFound(t *testing.T) {
	h := testRouter(newTestApp())

	for _, path := range []string{"/jobs/999999", "/jobs/abc", "/jobs/0"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("%s: status = %d", path, rr.Code)
		}
		body := decodeBody(t, rr)
		if body["detail"] != "Job not found" || body["kind"] != "not_found" {
			t.Fatalf("%s: body = %v", path, body)
		}
	}
}

func TestGetJobRoundTrip(t *testing.T) {
	h := testRouter(newTestApp())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs", strings.NewReader(`{"scope_key":"s","job_type":"reindex"}`)))
	created := decodeBody(t, rr)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeBody(t, rr)
	if got["id"] != created["id"] || got["status"] != "queued" {
		t.Fatalf("got %v, created %v", got, created)
	}
	if payload, ok := got["payload"].(map[string]any); !ok || len(payload) != 0 {
		t.Fatalf("payload = %#v, want {}", got["payload"])
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp()
	app.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	rr := httptest.NewRecorder()
	testRouter(app).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["status"] != "ok" || body["service"] != "job-orchestrator" || body["timestamp"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("body = %v", body)
	}
}

type failingQueue struct{}

func (failingQueue) Create(context.Context, string, string, json.RawMessage) (*domain.Job, error) {
	return nil, errors.Join(domain.ErrStorage, errors.New("dial tcp secret-host:5432"))
}

func (failingQueue) Get(context.Context, int64) (*domain.Job, error) {
	return nil, domain.ErrStorage
}
