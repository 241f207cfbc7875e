package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"orchestrator/internal/domain"
)

// runStoreConformance exercises the domain.JobStore contract against a fresh store.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) domain.JobStore) {
	t.Run("insert is queued with no timestamps", func(t *testing.T) {
		store := newStore(t)
		job, err := store.Insert(context.Background(), "york_county_sc", "ingest", []byte(`{"force":true}`))
		if err != nil {
			t.Fatalf("Insert error: %v", err)
		}
		if job.ID == 0 || job.Status != domain.JobStatusQueued {
			t.Fatalf("unexpected job: %+v", job)
		}
		if job.StartedAt != nil || job.CompletedAt != nil || job.ErrorMessage != nil {
			t.Fatalf("queued job must not carry timestamps or error: %+v", job)
		}
		if string(job.Payload) != `{"force":true}` {
			t.Fatalf("payload mismatch: %s", job.Payload)
		}
	})

	t.Run("get missing is not found", func(t *testing.T) {
		store := newStore(t)
		if _, err := store.GetByID(context.Background(), 4242); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("claim on empty queue returns nil", func(t *testing.T) {
		store := newStore(t)
		job, err := store.ClaimNextQueued(context.Background())
		if err != nil || job != nil {
			t.Fatalf("expected (nil, nil), got (%+v, %v)", job, err)
		}
	})

	t.Run("claim is fifo by id", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		a := mustInsert(t, store, "scope-a", "ingest")
		b := mustInsert(t, store, "scope-b", "reindex")

		first, err := store.ClaimNextQueued(ctx)
		if err != nil {
			t.Fatalf("claim error: %v", err)
		}
		if first == nil || first.ID != a.ID {
			t.Fatalf("expected job %d first, got %+v", a.ID, first)
		}
		if first.Status != domain.JobStatusRunning || first.StartedAt == nil {
			t.Fatalf("claimed job must be running with started_at: %+v", first)
		}
		second, err := store.ClaimNextQueued(ctx)
		if err != nil || second == nil || second.ID != b.ID {
			t.Fatalf("expected job %d second, got (%+v, %v)", b.ID, second, err)
		}
		third, err := store.ClaimNextQueued(ctx)
		if err != nil || third != nil {
			t.Fatalf("expected empty queue, got (%+v, %v)", third, err)
		}
	})

	t.Run("concurrent claims are exclusive", func(t *testing.T) {
		store := newStore(t)
		only := mustInsert(t, store, "scope", "ingest")

		const callers = 16
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			winners []int64
			errs    []error
		)
		start := make(chan struct{})
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				job, err := store.ClaimNextQueued(context.Background())
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if job != nil {
					winners = append(winners, job.ID)
				}
			}()
		}
		close(start)
		wg.Wait()

		if len(errs) > 0 {
			t.Fatalf("claim errors: %v", errs)
		}
		if len(winners) != 1 || winners[0] != only.ID {
			t.Fatalf("expected exactly one winner for job %d, got %v", only.ID, winners)
		}
	})

	t.Run("mark completed is applied once", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		job := mustInsert(t, store, "scope", "ingest")
		if _, err := store.ClaimNextQueued(ctx); err != nil {
			t.Fatalf("claim error: %v", err)
		}
		if err := store.MarkCompleted(ctx, job.ID); err != nil {
			t.Fatalf("MarkCompleted error: %v", err)
		}
		first := mustGet(t, store, job.ID)
		if first.Status != domain.JobStatusCompleted || first.CompletedAt == nil {
			t.Fatalf("expected completed job: %+v", first)
		}
		if err := store.MarkCompleted(ctx, job.ID); err != nil {
			t.Fatalf("second MarkCompleted error: %v", err)
		}
		if err := store.MarkFailed(ctx, job.ID, "late failure"); err != nil {
			t.Fatalf("MarkFailed on terminal job error: %v", err)
		}
		again := mustGet(t, store, job.ID)
		if again.Status != domain.JobStatusCompleted {
			t.Fatalf("terminal status changed: %s", again.Status)
		}
		if !again.CompletedAt.Equal(*first.CompletedAt) {
			t.Fatalf("completed_at changed: %s -> %s", first.CompletedAt, again.CompletedAt)
		}
		if again.ErrorMessage != nil {
			t.Fatalf("completed job must not carry an error: %q", *again.ErrorMessage)
		}
	})

	t.Run("mark failed records message", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		job := mustInsert(t, store, "scope", "evaluate")
		if _, err := store.ClaimNextQueued(ctx); err != nil {
			t.Fatalf("claim error: %v", err)
		}
		if err := store.MarkFailed(ctx, job.ID, "boom"); err != nil {
			t.Fatalf("MarkFailed error: %v", err)
		}
		got := mustGet(t, store, job.ID)
		if got.Status != domain.JobStatusFailed || got.CompletedAt == nil || got.StartedAt == nil {
			t.Fatalf("unexpected failed job: %+v", got)
		}
		if got.ErrorMessage == nil || *got.ErrorMessage != "boom" {
			t.Fatalf("error message mismatch: %v", got.ErrorMessage)
		}
	})

	t.Run("terminal marks never skip running", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		job := mustInsert(t, store, "scope", "ingest")
		if err := store.MarkCompleted(ctx, job.ID); err != nil {
			t.Fatalf("MarkCompleted error: %v", err)
		}
		if err := store.MarkFailed(ctx, 99999, "missing"); err != nil {
			t.Fatalf("MarkFailed on missing id should be best-effort, got %v", err)
		}
		got := mustGet(t, store, job.ID)
		if got.Status != domain.JobStatusQueued || got.CompletedAt != nil {
			t.Fatalf("queued job must stay queued: %+v", got)
		}
	})
}

func mustInsert(t *testing.T, store domain.JobStore, scope, jobType string) *domain.Job {
	t.Helper()
	job, err := store.Insert(context.Background(), scope, jobType, []byte(`{}`))
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	return job
}

func mustGet(t *testing.T, store domain.JobStore, id int64) *domain.Job {
	t.Helper()
	job, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%d) error: %v", id, err)
	}
	return job
}
