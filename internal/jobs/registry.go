// Package jobs maps job types to the handlers that execute them.
package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Handler executes one job. Returning an error marks the job failed; the
// payload must be treated as read-only.
type Handler interface {
	Execute(ctx context.Context, scopeKey string, payload []byte) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, scopeKey string, payload []byte) error

// Execute calls f.
func (f HandlerFunc) Execute(ctx context.Context, scopeKey string, payload []byte) error {
	return f(ctx, scopeKey, payload)
}

// Registry maps job types to handlers. It is populated at startup and only
// read afterwards, so lookups need no locking.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler for jobType. Empty and duplicate types are rejected.
func (r *Registry) Register(jobType string, h Handler) error {
	if jobType == "" {
		return errors.New("job type is required")
	}
	if h == nil {
		return fmt.Errorf("handler for %q is nil", jobType)
	}
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("handler for %q already registered", jobType)
	}
	r.handlers[jobType] = h
	return nil
}

// RegisterTyped registers fn under jobType, decoding the JSON payload into T
// before each call. A package-level function because methods cannot be generic.
func RegisterTyped[T any](r *Registry, jobType string, fn func(ctx context.Context, scopeKey string, payload T) error) error {
	return r.Register(jobType, HandlerFunc(func(ctx context.Context, scopeKey string, raw []byte) error {
		var payload T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &payload); err != nil {
				return fmt.Errorf("decode %s payload: %w", jobType, err)
			}
		}
		return fn(ctx, scopeKey, payload)
	}))
}

// Lookup returns the handler for jobType.
func (r *Registry) Lookup(jobType string) (Handler, bool) {
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types in sorted order.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
