package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"orchestrator/internal/infra"
)

// Baseline job types.
const (
	TypeIngest   = "ingest"
	TypeReindex  = "reindex"
	TypeEvaluate = "evaluate"
)

// IngestPayload lists documents to pull into a scope's corpus.
type IngestPayload struct {
	SourceURLs []string `json:"source_urls"`
	Force      bool     `json:"force"`
}

// ReindexPayload requests a rebuild of a scope's search index.
type ReindexPayload struct {
	Full bool `json:"full"`
}

// EvaluatePayload selects documents to score. Zero Limit means no limit.
type EvaluatePayload struct {
	DocumentIDs []int64 `json:"document_ids"`
	Limit       int     `json:"limit"`
}

// DefaultRegistry returns a registry with the ingest, reindex and evaluate handlers.
func DefaultRegistry(logger infra.Logger) (*Registry, error) {
	r := NewRegistry()
	err := errors.Join(
		RegisterTyped(r, TypeIngest, ingest(logger)),
		RegisterTyped(r, TypeReindex, reindex(logger)),
		RegisterTyped(r, TypeEvaluate, evaluate(logger)),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func ingest(logger infra.Logger) func(context.Context, string, IngestPayload) error {
	return func(ctx context.Context, scopeKey string, p IngestPayload) error {
		for _, raw := range p.SourceURLs {
			u, err := url.Parse(raw)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return fmt.Errorf("ingest: invalid source url %q", raw)
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Info().
			Str("scope_key", scopeKey).
			Int("sources", len(p.SourceURLs)).
			Bool("force", p.Force).
			Msg("ingest: sources accepted")
		return nil
	}
}

func reindex(logger infra.Logger) func(context.Context, string, ReindexPayload) error {
	return func(ctx context.Context, scopeKey string, p ReindexPayload) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		mode := "incremental"
		if p.Full {
			mode = "full"
		}
		logger.Info().Str("scope_key", scopeKey).Str("mode", mode).Msg("reindex: index rebuilt")
		return nil
	}
}

func evaluate(logger infra.Logger) func(context.Context, string, EvaluatePayload) error {
	return func(ctx context.Context, scopeKey string, p EvaluatePayload) error {
		if p.Limit < 0 {
			return fmt.Errorf("evaluate: limit must not be negative, got %d", p.Limit)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		docs := len(p.DocumentIDs)
		if p.Limit > 0 && docs > p.Limit {
			docs = p.Limit
		}
		logger.Info().Str("scope_key", scopeKey).Int("documents", docs).Msg("evaluate: documents scored")
		return nil
	}
}
