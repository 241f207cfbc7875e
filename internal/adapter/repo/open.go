package repo

import (
	"context"
	"fmt"

	"orchestrator/internal/domain"
	"orchestrator/internal/infra"
)

// Open builds the job store selected by cfg.StoreDriver. The returned close
// function releases the underlying connections.
func Open(ctx context.Context, cfg *infra.Config, logger infra.Logger) (domain.JobStore, func(), error) {
	switch cfg.StoreDriver {
	case infra.StoreDriverPostgres:
		pool, err := infra.NewDBPool(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		runner := infra.NewSQLRunner(pool, logger)
		return NewJobRepository(runner, logger), pool.Close, nil
	case infra.StoreDriverSQLite:
		db, err := infra.OpenSQLite(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		store, err := NewSQLiteJobRepository(ctx, db, logger)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return store, func() { _ = db.Close() }, nil
	case infra.StoreDriverMemory:
		logger.Warn().Msg("repo: using in-memory job store, jobs are lost on exit and not shared between processes")
		return NewMemoryJobRepository(logger), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
