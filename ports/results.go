package ports

import (
	"context"

	"allday/domain/core"
	"allday/domain/run"
)

// ResultRepository persists materialized results keyed by canonical cache key
type ResultRepository interface {
	// SaveResults upserts results; a later run overwrites an earlier one
	SaveResults(ctx context.Context, results []run.Result) error

	// GetResult returns core.ErrResultNotFound when the key was never stored
	GetResult(ctx context.Context, key string) (*run.Result, error)

	// ListKeys lists stored keys of one kind, all kinds when kind is empty
	ListKeys(ctx context.Context, kind string) ([]string, error)
}

// RunRepository records materialization runs
type RunRepository interface {
	StartRun(ctx context.Context, r *run.Run) error
	FinishRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	LatestRun(ctx context.Context) (*run.Run, error)
}
