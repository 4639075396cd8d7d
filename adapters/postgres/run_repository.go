package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	"allday/domain/core"
	"allday/domain/run"
	"allday/internal/errors"
	"allday/ports"

	"github.com/jmoiron/sqlx"
)

// RunRepositoryImpl implements RunRepository for PostgreSQL
type RunRepositoryImpl struct {
	db *sqlx.DB
}

// NewRunRepository creates a new PostgreSQL run repository
func NewRunRepository(db *sqlx.DB) ports.RunRepository {
	return &RunRepositoryImpl{db: db}
}

const selectRun = `
	SELECT id, started_at, finished_at, status, result_count, error, fingerprint, seed
	FROM materialization_runs`

// StartRun inserts a running run
func (r *RunRepositoryImpl) StartRun(ctx context.Context, rn *run.Run) error {
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO materialization_runs (id, started_at, status, result_count, error, fingerprint, seed)
		VALUES (:id, :started_at, :status, :result_count, :error, :fingerprint, :seed)
	`, rn)
	if err != nil {
		return errors.DatabaseError("failed to insert run", err)
	}
	return nil
}

// FinishRun records the outcome of a run
func (r *RunRepositoryImpl) FinishRun(ctx context.Context, rn *run.Run) error {
	res, err := r.db.NamedExecContext(ctx, `
		UPDATE materialization_runs
		SET finished_at = :finished_at, status = :status, result_count = :result_count, error = :error
		WHERE id = :id
	`, rn)
	if err != nil {
		return errors.DatabaseError("failed to update run", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: run %s", core.ErrNotFound, rn.ID)
	}
	return nil
}

// GetRun retrieves a run by id
func (r *RunRepositoryImpl) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var rn run.Run
	err := r.db.GetContext(ctx, &rn, selectRun+` WHERE id = $1`, id.String())
	return r.found(&rn, err, id.String())
}

// LatestRun returns the most recently started run
func (r *RunRepositoryImpl) LatestRun(ctx context.Context) (*run.Run, error) {
	var rn run.Run
	err := r.db.GetContext(ctx, &rn, selectRun+` ORDER BY started_at DESC LIMIT 1`)
	return r.found(&rn, err, "latest")
}

func (r *RunRepositoryImpl) found(rn *run.Run, err error, what string) (*run.Run, error) {
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: run %s", core.ErrNotFound, what)
		}
		return nil, errors.DatabaseError("failed to get run", err)
	}
	return rn, nil
}
