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

// ResultRepositoryImpl implements ResultRepository for PostgreSQL
type ResultRepositoryImpl struct {
	db *sqlx.DB
}

// NewResultRepository creates a new PostgreSQL result repository
func NewResultRepository(db *sqlx.DB) ports.ResultRepository {
	return &ResultRepositoryImpl{db: db}
}

type resultRow struct {
	Key        string         `db:"cache_key"`
	Hash       string         `db:"key_hash"`
	Kind       string         `db:"kind"`
	RunID      sql.NullString `db:"run_id"`
	Payload    []byte         `db:"payload"`
	ComputedAt sql.NullTime   `db:"computed_at"`
}

func (r resultRow) toResult() *run.Result {
	res := &run.Result{
		Key:        r.Key,
		Hash:       core.Hash(r.Hash),
		Kind:       r.Kind,
		Payload:    r.Payload,
		ComputedAt: r.ComputedAt.Time,
	}
	if r.RunID.Valid {
		id := core.RunID(r.RunID.String)
		res.RunID = &id
	}
	return res
}

const upsertResult = `
	INSERT INTO results (cache_key, key_hash, kind, run_id, payload, computed_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (cache_key) DO UPDATE
	SET key_hash = EXCLUDED.key_hash, kind = EXCLUDED.kind, run_id = EXCLUDED.run_id,
		payload = EXCLUDED.payload, computed_at = EXCLUDED.computed_at`

// SaveResults upserts every result in one transaction
func (r *ResultRepositoryImpl) SaveResults(ctx context.Context, results []run.Result) error {
	if len(results) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin result transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, upsertResult)
	if err != nil {
		return errors.DatabaseError("failed to prepare result upsert", err)
	}
	defer stmt.Close()

	for _, res := range results {
		var runID interface{}
		if res.RunID != nil {
			runID = res.RunID.String()
		}
		if _, err := stmt.ExecContext(ctx, res.Key, res.Hash.String(), res.Kind, runID, []byte(res.Payload), res.ComputedAt); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to store result %s", res.Key), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit results", err)
	}
	return nil
}

// GetResult retrieves one result by canonical key
func (r *ResultRepositoryImpl) GetResult(ctx context.Context, key string) (*run.Result, error) {
	var row resultRow
	err := r.db.GetContext(ctx, &row, `
		SELECT cache_key, key_hash, kind, run_id, payload, computed_at
		FROM results
		WHERE cache_key = $1
	`, key)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", core.ErrResultNotFound, key)
		}
		return nil, errors.DatabaseError("failed to get result", err)
	}
	return row.toResult(), nil
}

// ListKeys lists stored keys in key order
func (r *ResultRepositoryImpl) ListKeys(ctx context.Context, kind string) ([]string, error) {
	var keys []string
	var err error
	if kind == "" {
		err = r.db.SelectContext(ctx, &keys, `SELECT cache_key FROM results ORDER BY cache_key`)
	} else {
		err = r.db.SelectContext(ctx, &keys, `SELECT cache_key FROM results WHERE kind = $1 ORDER BY cache_key`, kind)
	}
	if err != nil {
		return nil, errors.DatabaseError("failed to list result keys", err)
	}
	return keys, nil
}
