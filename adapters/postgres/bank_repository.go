package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal/errors"
	"allday/internal/packsim"
	"allday/ports"

	"github.com/jmoiron/sqlx"
)

// BankRepositoryImpl implements BankRepository for PostgreSQL
type BankRepositoryImpl struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewBankRepository creates a new PostgreSQL bank repository
func NewBankRepository(db *sqlx.DB) ports.BankRepository {
	return &BankRepositoryImpl{db: db, now: time.Now}
}

// SaveBank writes the bank header and every bundle in one transaction
func (r *BankRepositoryImpl) SaveBank(ctx context.Context, bank *packsim.Bank) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.DatabaseError("failed to begin bank transaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO pack_banks (id, pack_type, cost, seed, size, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, bank.ID.String(), bank.PackType, bank.Cost, int64(bank.Seed), bank.Len(), r.now())
	if err != nil {
		return errors.DatabaseError("failed to insert bank", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO pack_bundles (bank_id, idx, rolled, hit, total, items)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return errors.DatabaseError("failed to prepare bundle insert", err)
	}
	defer stmt.Close()

	err = bank.Each(func(b packsim.Bundle) error {
		items, err := json.Marshal(b.Items)
		if err != nil {
			return fmt.Errorf("failed to marshal bundle %d: %w", b.Index, err)
		}
		if _, err := stmt.ExecContext(ctx, bank.ID.String(), b.Index, b.Rolled.String(), b.Hit().String(), b.Total, items); err != nil {
			return errors.DatabaseError(fmt.Sprintf("failed to insert bundle %d", b.Index), err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.DatabaseError("failed to commit bank", err)
	}
	return nil
}

type bundleRow struct {
	PackType string  `db:"pack_type"`
	Index    int     `db:"idx"`
	Rolled   string  `db:"rolled"`
	Total    float64 `db:"total"`
	Items    []byte  `db:"items"`
}

// GetBundle reads one stored bundle back
func (r *BankRepositoryImpl) GetBundle(ctx context.Context, id core.BankID, index int) (packsim.Bundle, error) {
	var row bundleRow
	err := r.db.GetContext(ctx, &row, `
		SELECT b.pack_type, u.idx, u.rolled, u.total, u.items
		FROM pack_bundles u
		JOIN pack_banks b ON b.id = u.bank_id
		WHERE u.bank_id = $1 AND u.idx = $2
	`, id.String(), index)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return packsim.Bundle{}, fmt.Errorf("%w: bank %s bundle %d", core.ErrDrawNotFound, id, index)
		}
		return packsim.Bundle{}, errors.DatabaseError("failed to get bundle", err)
	}

	bundle := packsim.Bundle{Index: row.Index, PackType: row.PackType, Total: row.Total}
	if bundle.Rolled, err = market.ParseTier(row.Rolled); err != nil {
		return packsim.Bundle{}, errors.DatabaseError("stored bundle has a bad tier", err)
	}
	if err := json.Unmarshal(row.Items, &bundle.Items); err != nil {
		return packsim.Bundle{}, errors.DatabaseError("stored bundle has bad items", err)
	}
	return bundle, nil
}
