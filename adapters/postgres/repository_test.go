package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/run"
	"allday/internal"
	"allday/internal/config"
	apperrors "allday/internal/errors"
	"allday/internal/packsim"
	"allday/internal/testkit"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

var computed = time.Date(2022, 10, 11, 6, 0, 0, 0, time.UTC)

func TestSaveResultsUpsertsInOneTransaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResultRepository(db)

	key := core.NewCacheKey("summary", "mode", "overall")
	res, err := run.NewResult(key, run.KindSummary, core.RunID("0190c9c2-0000-7000-8000-000000000001"), map[string]float64{"mean": 10}, computed)
	require.NoError(t, err)

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO results"))
	prep.ExpectExec().
		WithArgs(res.Key, res.Hash.String(), run.KindSummary, "0190c9c2-0000-7000-8000-000000000001", []byte(res.Payload), computed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveResults(context.Background(), []run.Result{res}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveResultsRollsBackOnFailure(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResultRepository(db)
	res, err := run.NewResult(core.NewCacheKey("summary"), run.KindSummary, "", 1, computed)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO results")).
		ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = repo.SaveResults(context.Background(), []run.Result{res})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeDatabaseError, apperrors.GetCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNoResultsIsNoop(t *testing.T) {
	db, mock := newMock(t)
	require.NoError(t, NewResultRepository(db).SaveResults(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetResult(t *testing.T) {
	db, mock := newMock(t)
	repo := NewResultRepository(db)

	rows := sqlmock.NewRows([]string{"cache_key", "key_hash", "kind", "run_id", "payload", "computed_at"}).
		AddRow("summary--mode=overall", "abc", run.KindSummary, nil, []byte(`{"mean":10}`), computed)
	mock.ExpectQuery(regexp.QuoteMeta("FROM results")).WithArgs("summary--mode=overall").WillReturnRows(rows)

	res, err := repo.GetResult(context.Background(), "summary--mode=overall")
	require.NoError(t, err)
	assert.Equal(t, core.Hash("abc"), res.Hash)
	assert.Nil(t, res.RunID)
	assert.JSONEq(t, `{"mean":10}`, string(res.Payload))
	assert.True(t, res.ComputedAt.Equal(computed))
}

func TestGetMissingResult(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM results")).WillReturnError(sql.ErrNoRows)

	_, err := NewResultRepository(db).GetResult(context.Background(), "nope")
	assert.ErrorIs(t, err, core.ErrResultNotFound)
}

func TestListKeysByKind(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE kind = $1")).WithArgs(run.KindChallenge).
		WillReturnRows(sqlmock.NewRows([]string{"cache_key"}).AddRow("a").AddRow("b"))

	keys, err := NewResultRepository(db).ListKeys(context.Background(), run.KindChallenge)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, keys)
}

func TestRunLifecycle(t *testing.T) {
	db, mock := newMock(t)
	repo := NewRunRepository(db)
	rn := run.NewRun(run.NewFingerprint("in", "tables", 9, "dev"), computed)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO materialization_runs")).
		WithArgs(rn.ID, computed, run.StatusRunning, 0, "", rn.Fingerprint, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.StartRun(context.Background(), rn))

	rn.Finish(4, nil, computed.Add(time.Minute))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE materialization_runs")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.FinishRun(context.Background(), rn)
	assert.True(t, core.IsNotFoundError(err), "updating an unknown run is not found")

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY started_at DESC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "started_at", "finished_at", "status", "result_count", "error", "fingerprint", "seed"}).
			AddRow(rn.ID.String(), computed, computed.Add(time.Minute), "complete", 4, "", rn.Fingerprint.String(), 9))
	latest, err := repo.LatestRun(context.Background())
	require.NoError(t, err)
	assert.Equal(t, rn.ID, latest.ID)
	assert.Equal(t, run.StatusComplete, latest.Status)
	require.NotNil(t, latest.FinishedAt)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1")).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetRun(context.Background(), core.RunID("missing"))
	assert.True(t, core.IsNotFoundError(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func smallBank(t *testing.T) *packsim.Bank {
	t.Helper()
	tables, err := config.LoadTables("")
	require.NoError(t, err)
	pack, err := tables.PackType("Standard")
	require.NoError(t, err)

	at := testkit.At(2022, 10, 1, 12, 0)
	var rows []market.Transaction
	rows = testkit.TierRun(rows, "c", market.TierCommon, 5, 10, at)
	rows = testkit.TierRun(rows, "r", market.TierRare, 50, 3, at)
	rows = testkit.TierRun(rows, "l", market.TierLegendary, 500, 2, at)

	sim, err := packsim.NewSimulator(pack, packsim.BuildPools(testkit.Table(rows...)), internal.NewNopLogger())
	require.NoError(t, err)
	bank, err := packsim.BuildBank(sim, 2, 3)
	require.NoError(t, err)
	return bank
}

func TestSaveBank(t *testing.T) {
	db, mock := newMock(t)
	repo := &BankRepositoryImpl{db: db, now: func() time.Time { return computed }}
	bank := smallBank(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO pack_banks")).
		WithArgs(bank.ID.String(), "Standard", bank.Cost, int64(3), 2, computed).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO pack_bundles"))
	prep.ExpectExec().WithArgs(bank.ID.String(), 0, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(bank.ID.String(), 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveBank(context.Background(), bank))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBundleRoundTripsItems(t *testing.T) {
	db, mock := newMock(t)
	repo := NewBankRepository(db)

	items := []packsim.Item{{MarketplaceID: "c1", Tier: market.TierCommon, Price: 5}, {MarketplaceID: "r1", Tier: market.TierRare, Price: 50}}
	body, err := json.Marshal(items)
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pack_bundles")).WithArgs("bank-1", 1).
		WillReturnRows(sqlmock.NewRows([]string{"pack_type", "idx", "rolled", "total", "items"}).
			AddRow("Standard", 1, "RARE", 55.0, body))

	b, err := repo.GetBundle(context.Background(), core.BankID("bank-1"), 1)
	require.NoError(t, err)
	assert.Equal(t, market.TierRare, b.Rolled)
	assert.Equal(t, market.TierRare, b.Hit())
	assert.Equal(t, items, b.Items)

	mock.ExpectQuery(regexp.QuoteMeta("FROM pack_bundles")).WillReturnError(sql.ErrNoRows)
	_, err = repo.GetBundle(context.Background(), core.BankID("bank-1"), 99)
	assert.ErrorIs(t, err, core.ErrDrawNotFound)
}
