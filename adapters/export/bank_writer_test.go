package export

import (
	"path/filepath"
	"testing"

	"allday/domain/market"
	"allday/internal"
	"allday/internal/config"
	"allday/internal/packsim"
	"allday/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
)

func premiumBank(t *testing.T, n int) *packsim.Bank {
	t.Helper()
	tables, err := config.LoadTables("")
	require.NoError(t, err)
	pack, err := tables.PackType("Premium")
	require.NoError(t, err)

	at := testkit.At(2022, 10, 1, 12, 0)
	var rows []market.Transaction
	rows = testkit.TierRun(rows, "c", market.TierCommon, 5, 12, at)
	rows = testkit.TierRun(rows, "r", market.TierRare, 50, 4, at)
	rows = testkit.TierRun(rows, "l", market.TierLegendary, 500, 2, at)

	sim, err := packsim.NewSimulator(pack, packsim.BuildPools(testkit.Table(rows...)), internal.NewNopLogger())
	require.NoError(t, err)
	bank, err := packsim.BuildBank(sim, n, 11)
	require.NoError(t, err)
	return bank
}

func TestRowsFlattenEveryItem(t *testing.T) {
	bank := premiumBank(t, 3)
	rows := Rows(bank)

	want := 0
	require.NoError(t, bank.Each(func(b packsim.Bundle) error {
		want += len(b.Items)
		return nil
	}))
	require.Len(t, rows, want)
	assert.Equal(t, int32(0), rows[0].Index)
	assert.Equal(t, "Premium", rows[0].PackType)
	assert.Equal(t, int32(2), rows[len(rows)-1].Index)
}

func TestExportWritesReadableParquet(t *testing.T) {
	bank := premiumBank(t, 5)
	dir := filepath.Join(t.TempDir(), "exports")

	path, err := NewBankWriter(dir, "gzip", internal.NewNopLogger()).Export(bank)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, FileName(bank)), path)

	fr, err := local.NewLocalFileReader(path)
	require.NoError(t, err)
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(BankRow), 1)
	require.NoError(t, err)
	defer pr.ReadStop()

	n := int(pr.GetNumRows())
	want := Rows(bank)
	require.Equal(t, len(want), n)

	got := make([]BankRow, n)
	require.NoError(t, pr.Read(&got))
	assert.Equal(t, want, got)
}
