package excel

import (
	"path/filepath"
	"testing"

	"allday/domain/market"
	"allday/internal"
	"allday/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTransactionsReadsBack(t *testing.T) {
	cfg := testkit.DefaultMarketConfig()
	cfg.MomentCount = 15
	cfg.AvgSalesPerMoment = 3
	rows := testkit.NewMarketGenerator(cfg).Generate()
	flags := []string{market.FlagWonGame, market.FlagInPack, string(market.PlayByPlayTD)}

	for _, name := range []string{"generated.csv", "generated.xlsx"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, WriteTransactions(path, rows, flags))

			data, err := NewDataReader(path, internal.NewNopLogger()).ReadData()
			require.NoError(t, err)
			table, err := NewLoader(testkit.Eastern, internal.NewNopLogger()).Transactions(data)
			require.NoError(t, err)
			require.Equal(t, len(rows), table.Len())
			assert.ElementsMatch(t, flags, table.FlagColumns())

			byTx := make(map[string]market.Transaction, len(rows))
			for _, tx := range rows {
				byTx[tx.TxID] = tx
			}
			for _, got := range table.Rows() {
				want, ok := byTx[got.TxID]
				require.True(t, ok, got.TxID)
				assert.True(t, want.Timestamp.Equal(got.Timestamp), got.TxID)
				assert.Equal(t, want.Price, got.Price)
				assert.Equal(t, want.Tier, got.Tier)
				assert.Equal(t, want.Flag(string(market.PlayByPlayTD)), got.Flag(string(market.PlayByPlayTD)))
			}
		})
	}
}

func TestWriteTransactionsRejectsUnknownType(t *testing.T) {
	err := WriteTransactions(filepath.Join(t.TempDir(), "out.csv.gz"), nil, nil)
	assert.Error(t, err)
}
