package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"allday/adapters/excel"
	"allday/domain/market"
	"allday/internal"
	"allday/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotTransactions = `Datetime,tx_id,marketplace_id,NFT_ID,Price,Player,Team,Position,Moment_Tier,Play_Type,Season,Week,Description
2022-09-11 14:00:00,tx1,m1,n1,12,Patrick Mahomes,KC,QB,COMMON,Pass,2022,1,Mahomes finds Kelce for a 4-yard touchdown
2022-09-11 15:00:00,tx2,m2,n2,30,Justin Jefferson,MIN,WR,RARE,Reception,2022,1,Jefferson hauls in a 40-yard catch
`

const snapshotStats = `player_display_name,season,week,passing_tds,rushing_tds,receiving_tds
Patrick Mahomes II,2022,1,5,0,0
Justin Jefferson,2022,1,0,0,2
`

func writeSnapshot(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestLoadSnapshot(t *testing.T) {
	tables := loadTables(t)
	dir := writeSnapshot(t, map[string]string{"tx.csv": snapshotTransactions, "stats.csv": snapshotStats})
	files := config.DataConfig{TransactionsFile: "tx.csv", StatsFile: "stats.csv", ChallengesFile: "challenges.csv"}

	svc := NewSnapshotService(excel.NewDirSource(dir), files, tables, internal.NewNopLogger())
	snap, err := svc.Load(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, snap.Transactions.Len())
	assert.Len(t, snap.Stats, 2)
	assert.Empty(t, snap.Challenges, "a missing optional file is skipped")
	assert.NotEmpty(t, snap.InputsHash)

	mahomes := snap.Transactions.Row(0)
	assert.Equal(t, "Patrick Mahomes II", mahomes.Player)
	assert.Equal(t, market.FlagTrue, mahomes.Flag(string(market.GameTD)), "joined on the canonical name")
	assert.Equal(t, market.FlagTrue, mahomes.Flag(string(market.DescriptionTD)))
	assert.Equal(t, market.FlagTrue, mahomes.Flag(string(market.ScoredTDInMoment)))

	jefferson := snap.Transactions.Row(1)
	assert.Equal(t, market.FlagFalse, jefferson.Flag(string(market.DescriptionTD)))
	assert.Equal(t, market.FlagTrue, jefferson.Flag(string(market.ScoredTDInGame)))

	assert.True(t, snap.Transactions.HasFlag(market.FlagWonGame), "absent input flags are declared")
	assert.Equal(t, market.FlagNull, jefferson.Flag(market.FlagWonGame))
}

func TestInputsHashTracksContent(t *testing.T) {
	tables := loadTables(t)
	files := config.DataConfig{TransactionsFile: "tx.csv"}
	load := func(content string) *Snapshot {
		dir := writeSnapshot(t, map[string]string{"tx.csv": content})
		snap, err := NewSnapshotService(excel.NewDirSource(dir), files, tables, internal.NewNopLogger()).Load(context.Background())
		require.NoError(t, err)
		return snap
	}

	a := load(snapshotTransactions)
	b := load(snapshotTransactions)
	c := load(snapshotTransactions + "2022-09-12 10:00:00,tx3,m1,n3,11,Patrick Mahomes,KC,QB,COMMON,Pass,2022,1,\n")
	assert.Equal(t, a.InputsHash, b.InputsHash)
	assert.NotEqual(t, a.InputsHash, c.InputsHash)
}

func TestLoadSnapshotRequiresTransactions(t *testing.T) {
	tables := loadTables(t)
	svc := NewSnapshotService(excel.NewDirSource(t.TempDir()), config.DataConfig{TransactionsFile: "tx.csv"}, tables, internal.NewNopLogger())
	_, err := svc.Load(context.Background())
	assert.ErrorContains(t, err, "transactions")
}
