package aggregate

import (
	"math"
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
	"allday/internal"
	"allday/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = testkit.At(2022, time.September, 12, 9, 0)

func newAggregator() *Aggregator {
	return NewAggregator(internal.NewNopLogger())
}

// one pricey moment sold once, one cheap moment sold nine times
func skewedTable() *market.Table {
	rows := testkit.TierRun(nil, "cheap", market.TierCommon, 10, 9, day)
	rows = append(rows, testkit.Sale("pricey", 100, day, testkit.WithTier(market.TierRare)))
	return testkit.Table(rows...)
}

func TestCountsSumToTableLength(t *testing.T) {
	cfg := testkit.DefaultMarketConfig()
	cfg.MomentCount = 60
	table := testkit.Table(testkit.NewMarketGenerator(cfg).Generate()...)
	a := newAggregator()

	keySets := [][]string{
		nil,
		{"position"},
		{"tier", "play_type"},
		{"player", "team", "position"},
		{"date"},
	}
	for _, mode := range []stats.GroupMode{stats.ModeOverall, stats.ModePerItem} {
		for _, keys := range keySets {
			g, err := a.Aggregate(table, mode, keys, Spec{Col("count", "tx_id", stats.OpCount)})
			require.NoError(t, err)

			counts, err := g.Values("count")
			require.NoError(t, err)
			total := 0.0
			for _, c := range counts {
				total += c
			}
			assert.Equal(t, float64(table.Len()), total, "mode=%s keys=%v", mode, keys)
			assert.Equal(t, table.Len(), g.TotalSize())
		}
	}
}

func TestPerItemMeanDiffersFromPerTransactionMean(t *testing.T) {
	a := newAggregator()
	table := skewedTable()

	overall, err := a.Aggregate(table, stats.ModeOverall, nil, Spec{Col("mean", "price", stats.OpMean)})
	require.NoError(t, err)
	require.Equal(t, 1, overall.Len())
	assert.InDelta(t, 19.0, overall.Rows[0].Number("mean"), 1e-9)

	perItem, err := a.Aggregate(table, stats.ModePerItem, nil, Spec{Col("mean", "price", stats.OpMean)})
	require.NoError(t, err)
	means, err := perItem.Values("mean")
	require.NoError(t, err)
	itemMean, _ := Reduce(stats.OpMean, means)
	assert.InDelta(t, 55.0, itemMean, 1e-9)

	assert.Equal(t, stats.ModeOverall, overall.Mode)
	assert.Equal(t, stats.ModePerItem, perItem.Mode)
	assert.NotEqual(t, overall.Rows[0].Number("mean"), itemMean)
}

func TestPerItemPrependsMarketplaceID(t *testing.T) {
	g, err := newAggregator().Aggregate(skewedTable(), stats.ModePerItem, []string{"tier", "marketplace_id"},
		Spec{Col("floor", "price", stats.OpMin), Col("player", "player", stats.OpFirst)})
	require.NoError(t, err)

	assert.Equal(t, []string{"marketplace_id", "tier"}, g.Keys)
	require.Equal(t, 2, g.Len())
	assert.Equal(t, []string{"cheap", "COMMON"}, g.Rows[0].Key)
	assert.Equal(t, "Josh Allen", g.Rows[0].Texts["player"])
	assert.Equal(t, 100.0, g.Rows[1].Number("floor"))
}

func TestEmptyAndNullGroupsAreNaN(t *testing.T) {
	a := newAggregator()

	g, err := a.Aggregate(testkit.Table(), stats.ModeOverall, []string{"position"}, Spec{Col("mean", "price", stats.OpMean)})
	require.NoError(t, err)
	assert.Equal(t, 0, g.Len())

	// total_circulation is unset on fixtures, so every value is null
	g, err = a.Aggregate(skewedTable(), stats.ModeOverall, nil, Spec{
		Col("circ", "total_circulation", stats.OpMedian),
		Col("n", "total_circulation", stats.OpCount),
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(g.Rows[0].Number("circ")))
	assert.Equal(t, 0.0, g.Rows[0].Number("n"))

	v, err := Reduce(stats.OpMin, nil)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(v))
}

func TestAggregateConfigurationErrors(t *testing.T) {
	a := newAggregator()
	table := skewedTable()

	tests := []struct {
		name string
		keys []string
		spec Spec
		want error
	}{
		{"unknown op", nil, Spec{Col("x", "price", "mode")}, core.ErrUnknownAggOp},
		{"unknown source", nil, Spec{Col("x", "colour", stats.OpFirst)}, core.ErrUnknownColumn},
		{"unknown key", []string{"colour"}, Spec{Col("x", "price", stats.OpMean)}, core.ErrUnknownColumn},
		{"mean of text", nil, Spec{Col("x", "player", stats.OpMean)}, core.ErrUnknownAggOp},
		{"min of flag", nil, Spec{Col("x", market.FlagWonGame, stats.OpMin)}, core.ErrUnknownAggOp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Aggregate(table, stats.ModeOverall, tt.keys, tt.spec)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, core.IsConfigurationError(err))
		})
	}
}

func TestFlagOutputsAndFilter(t *testing.T) {
	table := testkit.Table(
		testkit.Sale("td", 30, day, testkit.WithBool(market.FlagWonGame, true)),
		testkit.Sale("td", 40, day.Add(time.Hour), testkit.WithBool(market.FlagWonGame, true)),
		testkit.Sale("no-td", 5, day, testkit.WithBool(market.FlagWonGame, false)),
		testkit.Sale("unknown", 5, day),
	)
	g, err := newAggregator().ItemSummary(table, market.FlagWonGame)
	require.NoError(t, err)

	won := g.WhereFlag(market.FlagWonGame, true)
	require.Equal(t, 1, won.Len())
	assert.Equal(t, 2.0, won.Rows[0].Number("count"))
	assert.Equal(t, 35.0, won.Rows[0].Number("mean"))
	assert.Equal(t, 1, g.WhereFlag(market.FlagWonGame, false).Len())

	series, err := g.Series("mean")
	require.NoError(t, err)
	assert.Equal(t, 5.0, series["no-td"])
}

func TestSummarize(t *testing.T) {
	a := newAggregator()
	table := skewedTable()

	overall, err := a.Summarize(table, stats.ModeOverall)
	require.NoError(t, err)
	assert.Equal(t, 10.0, overall.SalesCount.Float())
	assert.Equal(t, 10.0, overall.MedianPrice.Float())
	assert.Equal(t, 10.0, overall.FloorPrice.Float())
	assert.Equal(t, "Total Sales Count", overall.Labels()[0])

	perItem, err := a.Summarize(table, stats.ModePerItem)
	require.NoError(t, err)
	assert.Equal(t, 5.0, perItem.SalesCount.Float())
	assert.Equal(t, 55.0, perItem.MedianPrice.Float())
	assert.Equal(t, 55.0, perItem.FloorPrice.Float())

	empty, err := a.Summarize(testkit.Table(), stats.ModePerItem)
	require.NoError(t, err)
	assert.True(t, empty.MedianPrice.IsNull())
	assert.True(t, empty.SalesCount.IsNull())
}

func TestTopNAndPlayVsPlayer(t *testing.T) {
	rows := []market.Transaction{
		testkit.Sale("a", 50, day, testkit.WithPlayer("Justin Jefferson", "Minnesota Vikings", "WR"), testkit.WithPlayType("Reception")),
		testkit.Sale("b", 20, day, testkit.WithPlayer("Travis Kelce", "Kansas City Chiefs", "TE"), testkit.WithPlayType("Reception")),
		testkit.Sale("c", 80, day),
		testkit.Sale("c", 60, day.Add(time.Minute)),
	}
	table := testkit.Table(rows...)
	a := newAggregator()

	report, err := a.PlayVsPlayer(table)
	require.NoError(t, err)
	assert.Equal(t, 2, report.PlayType.Len())
	require.Equal(t, 3, report.TopPlayers.Len())
	assert.Equal(t, []string{"Josh Allen", "QB"}, report.TopPlayers.Rows[0].Key)

	receivers, err := report.PlayerTier.TopN("position", "WR", "mean", 10)
	require.NoError(t, err)
	require.Equal(t, 1, receivers.Len())
	assert.Equal(t, "Justin Jefferson", receivers.Rows[0].Key[0])

	_, err = report.PlayerTier.TopN("position", "WR", "median", 10)
	assert.ErrorIs(t, err, core.ErrUnknownColumn)

	daily, err := a.PlayerDaily(table, stats.OpMedian)
	require.NoError(t, err)
	assert.Equal(t, table.Len(), daily.TotalSize())
}
