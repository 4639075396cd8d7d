package packsim

import (
	"fmt"
	"math"
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
	"allday/internal/aggregate"
	"allday/internal/config"
	"allday/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listed = testkit.At(2022, time.October, 1, 12, 0)

func packType(t *testing.T, name string) market.PackType {
	t.Helper()
	tables, err := config.LoadTables("")
	require.NoError(t, err)
	p, err := tables.PackType(name)
	require.NoError(t, err)
	return p
}

// poolTable lists n distinct moments per tier, each sold once
func poolTable(common, rare, legendary int) *market.Table {
	var rows []market.Transaction
	add := func(tier market.Tier, n int, price float64) {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s-%d", tier, i)
			rows = append(rows, testkit.Sale(id, price, listed, testkit.WithTier(tier)))
		}
	}
	add(market.TierCommon, common, 5)
	add(market.TierRare, rare, 60)
	add(market.TierLegendary, legendary, 900)
	return testkit.Table(rows...)
}

func newSimulator(t *testing.T, name string, pools Pools) *Simulator {
	t.Helper()
	sim, err := NewSimulator(packType(t, name), pools, internal.NewNopLogger())
	require.NoError(t, err)
	return sim
}

func TestDrawFillsSlotLayouts(t *testing.T) {
	pools := BuildPools(poolTable(20, 5, 3))
	want := map[string]map[market.Tier]map[market.Tier]int{
		"Standard": {
			market.TierCommon:    {market.TierCommon: 4},
			market.TierRare:      {market.TierCommon: 3, market.TierRare: 1},
			market.TierLegendary: {market.TierCommon: 3, market.TierLegendary: 1},
		},
		"Premium": {
			market.TierRare:      {market.TierCommon: 6, market.TierRare: 2},
			market.TierLegendary: {market.TierCommon: 6, market.TierRare: 1, market.TierLegendary: 1},
		},
	}
	for name, layouts := range want {
		t.Run(name, func(t *testing.T) {
			sim := newSimulator(t, name, pools)
			rng := NewRand(42)
			for i := 0; i < 500; i++ {
				b := sim.Draw(rng)
				expected, ok := layouts[b.Rolled]
				require.True(t, ok, "unexpected roll %s", b.Rolled)
				assert.Equal(t, expected, b.Counts())
				assert.Equal(t, name, b.PackType)

				total := 0.0
				for _, it := range b.Items {
					total += it.Price
				}
				assert.InDelta(t, total, b.Total, 1e-9)
			}
		})
	}
}

func TestDrawNeverRepeatsWithinPack(t *testing.T) {
	// exactly as many commons as the biggest roll needs
	sim := newSimulator(t, "Standard", BuildPools(poolTable(4, 1, 1)))
	rng := NewRand(7)
	for i := 0; i < 200; i++ {
		seen := make(map[string]bool)
		for _, it := range sim.Draw(rng).Items {
			assert.False(t, seen[it.MarketplaceID], "repeated %s", it.MarketplaceID)
			seen[it.MarketplaceID] = true
		}
	}
}

func TestRollFrequencies(t *testing.T) {
	sim := newSimulator(t, "Standard", BuildPools(poolTable(10, 2, 2)))
	rng := NewRand(1)
	const n = 20000
	counts := make(map[market.Tier]int)
	for i := 0; i < n; i++ {
		counts[sim.Draw(rng).Rolled]++
	}
	assert.InDelta(t, 18182.0/22222, float64(counts[market.TierCommon])/n, 0.02)
	assert.InDelta(t, 4000.0/22222, float64(counts[market.TierRare])/n, 0.02)
}

func TestSimulatorRejectsShortPools(t *testing.T) {
	logger := internal.NewNopLogger()
	standard := packType(t, "Standard")

	_, err := NewSimulator(standard, BuildPools(poolTable(10, 2, 0)), logger)
	assert.ErrorIs(t, err, core.ErrMissingPoolTier)

	_, err = NewSimulator(standard, BuildPools(poolTable(3, 2, 2)), logger)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)

	_, err = NewSimulator(packType(t, "Premium"), BuildPools(poolTable(6, 1, 1)), logger)
	assert.ErrorIs(t, err, core.ErrPoolExhausted)
	assert.True(t, core.IsConfigurationError(err))

	_, err = NewSimulator(market.PackType{Name: "Empty"}, BuildPools(poolTable(4, 1, 1)), logger)
	assert.ErrorIs(t, err, core.ErrInvalidProportion)
}

func TestBankIsDeterministicAndStable(t *testing.T) {
	sim := newSimulator(t, "Premium", BuildPools(poolTable(30, 8, 4)))

	a, err := BuildBank(sim, 50, 99)
	require.NoError(t, err)
	b, err := BuildBank(sim, 50, 99)
	require.NoError(t, err)
	assert.Equal(t, 50, a.Len())
	assert.NotEqual(t, a.ID, b.ID)

	for i := 0; i < a.Len(); i++ {
		x, err := a.At(i)
		require.NoError(t, err)
		y, err := b.At(i)
		require.NoError(t, err)
		assert.Equal(t, x, y)
		assert.Equal(t, i, x.Index)
	}

	first, _ := a.At(3)
	first.Items[0].Price = -1
	again, _ := a.At(3)
	assert.NotEqual(t, -1.0, again.Items[0].Price)

	_, err = a.At(50)
	assert.ErrorIs(t, err, core.ErrDrawNotFound)
	_, err = a.At(-1)
	assert.True(t, core.IsNotFoundError(err))

	picked := a.Pick(NewRand(5))
	stored, err := a.At(picked.Index)
	require.NoError(t, err)
	assert.Equal(t, stored, picked)

	_, err = BuildBank(sim, 0, 1)
	assert.True(t, core.IsConfigurationError(err))
}

func TestBundleHit(t *testing.T) {
	b := Bundle{Items: []Item{{Tier: market.TierCommon, Price: 5}, {Tier: market.TierLegendary, Price: 900}}, Total: 905}
	assert.Equal(t, market.TierLegendary, b.Hit())
	assert.Equal(t, 846.0, b.Profit(59))
	assert.Equal(t, market.TierUnknown, Bundle{}.Hit())
}

func TestTierAveragesAreVolumeWeighted(t *testing.T) {
	rows := testkit.TierRun(nil, "liquid", market.TierCommon, 5, 100, listed)
	rows = append(rows, testkit.Sale("thin", 50, listed))
	rows = append(rows, testkit.Sale("rare", 80, listed, testkit.WithTier(market.TierRare)))
	items, err := aggregate.NewAggregator(internal.NewNopLogger()).ItemSummary(testkit.Table(rows...))
	require.NoError(t, err)

	avg, err := TierAverages(items)
	require.NoError(t, err)

	common := avg[market.TierCommon]
	assert.InDelta(t, 550.0/101, common.Price.Float(), 1e-9)
	assert.InDelta(t, 5.45, common.Price.Float(), 0.01)
	assert.Equal(t, 50.5, common.Count.Float())
	assert.Equal(t, 80.0, avg[market.TierRare].Price.Float())
	assert.True(t, avg[market.TierLegendary].Price.IsNull())

	b := Bundle{Items: []Item{{Tier: market.TierCommon}, {Tier: market.TierCommon}, {Tier: market.TierRare}}}
	assert.InDelta(t, 2*550.0/101+80, AverageValue(b, avg), 1e-9)

	assert.InDelta(t, 0.5*80, RewardValue(map[market.Tier]float64{market.TierRare: 0.5}, avg), 1e-9)
	assert.True(t, math.IsNaN(RewardValue(map[market.Tier]float64{market.TierLegendary: 1}, avg)))
}

func TestMintedWithin(t *testing.T) {
	drop := core.NewWindow("pool", testkit.At(2022, time.September, 27, 0, 0), testkit.At(2022, time.October, 8, 0, 0))
	table := testkit.Table(
		testkit.Sale("in", 5, listed, testkit.WithMinted(testkit.At(2022, time.September, 30, 10, 0))),
		testkit.Sale("late", 5, listed, testkit.WithMinted(testkit.At(2022, time.October, 8, 0, 0))),
		testkit.Sale("unknown", 5, listed),
	)
	pool := MintedWithin(table, drop)
	require.Equal(t, 1, pool.Len())
	assert.Equal(t, "in", pool.Row(0).MarketplaceID)
}
