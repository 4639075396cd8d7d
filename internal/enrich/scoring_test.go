package enrich

import (
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
	"allday/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sunday = testkit.At(2022, time.September, 11, 14, 0)

func flagOf(t *market.Table, i int, v market.ScoringVariant) market.Flag {
	return t.Row(i).Flag(string(v))
}

func TestCompositesPreferPrimary(t *testing.T) {
	tests := []struct {
		name        string
		pbp         market.Flag
		description string
		want        market.Flag
	}{
		{"primary true wins over text", market.FlagTrue, "Allen throws a short pass", market.FlagTrue},
		{"primary false wins over text", market.FlagFalse, "Allen throws a touchdown", market.FlagFalse},
		{"null primary falls back", market.FlagNull, "Allen throws a touchdown", market.FlagTrue},
		{"both null stays null", market.FlagNull, "", market.FlagNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := testkit.Table(testkit.Sale("a", 1, sunday,
				testkit.WithFlag(string(market.PlayByPlayTD), tt.pbp),
				testkit.WithDescription(tt.description)))

			out := NewScorer(market.NewNameMapping(nil), nil, internal.NewNopLogger()).Apply(table)
			assert.Equal(t, tt.want, flagOf(out, 0, market.ScoredTDInMoment))
		})
	}
}

func TestGameTDJoinsOnCanonicalName(t *testing.T) {
	mapping := market.NewNameMapping(map[string]string{"Patrick Mahomes": "Patrick Mahomes II"})
	stats := market.NewStatIndex([]market.PlayerStat{
		{Name: "Patrick Mahomes II", Season: 2022, Week: 1, PassingTDs: 5},
		{Name: "Josh Allen", Season: 2022, Week: 1},
	}, mapping)

	table := testkit.Table(
		testkit.Sale("mahomes", 10, sunday, testkit.WithPlayer("Patrick Mahomes", "Kansas City Chiefs", "QB")),
		testkit.Sale("allen", 10, sunday, testkit.WithDescription("Allen scores a touchdown")),
		testkit.Sale("unknown", 10, sunday, testkit.WithPlayer("Nobody", "None", "QB"), testkit.WithDescription("a quiet snap")),
		testkit.Sale("mahomes", 10, sunday, testkit.WithPlayer("Patrick Mahomes", "Kansas City Chiefs", "QB"), testkit.WithWeek(2022, 2)),
	)

	out := NewScorer(mapping, stats, internal.NewNopLogger()).Apply(table)
	require.Equal(t, 4, out.Len())

	assert.Equal(t, market.FlagTrue, flagOf(out, 0, market.GameTD))
	assert.Equal(t, market.FlagFalse, flagOf(out, 1, market.GameTD))
	assert.Equal(t, market.FlagNull, flagOf(out, 2, market.GameTD))
	assert.Equal(t, market.FlagNull, flagOf(out, 3, market.GameTD), "stat lines are keyed by week")

	// game_td false beats a description saying otherwise
	assert.Equal(t, market.FlagFalse, flagOf(out, 1, market.ScoredTDInGame))
	// missing stat line falls back to the description
	assert.Equal(t, market.FlagFalse, flagOf(out, 2, market.ScoredTDInGame))

	for _, v := range market.ScoringVariants() {
		assert.True(t, out.HasFlag(string(v)), v)
	}
	// the input table is untouched
	assert.False(t, table.HasFlag(string(market.ScoredTDInGame)))
}

func TestDescriptionOnlyForScoringPlays(t *testing.T) {
	table := testkit.Table(
		testkit.Sale("melee", 1, sunday, testkit.WithPlayType("Team Melee"), testkit.WithDescription("a touchdown celebration")),
		testkit.Sale("kick", 1, sunday, testkit.WithPlayType("Punt Return"), testkit.WithDescription("returns it for a TD")),
	)

	out := NewScorer(market.NewNameMapping(nil), nil, internal.NewNopLogger()).Apply(table)
	assert.Equal(t, market.FlagFalse, flagOf(out, 0, market.DescriptionTD))
	assert.Equal(t, market.FlagTrue, flagOf(out, 1, market.DescriptionTD))
}

func TestAnnotateMints(t *testing.T) {
	drop := core.Window{
		Name:         "Drop 2022-09-27",
		Start:        testkit.At(2022, time.September, 27, 6, 0),
		End:          testkit.At(2022, time.September, 27, 23, 59),
		InclusiveEnd: true,
	}
	inDrop := testkit.At(2022, time.September, 27, 12, 0)
	before := testkit.At(2022, time.August, 1, 12, 0)

	table := testkit.Table(
		testkit.Sale("new", 5, sunday, testkit.WithMinted(inDrop)),
		testkit.Sale("old", 5, sunday, testkit.WithMinted(before)),
		testkit.Sale("other", 5, sunday, testkit.WithPlayer("Derrick Henry", "Tennessee Titans", "RB"), testkit.WithMinted(before)),
	)

	out := AnnotateMints(table, drop, market.NewNameMapping(nil))

	assert.Equal(t, market.FlagTrue, out.Row(0).Flag(FlagMintedMoment))
	assert.Equal(t, market.FlagTrue, out.Row(0).Flag(FlagPlayerMoment))
	assert.Equal(t, market.FlagFalse, out.Row(1).Flag(FlagMintedMoment))
	assert.Equal(t, market.FlagTrue, out.Row(1).Flag(FlagMintedPlayer))
	assert.Equal(t, market.FlagTrue, out.Row(1).Flag(FlagPlayerNotMoment))
	assert.Equal(t, market.FlagFalse, out.Row(2).Flag(FlagMintedPlayer))
}
