package aggregate

import (
	"allday/domain/market"
	"allday/domain/stats"
)

// TopPlayers is how many players the leaderboard keeps
const TopPlayers = 40

// PlayVsPlayer holds the play-type and player price tables for one date range
type PlayVsPlayer struct {
	PlayType     *Grouped `json:"play_type"`
	PlayTypeTier *Grouped `json:"play_type_tier"`
	PlayerTier   *Grouped `json:"player_tier"`
	TopPlayers   *Grouped `json:"top_players"`
}

func meanAndCount() Spec {
	return Spec{
		Col("mean", string(market.ColPrice), stats.OpMean),
		Col("count", string(market.ColPrice), stats.OpCount),
	}
}

// PlayVsPlayer computes mean price and sales count by play type, by play
// type and tier, by player, tier and position, and the top players by mean
// price
func (a *Aggregator) PlayVsPlayer(t *market.Table) (*PlayVsPlayer, error) {
	var (
		out PlayVsPlayer
		err error
	)
	if out.PlayType, err = a.Aggregate(t, stats.ModeOverall, []string{string(market.ColPlayType)}, meanAndCount()); err != nil {
		return nil, err
	}
	if out.PlayTypeTier, err = a.Aggregate(t, stats.ModeOverall,
		[]string{string(market.ColPlayType), string(market.ColTier)}, meanAndCount()); err != nil {
		return nil, err
	}
	if out.PlayerTier, err = a.Aggregate(t, stats.ModeOverall,
		[]string{string(market.ColPlayer), string(market.ColTier), string(market.ColPosition)}, meanAndCount()); err != nil {
		return nil, err
	}
	players, err := a.Aggregate(t, stats.ModeOverall,
		[]string{string(market.ColPlayer), string(market.ColPosition)}, meanAndCount())
	if err != nil {
		return nil, err
	}
	if out.TopPlayers, err = players.TopN("", "", "mean", TopPlayers); err != nil {
		return nil, err
	}
	return &out, nil
}

// PlayerDaily aggregates price per date, player, position and team
func (a *Aggregator) PlayerDaily(t *market.Table, op stats.AggOp) (*Grouped, error) {
	return a.Aggregate(t, stats.ModeOverall,
		[]string{string(market.ColDate), string(market.ColPlayer), string(market.ColPosition), string(market.ColTeam)},
		Spec{
			Col(string(op), string(market.ColPrice), op),
			Col("site", string(market.ColSite), stats.OpFirst),
		})
}

// ItemSummary is the per-moment table used for the price-driver sweep and
// pack pools: mean price, sales count and every descriptive column
func (a *Aggregator) ItemSummary(t *market.Table, flags ...string) (*Grouped, error) {
	spec := Spec{
		Col("mean", string(market.ColPrice), stats.OpMean),
		Col("floor", string(market.ColPrice), stats.OpMin),
		Col("count", string(market.ColTxID), stats.OpCount),
		Col(string(market.ColPlayer), string(market.ColPlayer), stats.OpFirst),
		Col(string(market.ColTeam), string(market.ColTeam), stats.OpFirst),
		Col(string(market.ColPosition), string(market.ColPosition), stats.OpFirst),
		Col(string(market.ColPositionGroup), string(market.ColPositionGroup), stats.OpFirst),
		Col(string(market.ColTier), string(market.ColTier), stats.OpFirst),
		Col(string(market.ColPlayType), string(market.ColPlayType), stats.OpFirst),
		Col(string(market.ColSite), string(market.ColSite), stats.OpFirst),
	}
	for _, f := range flags {
		spec = append(spec, Col(f, f, stats.OpFirst))
	}
	return a.Aggregate(t, stats.ModePerItem, nil, spec)
}
