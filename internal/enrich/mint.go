package enrich

import (
	"allday/domain/core"
	"allday/domain/market"
)

// Mint annotation flags
const (
	FlagMintedMoment    = "minted_moment"
	FlagMintedPlayer    = "minted_player"
	FlagPlayerNotMoment = "player_not_moment"
	FlagPlayerMoment    = "player_moment"
)

// AnnotateMints marks which sales involve moments, or players, minted in a
// pack drop. A moment counts as minted when any of its copies has a mint
// time inside the drop window.
func AnnotateMints(t *market.Table, drop core.Window, mapping market.NameMapping) *market.Table {
	moments := make(map[string]bool)
	players := make(map[string]bool)
	for _, tx := range t.Rows() {
		if tx.MintedAt.IsZero() || !drop.Contains(tx.MintedAt) {
			continue
		}
		moments[tx.MarketplaceID] = true
		players[mapping.Canonical(tx.Player)] = true
	}

	mintedMoment := func(tx *market.Transaction) bool { return moments[tx.MarketplaceID] }
	mintedPlayer := func(tx *market.Transaction) bool { return players[mapping.Canonical(tx.Player)] }

	out := t.WithFlagColumn(FlagMintedMoment, func(tx *market.Transaction) market.Flag {
		return market.FlagOf(mintedMoment(tx))
	})
	out = out.WithFlagColumn(FlagMintedPlayer, func(tx *market.Transaction) market.Flag {
		return market.FlagOf(mintedPlayer(tx))
	})
	out = out.WithFlagColumn(FlagPlayerNotMoment, func(tx *market.Transaction) market.Flag {
		return market.FlagOf(mintedPlayer(tx) && !mintedMoment(tx))
	})
	return out.WithFlagColumn(FlagPlayerMoment, func(tx *market.Transaction) market.Flag {
		return market.FlagOf(mintedPlayer(tx) && mintedMoment(tx))
	})
}
