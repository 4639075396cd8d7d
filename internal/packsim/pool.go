package packsim

import (
	"allday/domain/core"
	"allday/domain/market"
)

// Item is one moment in a simulated pack, carried with the price of the
// sale it was drawn from
type Item struct {
	MarketplaceID string      `json:"marketplace_id"`
	Player        string      `json:"player"`
	Team          string      `json:"team"`
	Position      string      `json:"position"`
	Tier          market.Tier `json:"tier"`
	Price         float64     `json:"price"`
	Site          string      `json:"site"`
}

func itemOf(tx *market.Transaction) Item {
	return Item{
		MarketplaceID: tx.MarketplaceID,
		Player:        tx.Player,
		Team:          tx.Team,
		Position:      tx.Position,
		Tier:          tx.Tier,
		Price:         tx.Price,
		Site:          tx.Site,
	}
}

// Pools holds, per tier, every sale a pack slot can be filled from. A
// moment appears once per sale, so liquid moments are drawn more often.
type Pools map[market.Tier][]Item

// BuildPools splits a table's sales by tier
func BuildPools(t *market.Table) Pools {
	pools := make(Pools)
	for i := 0; i < t.Len(); i++ {
		tx := t.Row(i)
		if tx.Tier == market.TierUnknown {
			continue
		}
		pools[tx.Tier] = append(pools[tx.Tier], itemOf(tx))
	}
	return pools
}

// MintedWithin keeps sales of copies minted inside w
func MintedWithin(t *market.Table, w core.Window) *market.Table {
	return t.Filter(func(tx *market.Transaction) bool {
		return !tx.MintedAt.IsZero() && w.Contains(tx.MintedAt)
	})
}

// Size returns the pool size for a tier
func (p Pools) Size(tier market.Tier) int {
	return len(p[tier])
}
