package enrich

import (
	"allday/domain/market"
	"allday/internal"
)

// Scorer derives the touchdown-determination flags. Values already present
// in the input win over derived ones.
type Scorer struct {
	mapping market.NameMapping
	stats   *market.StatIndex
	logger  *internal.Logger
}

// NewScorer creates a scorer. stats may be nil, in which case game_td is
// left as loaded.
func NewScorer(mapping market.NameMapping, stats *market.StatIndex, logger *internal.Logger) *Scorer {
	return &Scorer{mapping: mapping, stats: stats, logger: logger.WithComponent("scoring")}
}

// Apply adds description_td, game_td and both composites
func (s *Scorer) Apply(t *market.Table) *market.Table {
	out := t.WithFlagColumn(string(market.DescriptionTD), func(tx *market.Transaction) market.Flag {
		return tx.Flag(string(market.DescriptionTD)).Or(market.DescribesTouchdown(tx.PlayType, tx.Description))
	})

	if s.stats != nil {
		var matched, missing int
		out = out.WithFlagColumn(string(market.GameTD), func(tx *market.Transaction) market.Flag {
			if f := tx.Flag(string(market.GameTD)); !f.IsNull() {
				return f
			}
			line, ok := s.stats.Lookup(s.mapping.Canonical(tx.Player), tx.Season, tx.Week)
			if !ok {
				missing++
				return market.FlagNull
			}
			matched++
			return market.FlagOf(line.TotalTDs() > 0)
		})
		s.logger.Debug("game_td joined %d rows, %d without a stat line", matched, missing)
	} else if !out.HasFlag(string(market.GameTD)) {
		out = out.WithFlagColumn(string(market.GameTD), func(*market.Transaction) market.Flag { return market.FlagNull })
	}

	if !out.HasFlag(string(market.PlayByPlayTD)) {
		out = out.WithFlagColumn(string(market.PlayByPlayTD), func(*market.Transaction) market.Flag { return market.FlagNull })
	}

	for _, c := range market.Composites() {
		out = out.WithFlagColumn(string(c.Name), c.Resolve)
	}
	return out
}

// CanonicalNames rewrites player names through the mapping
func CanonicalNames(t *market.Table, mapping market.NameMapping) *market.Table {
	return t.Map(func(tx market.Transaction) market.Transaction {
		tx.Player = mapping.Canonical(tx.Player)
		return tx
	})
}
