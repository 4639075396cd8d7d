package significance

import (
	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
	"allday/domain/verdict"
	"allday/internal/aggregate"
	"allday/internal/enrich"
)

// MintFamilySize is the size of the pack-drop comparison family
const MintFamilySize = 1

// MintComparison pairs, for each player and tier with moments both in and
// out of a pack drop, the mean price of one in-pack moment against one
// other moment. t must carry the minted_moment flag. The moment picked on
// each side is the lowest marketplace id.
func MintComparison(engine *Engine, agg *aggregate.Aggregator, t *market.Table) (verdict.Record, error) {
	if !t.HasFlag(enrich.FlagMintedMoment) {
		return verdict.Record{}, core.NewUnknownColumnError(enrich.FlagMintedMoment)
	}
	items, err := agg.ItemSummary(t, enrich.FlagMintedMoment)
	if err != nil {
		return verdict.Record{}, err
	}

	inPack := make(map[string]float64)
	notInPack := make(map[string]float64)
	// rows are sorted by marketplace id, so the first seen per key wins
	for _, r := range items.Rows {
		player, _ := items.Text(r, string(market.ColPlayer))
		tier, _ := items.Text(r, string(market.ColTier))
		key := player + "|" + tier
		side := notInPack
		if r.Flags[enrich.FlagMintedMoment].Is(true) {
			side = inPack
		}
		if _, seen := side[key]; !seen {
			side[key] = r.Number("mean")
		}
	}

	r, err := engine.Compare(Keyed(inPack), Keyed(notInPack), true)
	if err != nil {
		return verdict.Record{}, err
	}
	return renderMint(r), nil
}

func renderMint(r stats.TestResult) verdict.Record {
	rec := verdict.Record{
		Label: "For players with moments of the same tier both in the pack drop and not in it, is there a difference in price?",
		Comparison: Money(r.MeanA.Float()) + " (in pack) vs " +
			Money(r.MeanB.Float()) + " (not in pack)",
		Status: verdict.StatusOf(r),
		Result: r,
	}
	switch {
	case r.NA == 0:
		rec.Comparison = ""
		rec.Verdict = NoData("in pack and not in pack")
	case !r.Comparable():
		rec.Verdict = NoComparison
	case r.Significant:
		rec.Verdict = printer.Sprintf("Yes! pvalue=%.2f", r.PValue.Float())
	default:
		rec.Verdict = printer.Sprintf("No - pvalue=%.2f", r.PValue.Float())
	}
	return rec
}
