package packsim

import (
	"math"

	"allday/domain/market"
	"allday/domain/stats"
	"allday/internal/aggregate"
)

// TierAverage is the market value of a tier across its moments
type TierAverage struct {
	Tier  market.Tier `json:"tier"`
	Price stats.Value `json:"price"` // sales-weighted mean price
	Count stats.Value `json:"count"` // mean sales per moment
}

// Averages indexes tier averages
type Averages map[market.Tier]TierAverage

// TierAverages computes, per tier, total spent over total sold and the
// mean sales count per moment. items needs mean, count and tier outputs,
// as produced by an item summary.
func TierAverages(items *aggregate.Grouped) (Averages, error) {
	means, err := items.Series("mean")
	if err != nil {
		return nil, err
	}
	counts, err := items.Series("count")
	if err != nil {
		return nil, err
	}

	type acc struct{ spent, sold, moments float64 }
	sums := make(map[market.Tier]*acc)
	for _, r := range items.Rows {
		name, ok := items.Text(r, string(market.ColTier))
		if !ok {
			continue
		}
		tier, err := market.ParseTier(name)
		if err != nil {
			continue
		}
		mean, count := means[r.ID()], counts[r.ID()]
		if math.IsNaN(mean) || math.IsNaN(count) {
			continue
		}
		a := sums[tier]
		if a == nil {
			a = &acc{}
			sums[tier] = a
		}
		a.spent += mean * count
		a.sold += count
		a.moments++
	}

	out := make(Averages)
	for _, tier := range market.Tiers() {
		avg := TierAverage{Tier: tier, Price: stats.Null(), Count: stats.Null()}
		if a := sums[tier]; a != nil && a.sold > 0 {
			avg.Price = stats.Value(a.spent / a.sold)
			avg.Count = stats.Value(a.sold / a.moments)
		}
		out[tier] = avg
	}
	return out, nil
}

// AverageValue prices a bundle's tier mix at the tier averages
func AverageValue(b Bundle, avg Averages) float64 {
	expected := make(map[market.Tier]float64)
	for tier, n := range b.Counts() {
		expected[tier] = float64(n)
	}
	return RewardValue(expected, avg)
}

// RewardValue prices an expected number of moments per tier. A tier with
// no average makes the value undefined.
func RewardValue(expected map[market.Tier]float64, avg Averages) float64 {
	total := 0.0
	for tier, n := range expected {
		if n == 0 {
			continue
		}
		a, ok := avg[tier]
		if !ok || a.Price.IsNull() {
			return math.NaN()
		}
		total += n * a.Price.Float()
	}
	return total
}
