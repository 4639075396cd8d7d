package aggregate

import (
	"math"

	"allday/domain/market"
	"allday/domain/stats"
)

// Summary is the three-figure market summary of a subset
type Summary struct {
	Mode        stats.GroupMode `json:"mode"`
	SalesCount  stats.Value     `json:"sales_count"`
	MedianPrice stats.Value     `json:"median_price"`
	FloorPrice  stats.Value     `json:"floor_price"`
}

// Labels returns the display names of the three figures for the mode
func (s Summary) Labels() [3]string {
	if s.Mode == stats.ModePerItem {
		return [3]string{"Median Sales Count, per Moment", "Median Price, per Moment", "Median Floor Price, per Moment"}
	}
	return [3]string{"Total Sales Count", "Median Price", "Floor Price"}
}

// Summarize computes the overall figures (sales count, median price, floor
// price) or, per item, the median across moments of each moment's sales
// count, mean price and floor price. Empty input gives NaN figures, except
// the overall sales count which is zero.
func (a *Aggregator) Summarize(t *market.Table, mode stats.GroupMode) (Summary, error) {
	if mode == stats.ModeOverall {
		prices := t.Prices()
		median, _ := Reduce(stats.OpMedian, prices)
		floor, _ := Reduce(stats.OpMin, prices)
		return Summary{
			Mode:        mode,
			SalesCount:  stats.Value(len(prices)),
			MedianPrice: stats.Value(median),
			FloorPrice:  stats.Value(floor),
		}, nil
	}

	g, err := a.Aggregate(t, stats.ModePerItem, nil, Spec{
		Col("count", string(market.ColPrice), stats.OpCount),
		Col("mean", string(market.ColPrice), stats.OpMean),
		Col("min", string(market.ColPrice), stats.OpMin),
	})
	if err != nil {
		return Summary{}, err
	}
	medianOf := func(name string) stats.Value {
		values, _ := g.Values(name)
		v, _ := Reduce(stats.OpMedian, dropNaN(values))
		return stats.Value(v)
	}
	s := Summary{
		Mode:        mode,
		SalesCount:  medianOf("count"),
		MedianPrice: medianOf("mean"),
		FloorPrice:  medianOf("min"),
	}
	if g.Len() == 0 {
		s.SalesCount = stats.Value(math.NaN())
	}
	return s, nil
}
