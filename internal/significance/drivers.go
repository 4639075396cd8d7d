package significance

import (
	"fmt"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
	"allday/domain/verdict"
	"allday/internal"
	"allday/internal/aggregate"
)

// DriverMetric is a price-driver condition. Rows with Flag true are
// compared against rows with Other false; Other defaults to Flag.
type DriverMetric struct {
	ShortForm string `json:"short_form"`
	Flag      string `json:"flag"`
	Other     string `json:"other,omitempty"`
}

// Pair reports whether the two sides come from different flags
func (m DriverMetric) Pair() bool {
	return m.Other != "" && m.Other != m.Flag
}

func (m DriverMetric) other() string {
	if m.Pair() {
		return m.Other
	}
	return m.Flag
}

// Name identifies the condition in cache keys
func (m DriverMetric) Name() string {
	if m.Pair() {
		return "[" + m.Flag + ", " + m.Other + "]"
	}
	return m.Flag
}

// DriverMetrics returns the four conditions swept for one scoring variant
func DriverMetrics(how market.ScoringVariant) []DriverMetric {
	return []DriverMetric{
		{ShortForm: "TDs", Flag: string(how)},
		{ShortForm: "Winners", Flag: market.FlagWonGame},
		{ShortForm: "Best Guess Moment", Flag: string(market.ScoredTDInMoment), Other: string(market.DescriptionTD)},
		{ShortForm: "Best Guess Game", Flag: string(market.ScoredTDInGame), Other: string(market.DescriptionTD)},
	}
}

// unit is one observation in a sweep: a transaction or a moment
type unit struct {
	group   string
	flagged market.Flag
	other   market.Flag
	value   float64
}

// Sweeper runs flag-split comparisons across a position grouping
type Sweeper struct {
	engine *Engine
	agg    *aggregate.Aggregator
	logger *internal.Logger
}

// NewSweeper creates a sweeper judged by engine
func NewSweeper(engine *Engine, agg *aggregate.Aggregator, logger *internal.Logger) *Sweeper {
	return &Sweeper{engine: engine, agg: agg, logger: logger.WithComponent("drivers")}
}

// Sweep compares flagged against other rows within every group of pt.
// Price compares transaction prices; Sales Count compares per-moment sales
// counts.
func (s *Sweeper) Sweep(t *market.Table, metric stats.AggMetric, pt market.PositionType, m DriverMetric) (verdict.Family, error) {
	for _, f := range []string{m.Flag, m.other()} {
		if !t.HasFlag(f) {
			return verdict.Family{}, core.NewUnknownColumnError(f)
		}
	}
	units, err := s.units(t, metric, pt, m)
	if err != nil {
		return verdict.Family{}, err
	}

	family := s.engine.Family()
	out := verdict.Family{Name: m.ShortForm, Size: family.Size, Alpha: family.CorrectedAlpha()}
	for _, group := range sweepGroups(pt, units) {
		split := DriverSplit{Group: group, ShortForm: m.ShortForm, Pair: m.Pair()}
		var a, b []float64
		for _, u := range units {
			if group != market.GroupAll && u.group != group {
				continue
			}
			split.Total++
			if u.flagged.Is(true) {
				a = append(a, u.value)
				split.Flagged++
			}
			if u.other.Is(false) {
				b = append(b, u.value)
				split.Other++
			}
		}
		r, err := s.engine.Compare(Values(a...), Values(b...), false)
		if err != nil {
			return verdict.Family{}, err
		}
		out.Records = append(out.Records, RenderDriver(split, r, metric == stats.MetricPrice))
	}
	s.logger.Debug("swept %s by %s (%s): %d groups, %d significant",
		m.ShortForm, pt, metric, len(out.Records), len(out.Significant()))
	return out, nil
}

func (s *Sweeper) units(t *market.Table, metric stats.AggMetric, pt market.PositionType, m DriverMetric) ([]unit, error) {
	col := pt.Column()
	switch metric {
	case stats.MetricPrice:
		units := make([]unit, t.Len())
		for i := range units {
			tx := t.Row(i)
			units[i] = unit{
				group:   col.Text(tx),
				flagged: tx.Flag(m.Flag),
				other:   tx.Flag(m.other()),
				value:   tx.Price,
			}
		}
		return units, nil
	case stats.MetricSalesCount:
		items, err := s.agg.ItemSummary(t, m.Flag, m.other())
		if err != nil {
			return nil, err
		}
		units := make([]unit, len(items.Rows))
		for i, r := range items.Rows {
			group, _ := items.Text(r, string(col))
			units[i] = unit{
				group:   group,
				flagged: r.Flags[m.Flag],
				other:   r.Flags[m.other()],
				value:   r.Number("count"),
			}
		}
		return units, nil
	default:
		return nil, fmt.Errorf("%w: unknown aggregation metric %q", core.ErrConfiguration, metric)
	}
}

// sweepGroups lists the groups of pt. Positions absent from the data are
// skipped; the other groupings are swept in full.
func sweepGroups(pt market.PositionType, units []unit) []string {
	groups := pt.Groups()
	if pt != market.ByPosition {
		return groups
	}
	present := make(map[string]bool)
	for _, u := range units {
		present[u.group] = true
	}
	out := groups[:0:0]
	for _, g := range groups {
		if g == market.GroupAll || present[g] {
			out = append(out, g)
		}
	}
	return out
}
