package significance

import (
	"allday/domain/market"
	"allday/domain/stats"
	"allday/domain/verdict"
	"allday/internal"
	"allday/internal/aggregate"
	"allday/internal/partition"
)

// WindowStat is the per-moment statistic a challenge comparison runs on
type WindowStat string

const (
	StatPrice WindowStat = "Price" // mean price per moment
	StatCount WindowStat = "Count" // sales per moment
	StatFloor WindowStat = "Floor" // lowest price per moment
)

func (s WindowStat) op() stats.AggOp {
	switch s {
	case StatCount:
		return stats.OpCount
	case StatFloor:
		return stats.OpMin
	default:
		return stats.OpMean
	}
}

// WindowComparison pairs two windows on one statistic
type WindowComparison struct {
	Name   string
	Before string
	After  string
	Stat   WindowStat
}

var windowTitles = map[string]string{
	partition.PreGame:         "Before_Game",
	partition.DuringGame:      "During_Game",
	partition.PostGame:        "After_Game",
	partition.PreChallenge:    "Before_Challenge",
	partition.DuringChallenge: "During_Challenge",
	partition.PostChallenge:   "After_Challenge",
}

func compare(before, after string, s WindowStat) WindowComparison {
	return WindowComparison{
		Name:   windowTitles[before] + "_vs_" + windowTitles[after] + "_" + string(s),
		Before: before,
		After:  after,
		Stat:   s,
	}
}

// ChallengeComparisons lists the fourteen timing comparisons in report order
func ChallengeComparisons() []WindowComparison {
	return []WindowComparison{
		compare(partition.PreGame, partition.DuringGame, StatPrice),
		compare(partition.PreGame, partition.DuringGame, StatCount),
		compare(partition.DuringGame, partition.DuringChallenge, StatPrice),
		compare(partition.DuringGame, partition.DuringChallenge, StatCount),
		compare(partition.DuringChallenge, partition.PostChallenge, StatPrice),
		compare(partition.DuringChallenge, partition.PostChallenge, StatCount),
		compare(partition.PreGame, partition.PostGame, StatPrice),
		compare(partition.PreGame, partition.PostGame, StatCount),
		compare(partition.PreChallenge, partition.PostChallenge, StatPrice),
		compare(partition.PreChallenge, partition.PostChallenge, StatCount),
		compare(partition.PreChallenge, partition.DuringChallenge, StatCount),
		compare(partition.PreChallenge, partition.DuringChallenge, StatPrice),
		compare(partition.PreChallenge, partition.PostChallenge, StatFloor),
		compare(partition.PreChallenge, partition.DuringChallenge, StatFloor),
	}
}

// ChallengeWindows lists the six buffered windows in display order
func ChallengeWindows() []string {
	return []string{
		partition.PreGame, partition.DuringGame, partition.PostGame,
		partition.PreChallenge, partition.DuringChallenge, partition.PostChallenge,
	}
}

// WindowSummary holds both summary modes of one window
type WindowSummary struct {
	Window  string            `json:"window"`
	Overall aggregate.Summary `json:"overall"`
	PerItem aggregate.Summary `json:"per_item"`
}

// ChallengeReport is the timing analysis of one challenge
type ChallengeReport struct {
	Family    verdict.Family  `json:"family"`
	Summaries []WindowSummary `json:"summaries"`
}

// ChallengeTester runs the paired timing family for a challenge
type ChallengeTester struct {
	engine      *Engine
	agg         *aggregate.Aggregator
	partitioner *partition.Partitioner
	logger      *internal.Logger
}

// NewChallengeTester creates a tester. The partitioner's catalog must hold
// the six challenge windows.
func NewChallengeTester(engine *Engine, agg *aggregate.Aggregator, partitioner *partition.Partitioner, logger *internal.Logger) *ChallengeTester {
	return &ChallengeTester{
		engine:      engine,
		agg:         agg,
		partitioner: partitioner,
		logger:      logger.WithComponent("challenge"),
	}
}

// Run summarizes each window and pairs per-moment statistics across
// windows. Moments missing from either window of a pair are left out of
// that comparison.
func (c *ChallengeTester) Run(t *market.Table) (*ChallengeReport, error) {
	names := ChallengeWindows()
	subsets, err := c.partitioner.Windows(t, names...)
	if err != nil {
		return nil, err
	}

	report := &ChallengeReport{}
	series := make(map[string]map[WindowStat]Sample, len(names))
	for _, name := range names {
		sub := subsets[name]
		ws := WindowSummary{Window: name}
		if ws.Overall, err = c.agg.Summarize(sub, stats.ModeOverall); err != nil {
			return nil, err
		}
		if ws.PerItem, err = c.agg.Summarize(sub, stats.ModePerItem); err != nil {
			return nil, err
		}
		report.Summaries = append(report.Summaries, ws)

		if series[name], err = c.perItem(sub); err != nil {
			return nil, err
		}
	}

	family := c.engine.Family()
	report.Family = verdict.Family{Name: family.Name, Size: family.Size, Alpha: family.CorrectedAlpha()}
	for _, cmp := range ChallengeComparisons() {
		r, err := c.engine.Compare(series[cmp.Before][cmp.Stat], series[cmp.After][cmp.Stat], true)
		if err != nil {
			return nil, err
		}
		report.Family.Records = append(report.Family.Records,
			RenderWindowComparison(cmp.Name, cmp.Before, cmp.After, r, cmp.Stat != StatCount))
	}
	c.logger.Info("challenge family %s: %d of %d comparisons significant",
		family.Name, len(report.Family.Significant()), len(report.Family.Records))
	return report, nil
}

func (c *ChallengeTester) perItem(t *market.Table) (map[WindowStat]Sample, error) {
	windowStats := []WindowStat{StatPrice, StatCount, StatFloor}
	spec := make(aggregate.Spec, len(windowStats))
	for i, s := range windowStats {
		spec[i] = aggregate.Col(string(s), string(market.ColPrice), s.op())
	}
	g, err := c.agg.Aggregate(t, stats.ModePerItem, nil, spec)
	if err != nil {
		return nil, err
	}
	out := make(map[WindowStat]Sample, len(windowStats))
	for _, s := range windowStats {
		values, err := g.Series(string(s))
		if err != nil {
			return nil, err
		}
		out[s] = Keyed(values)
	}
	return out, nil
}
