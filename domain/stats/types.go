package stats

import (
	"fmt"
	"math"

	"allday/domain/core"
)

// ============================================================================
// AGGREGATION VOCABULARY
// ============================================================================

// AggOp is one of the fixed aggregation functions
type AggOp string

const (
	OpMean   AggOp = "mean"
	OpMedian AggOp = "median"
	OpMin    AggOp = "min" // floor price
	OpCount  AggOp = "count"
	OpFirst  AggOp = "first" // pass-through for columns constant within a group
)

// ParseAggOp validates an aggregation name
func ParseAggOp(s string) (AggOp, error) {
	switch op := AggOp(s); op {
	case OpMean, OpMedian, OpMin, OpCount, OpFirst:
		return op, nil
	default:
		return "", fmt.Errorf("%w %q", core.ErrUnknownAggOp, s)
	}
}

// Numeric reports whether the op needs a numeric source column
func (op AggOp) Numeric() bool {
	return op == OpMean || op == OpMedian || op == OpMin
}

// GroupMode declares how rows were grouped before aggregating
type GroupMode string

const (
	ModePerItem GroupMode = "per_item" // grouped by marketplace_id first
	ModeOverall GroupMode = "overall"  // raw transaction rows
)

// Label is the display name used in summaries
func (m GroupMode) Label() string {
	if m == ModePerItem {
		return "Per Moment"
	}
	return "Overall"
}

// AggMetric is the quantity a price-driver comparison is run on
type AggMetric string

const (
	MetricPrice      AggMetric = "Price"
	MetricSalesCount AggMetric = "Sales Count"
)

// AggMetrics lists the metrics in materialization order
func AggMetrics() []AggMetric {
	return []AggMetric{MetricPrice, MetricSalesCount}
}

// ComparisonMetric selects the statistic used to decide direction
type ComparisonMetric string

const (
	CompareMean   ComparisonMetric = "mean"
	CompareMedian ComparisonMetric = "median"
)

// ============================================================================
// TEST RESULTS
// ============================================================================

// TestKind names the hypothesis test used
type TestKind string

const (
	TestWelch  TestKind = "welch"
	TestPaired TestKind = "paired"
)

// Direction of group A relative to group B
type Direction string

const (
	DirectionHigher       Direction = "higher"
	DirectionLower        Direction = "lower"
	DirectionNoDifference Direction = "no difference"
)

// DirectionOf compares two statistics; ties and NaN are no difference
func DirectionOf(a, b float64) Direction {
	switch {
	case math.IsNaN(a) || math.IsNaN(b) || a == b:
		return DirectionNoDifference
	case a > b:
		return DirectionHigher
	default:
		return DirectionLower
	}
}

// TestResult is one significance comparison. PValue is NaN when no
// comparison was possible.
type TestResult struct {
	Kind        TestKind         `json:"kind"`
	PValue      Value            `json:"p_value"`
	Statistic   Value            `json:"t_statistic"`
	DF          Value            `json:"df"`
	MeanA       Value            `json:"mean_a"`
	MeanB       Value            `json:"mean_b"`
	MedianA     Value            `json:"median_a"`
	MedianB     Value            `json:"median_b"`
	NA          int              `json:"n_a"`
	NB          int              `json:"n_b"`
	Alpha       float64          `json:"alpha"` // corrected threshold
	Metric      ComparisonMetric `json:"metric"`
	Direction   Direction        `json:"direction"`
	Significant bool             `json:"significant"`
}

// Comparable reports whether a p-value was defined
func (r TestResult) Comparable() bool {
	return !r.PValue.IsNull()
}

// Stats returns the compared statistics for the configured metric
func (r TestResult) Stats() (a, b float64) {
	if r.Metric == CompareMedian {
		return r.MedianA.Float(), r.MedianB.Float()
	}
	return r.MeanA.Float(), r.MeanB.Float()
}
