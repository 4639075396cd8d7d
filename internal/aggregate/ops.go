package aggregate

import (
	"math"

	"allday/domain/stats"

	mstats "github.com/montanaflynn/stats"
)

type numericOp func(values []float64) float64

// numericOps dispatches every numeric aggregation. Count and First are
// handled by the grouping loop since they do not reduce numbers.
var numericOps = map[stats.AggOp]numericOp{
	stats.OpMean:   guard(mstats.Mean),
	stats.OpMedian: guard(mstats.Median),
	stats.OpMin:    guard(mstats.Min),
}

// guard turns the library's empty-input error into NaN
func guard(fn func(mstats.Float64Data) (float64, error)) numericOp {
	return func(values []float64) float64 {
		if len(values) == 0 {
			return math.NaN()
		}
		v, err := fn(values)
		if err != nil {
			return math.NaN()
		}
		return v
	}
}

// Reduce applies a numeric op to a slice; empty input gives NaN
func Reduce(op stats.AggOp, values []float64) (float64, error) {
	fn, ok := numericOps[op]
	if !ok {
		if op == stats.OpCount {
			return float64(len(values)), nil
		}
		_, err := stats.ParseAggOp(string(op))
		if err == nil {
			err = errNotNumeric(op)
		}
		return math.NaN(), err
	}
	return fn(values), nil
}

// dropNaN filters NaN values in place
func dropNaN(values []float64) []float64 {
	out := values[:0]
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}
