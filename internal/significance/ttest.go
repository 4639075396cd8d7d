package significance

import (
	"fmt"
	"math"
	"sort"

	"allday/domain/core"
	"allday/domain/stats"
	"allday/internal/aggregate"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sample is one side of a comparison. IDs are only needed for paired tests
// and, when present, line up with Values.
type Sample struct {
	IDs    []string
	Values []float64
}

// Values builds an unkeyed sample
func Values(values ...float64) Sample {
	return Sample{Values: values}
}

// Keyed builds a sample from a per-item series, ordered by id
func Keyed(series map[string]float64) Sample {
	ids := make([]string, 0, len(series))
	for id := range series {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = series[id]
	}
	return Sample{IDs: ids, Values: values}
}

// Len returns the number of values, NaN included
func (s Sample) Len() int { return len(s.Values) }

// finite drops NaN values
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func median(values []float64) float64 {
	v, _ := aggregate.Reduce(stats.OpMedian, values)
	return v
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

// twoSided returns the two-sided p-value of t under Student's t with df
// degrees of freedom. A zero standard error gives p = 0 when the means
// differ and an undefined p otherwise.
func twoSided(diff, se, df float64) (t, p float64) {
	if se == 0 {
		if diff == 0 {
			return math.NaN(), math.NaN()
		}
		return math.Copysign(math.Inf(1), diff), 0
	}
	t = diff / se
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return t, math.Min(1, 2*dist.Survival(math.Abs(t)))
}

func undefined(kind stats.TestKind) stats.TestResult {
	return stats.TestResult{
		Kind:      kind,
		PValue:    stats.Null(),
		Statistic: stats.Null(),
		DF:        stats.Null(),
	}
}

// Welch runs a two-sided unequal-variance t-test of a against b. NaN
// values are ignored. A side with fewer than two values leaves the p-value
// undefined.
func Welch(a, b Sample) stats.TestResult {
	x, y := finite(a.Values), finite(b.Values)
	r := undefined(stats.TestWelch)
	r.NA, r.NB = len(x), len(y)
	r.MeanA, r.MeanB = stats.Value(mean(x)), stats.Value(mean(y))
	r.MedianA, r.MedianB = stats.Value(median(x)), stats.Value(median(y))
	if len(x) < 2 || len(y) < 2 {
		return r
	}

	mx, vx := stat.MeanVariance(x, nil)
	my, vy := stat.MeanVariance(y, nil)
	nx, ny := float64(len(x)), float64(len(y))
	sx, sy := vx/nx, vy/ny
	se := math.Sqrt(sx + sy)
	df := (sx + sy) * (sx + sy) / (sx*sx/(nx-1) + sy*sy/(ny-1))

	t, p := twoSided(mx-my, se, df)
	r.Statistic, r.PValue = stats.Value(t), stats.Value(p)
	if !math.IsNaN(df) {
		r.DF = stats.Value(df)
	}
	return r
}

// align inner-joins two keyed samples on id, dropping pairs with a NaN on
// either side
func align(a, b Sample) (x, y []float64, err error) {
	index, err := indexOf(b)
	if err != nil {
		return nil, nil, err
	}
	if _, err := indexOf(a); err != nil {
		return nil, nil, err
	}
	for i, id := range a.IDs {
		j, ok := index[id]
		if !ok {
			continue
		}
		va, vb := a.Values[i], b.Values[j]
		if math.IsNaN(va) || math.IsNaN(vb) {
			continue
		}
		x = append(x, va)
		y = append(y, vb)
	}
	return x, y, nil
}

func indexOf(s Sample) (map[string]int, error) {
	if len(s.IDs) != len(s.Values) {
		return nil, fmt.Errorf("%w: %d ids for %d values", core.ErrUnalignedPairs, len(s.IDs), len(s.Values))
	}
	index := make(map[string]int, len(s.IDs))
	for i, id := range s.IDs {
		if id == "" {
			return nil, fmt.Errorf("%w: empty item id", core.ErrUnalignedPairs)
		}
		if _, dup := index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", core.ErrUnalignedPairs, id)
		}
		index[id] = i
	}
	return index, nil
}

// Paired runs a two-sided paired t-test over the items present in both
// samples. Items on one side only are dropped; no shared items leaves the
// p-value undefined. Samples without usable ids are a configuration error.
func Paired(a, b Sample) (stats.TestResult, error) {
	x, y, err := align(a, b)
	if err != nil {
		return stats.TestResult{}, err
	}
	r := undefined(stats.TestPaired)
	r.NA, r.NB = len(x), len(y)
	r.MeanA, r.MeanB = stats.Value(mean(x)), stats.Value(mean(y))
	r.MedianA, r.MedianB = stats.Value(median(x)), stats.Value(median(y))
	if len(x) < 2 {
		return r, nil
	}

	diffs := make([]float64, len(x))
	for i := range x {
		diffs[i] = x[i] - y[i]
	}
	md, vd := stat.MeanVariance(diffs, nil)
	n := float64(len(diffs))
	df := n - 1

	t, p := twoSided(md, math.Sqrt(vd/n), df)
	r.Statistic, r.PValue, r.DF = stats.Value(t), stats.Value(p), stats.Value(df)
	return r, nil
}
