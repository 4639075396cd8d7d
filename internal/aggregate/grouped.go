package aggregate

import (
	"math"
	"sort"
	"strings"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
)

// Len returns the number of groups
func (g *Grouped) Len() int { return len(g.Rows) }

// TotalSize sums the group sizes, which equals the input row count
func (g *Grouped) TotalSize() int {
	n := 0
	for _, r := range g.Rows {
		n += r.Size
	}
	return n
}

// ID joins a row's key into one identifier
func (r Row) ID() string {
	return strings.Join(r.Key, "|")
}

// Number returns a numeric output, NaN when absent
func (r Row) Number(name string) float64 {
	v, ok := r.Numbers[name]
	if !ok {
		return math.NaN()
	}
	return v.Float()
}

type outputKind int

const (
	kindNumber outputKind = iota
	kindText
	kindFlag
)

// kindOf reports where an output's values are stored on a Row
func kindOf(o Output) outputKind {
	c, err := market.ParseColumn(o.Source)
	switch {
	case err != nil && o.Op == stats.OpFirst:
		return kindFlag
	case err == nil && o.Op == stats.OpFirst && !c.Numeric():
		return kindText
	default:
		return kindNumber
	}
}

func (g *Grouped) has(name string, kind outputKind) bool {
	for _, o := range g.Outputs {
		if o.Name == name {
			return kindOf(o) == kind
		}
	}
	return false
}

func (g *Grouped) hasNumber(name string) bool { return g.has(name, kindNumber) }

// Values returns a numeric output for every group, NaN included
func (g *Grouped) Values(name string) ([]float64, error) {
	if !g.hasNumber(name) {
		return nil, core.NewUnknownColumnError(name)
	}
	out := make([]float64, len(g.Rows))
	for i, r := range g.Rows {
		out[i] = r.Number(name)
	}
	return out, nil
}

// Series returns a numeric output keyed by row ID, for paired alignment
func (g *Grouped) Series(name string) (map[string]float64, error) {
	if !g.hasNumber(name) {
		return nil, core.NewUnknownColumnError(name)
	}
	out := make(map[string]float64, len(g.Rows))
	for _, r := range g.Rows {
		out[r.ID()] = r.Number(name)
	}
	return out, nil
}

// Text returns a categorical value for a row: a key column or a text output
func (g *Grouped) Text(r Row, name string) (string, bool) {
	for i, k := range g.Keys {
		if k == name {
			return r.Key[i], true
		}
	}
	v, ok := r.Texts[name]
	return v, ok
}

// Filter returns the groups keep accepts, preserving mode and outputs
func (g *Grouped) Filter(keep func(Row) bool) *Grouped {
	out := &Grouped{Mode: g.Mode, Keys: g.Keys, Outputs: g.Outputs}
	for _, r := range g.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// WhereFlag keeps groups whose flag output is set and equal to value
func (g *Grouped) WhereFlag(name string, value bool) *Grouped {
	return g.Filter(func(r Row) bool { return r.Flags[name].Is(value) })
}

// TopN keeps the groups whose column equals value (all groups when column
// is empty), sorted by the numeric output by in descending order, first n.
// NaN sorts last.
func (g *Grouped) TopN(column, value, by string, n int) (*Grouped, error) {
	if !g.hasNumber(by) {
		return nil, core.NewUnknownColumnError(by)
	}
	var out *Grouped
	if column != "" {
		if !g.hasText(column) {
			return nil, core.NewUnknownColumnError(column)
		}
		out = g.Filter(func(r Row) bool {
			v, _ := g.Text(r, column)
			return v == value
		})
	} else {
		out = g.Filter(func(Row) bool { return true })
	}
	sort.SliceStable(out.Rows, func(i, j int) bool {
		a, b := out.Rows[i].Number(by), out.Rows[j].Number(by)
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	if n >= 0 && len(out.Rows) > n {
		out.Rows = out.Rows[:n]
	}
	return out, nil
}

func (g *Grouped) hasText(name string) bool {
	for _, k := range g.Keys {
		if k == name {
			return true
		}
	}
	return g.has(name, kindText)
}
