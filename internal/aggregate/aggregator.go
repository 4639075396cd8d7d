package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/stats"
	"allday/internal"
)

// Output is one aggregated column: Op applied to Source. Source is a
// transaction column or, for First and Count, a flag column.
type Output struct {
	Name   string
	Source string
	Op     stats.AggOp
}

// Col builds an Output
func Col(name, source string, op stats.AggOp) Output {
	return Output{Name: name, Source: source, Op: op}
}

// Spec is an ordered list of outputs
type Spec []Output

// Row is one group
type Row struct {
	Key     []string               `json:"key"`
	Size    int                    `json:"size"`
	Numbers map[string]stats.Value `json:"numbers,omitempty"`
	Texts   map[string]string      `json:"texts,omitempty"`
	Flags   map[string]market.Flag `json:"flags,omitempty"`
}

// Grouped is an aggregated table. Mode records how rows were grouped.
type Grouped struct {
	Mode    stats.GroupMode `json:"mode"`
	Keys    []string        `json:"keys"`
	Outputs Spec            `json:"outputs"`
	Rows    []Row           `json:"rows"`
}

func errNotNumeric(op stats.AggOp) error {
	return fmt.Errorf("%w: %s needs a numeric column", core.ErrUnknownAggOp, op)
}

type sourceKind int

const (
	sourceColumn sourceKind = iota
	sourceFlag
)

type compiledOutput struct {
	Output
	kind   sourceKind
	column market.Column
}

// Aggregator groups tables and reduces each group
type Aggregator struct {
	logger *internal.Logger
}

// NewAggregator creates an aggregator
func NewAggregator(logger *internal.Logger) *Aggregator {
	return &Aggregator{logger: logger.WithComponent("aggregate")}
}

// Aggregate groups t by keys and computes spec for every group. In
// ModePerItem marketplace_id is always the leading key. Groups come out
// sorted by key.
func (a *Aggregator) Aggregate(t *market.Table, mode stats.GroupMode, keys []string, spec Spec) (*Grouped, error) {
	keyCols, err := resolveKeys(mode, keys)
	if err != nil {
		return nil, err
	}
	outs, err := compile(t, spec)
	if err != nil {
		return nil, err
	}

	index := make(map[string]int)
	var groups [][]*market.Transaction
	var groupKeys [][]string
	for i := 0; i < t.Len(); i++ {
		tx := t.Row(i)
		key := make([]string, len(keyCols))
		for k, c := range keyCols {
			key[k] = c.Text(tx)
		}
		joined := strings.Join(key, "\x1f")
		g, ok := index[joined]
		if !ok {
			g = len(groups)
			index[joined] = g
			groups = append(groups, nil)
			groupKeys = append(groupKeys, key)
		}
		groups[g] = append(groups[g], tx)
	}

	rows := make([]Row, len(groups))
	for g, members := range groups {
		rows[g] = reduce(groupKeys[g], members, outs)
	}
	sort.SliceStable(rows, func(i, j int) bool { return lessKey(rows[i].Key, rows[j].Key) })

	names := make([]string, len(keyCols))
	for i, c := range keyCols {
		names[i] = string(c)
	}
	a.logger.Trace("aggregate %s by %v: %d rows into %d groups", mode, names, t.Len(), len(rows))
	return &Grouped{Mode: mode, Keys: names, Outputs: spec, Rows: rows}, nil
}

func resolveKeys(mode stats.GroupMode, keys []string) ([]market.Column, error) {
	var cols []market.Column
	switch mode {
	case stats.ModePerItem:
		cols = append(cols, market.ColMarketplaceID)
	case stats.ModeOverall:
	default:
		return nil, fmt.Errorf("%w: unknown group mode %q", core.ErrConfiguration, mode)
	}
	for _, k := range keys {
		c, err := market.ParseColumn(k)
		if err != nil {
			return nil, err
		}
		if mode == stats.ModePerItem && c == market.ColMarketplaceID {
			continue
		}
		cols = append(cols, c)
	}
	return cols, nil
}

func compile(t *market.Table, spec Spec) ([]compiledOutput, error) {
	outs := make([]compiledOutput, 0, len(spec))
	for _, o := range spec {
		if _, err := stats.ParseAggOp(string(o.Op)); err != nil {
			return nil, err
		}
		if c, err := market.ParseColumn(o.Source); err == nil {
			if o.Op.Numeric() && !c.Numeric() {
				return nil, fmt.Errorf("%w: %s of %s", errNotNumeric(o.Op), o.Name, o.Source)
			}
			outs = append(outs, compiledOutput{Output: o, kind: sourceColumn, column: c})
			continue
		}
		if t.HasFlag(o.Source) {
			if o.Op.Numeric() {
				return nil, fmt.Errorf("%w: %s of flag %s", errNotNumeric(o.Op), o.Name, o.Source)
			}
			outs = append(outs, compiledOutput{Output: o, kind: sourceFlag})
			continue
		}
		return nil, core.NewUnknownColumnError(o.Source)
	}
	return outs, nil
}

func reduce(key []string, members []*market.Transaction, outs []compiledOutput) Row {
	row := Row{Key: key, Size: len(members)}
	for _, o := range outs {
		switch {
		case o.kind == sourceFlag && o.Op == stats.OpFirst:
			if row.Flags == nil {
				row.Flags = make(map[string]market.Flag)
			}
			row.Flags[o.Name] = firstFlag(members, o.Source)
		case o.kind == sourceFlag:
			setNumber(&row, o.Name, float64(countFlags(members, o.Source)))
		case o.Op == stats.OpFirst && !o.column.Numeric():
			if row.Texts == nil {
				row.Texts = make(map[string]string)
			}
			row.Texts[o.Name] = o.column.Text(members[0])
		case o.Op == stats.OpFirst:
			v, ok := o.column.Number(members[0])
			if !ok {
				v = math.NaN()
			}
			setNumber(&row, o.Name, v)
		case o.Op == stats.OpCount && !o.column.Numeric():
			setNumber(&row, o.Name, float64(len(members)))
		default:
			values := make([]float64, 0, len(members))
			for _, tx := range members {
				if v, ok := o.column.Number(tx); ok {
					values = append(values, v)
				}
			}
			v, _ := Reduce(o.Op, dropNaN(values))
			setNumber(&row, o.Name, v)
		}
	}
	return row
}

func setNumber(row *Row, name string, v float64) {
	if row.Numbers == nil {
		row.Numbers = make(map[string]stats.Value)
	}
	row.Numbers[name] = stats.Value(v)
}

func firstFlag(members []*market.Transaction, flag string) market.Flag {
	return members[0].Flag(flag)
}

func countFlags(members []*market.Transaction, flag string) int {
	n := 0
	for _, tx := range members {
		if !tx.Flag(flag).IsNull() {
			n++
		}
	}
	return n
}

func lessKey(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
