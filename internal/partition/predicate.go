package partition

import (
	"fmt"
	"strings"

	"allday/domain/core"
	"allday/domain/market"
)

// Predicate selects transactions. Predicates are validated against the
// catalog and the table schema before any row is read.
type Predicate interface {
	compile(c *Catalog, t *market.Table) (rowFilter, error)
	String() string
}

type rowFilter func(*market.Transaction) bool

type windowPredicate struct{ name string }

// InWindow keeps transactions whose timestamp falls in the named window
func InWindow(name string) Predicate { return windowPredicate{name: name} }

func (p windowPredicate) compile(c *Catalog, _ *market.Table) (rowFilter, error) {
	w, err := c.Lookup(p.name)
	if err != nil {
		return nil, err
	}
	return func(tx *market.Transaction) bool { return w.Contains(tx.Timestamp) }, nil
}

func (p windowPredicate) String() string { return "window=" + p.name }

type columnPredicate struct {
	column string
	values []string
}

// ColumnEquals keeps transactions whose categorical column equals value
func ColumnEquals(column, value string) Predicate {
	return columnPredicate{column: column, values: []string{value}}
}

// ColumnIn keeps transactions whose categorical column is any of values
func ColumnIn(column string, values ...string) Predicate {
	return columnPredicate{column: column, values: values}
}

func (p columnPredicate) compile(_ *Catalog, _ *market.Table) (rowFilter, error) {
	col, err := market.ParseColumn(p.column)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(p.values))
	for _, v := range p.values {
		set[v] = struct{}{}
	}
	return func(tx *market.Transaction) bool {
		_, ok := set[col.Text(tx)]
		return ok
	}, nil
}

func (p columnPredicate) String() string {
	return p.column + " in [" + strings.Join(p.values, ",") + "]"
}

type flagPredicate struct {
	flag  string
	value bool
}

// FlagIs keeps transactions whose flag is set and equal to value. Null
// flags match neither true nor false.
func FlagIs(flag string, value bool) Predicate { return flagPredicate{flag: flag, value: value} }

func (p flagPredicate) compile(_ *Catalog, t *market.Table) (rowFilter, error) {
	if !t.HasFlag(p.flag) {
		return nil, fmt.Errorf("%w %q: no such flag", core.ErrUnknownColumn, p.flag)
	}
	return func(tx *market.Transaction) bool { return tx.Flag(p.flag).Is(p.value) }, nil
}

func (p flagPredicate) String() string { return fmt.Sprintf("%s=%t", p.flag, p.value) }

type funcPredicate struct {
	name string
	keep rowFilter
}

// Match wraps an arbitrary row test, e.g. challenge eligibility
func Match(name string, keep func(*market.Transaction) bool) Predicate {
	return funcPredicate{name: name, keep: keep}
}

func (p funcPredicate) compile(_ *Catalog, _ *market.Table) (rowFilter, error) {
	return p.keep, nil
}

func (p funcPredicate) String() string { return p.name }
