package partition

import (
	"strings"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
)

// Partitioner filters a transaction table into named subsets
type Partitioner struct {
	catalog *Catalog
	logger  *internal.Logger
}

// NewPartitioner creates a partitioner over a fixed window catalog
func NewPartitioner(catalog *Catalog, logger *internal.Logger) *Partitioner {
	return &Partitioner{catalog: catalog, logger: logger.WithComponent("partition")}
}

// Catalog returns the window catalog
func (p *Partitioner) Catalog() *Catalog {
	return p.catalog
}

// WithWindows returns a partitioner whose catalog also holds windows
func (p *Partitioner) WithWindows(windows ...core.Window) (*Partitioner, error) {
	c, err := p.catalog.With(windows...)
	if err != nil {
		return nil, err
	}
	return &Partitioner{catalog: c, logger: p.logger}, nil
}

// Partition returns the rows matching every predicate. All predicates are
// validated first, so a bad window or column fails even on an empty table.
func (p *Partitioner) Partition(t *market.Table, preds ...Predicate) (*market.Table, error) {
	filters := make([]rowFilter, 0, len(preds))
	for _, pred := range preds {
		f, err := pred.compile(p.catalog, t)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	out := t.Filter(func(tx *market.Transaction) bool {
		for _, f := range filters {
			if !f(tx) {
				return false
			}
		}
		return true
	})
	p.logger.Trace("partition %s kept %d of %d rows", describe(preds), out.Len(), t.Len())
	return out, nil
}

// Split divides a table on a flag: rows where it is true and rows where it
// is false. Null rows land in neither side.
func (p *Partitioner) Split(t *market.Table, flag string) (yes, no *market.Table, err error) {
	if yes, err = p.Partition(t, FlagIs(flag, true)); err != nil {
		return nil, nil, err
	}
	if no, err = p.Partition(t, FlagIs(flag, false)); err != nil {
		return nil, nil, err
	}
	return yes, no, nil
}

// Windows partitions t once per window name
func (p *Partitioner) Windows(t *market.Table, names ...string) (map[string]*market.Table, error) {
	out := make(map[string]*market.Table, len(names))
	for _, name := range names {
		sub, err := p.Partition(t, InWindow(name))
		if err != nil {
			return nil, err
		}
		out[name] = sub
	}
	return out, nil
}

func describe(preds []Predicate) string {
	parts := make([]string, len(preds))
	for i, pred := range preds {
		parts[i] = pred.String()
	}
	return "[" + strings.Join(parts, " AND ") + "]"
}
