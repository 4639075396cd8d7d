package market

import (
	"sort"
	"time"
)

// Well-known flag columns
const (
	FlagWonGame = "won_game"
	FlagInPack  = "in_pack"
)

// Transaction is one historical sale. MarketplaceID identifies the template
// shared by every numbered copy; CopyID identifies the copy that was sold.
type Transaction struct {
	Timestamp        time.Time
	MarketplaceID    string
	CopyID           string
	TxID             string
	Price            float64
	Player           string
	Team             string
	Position         string
	Tier             Tier
	PlayType         string
	Series           string
	SetName          string
	Season           int
	Week             int
	Description      string
	Site             string
	TotalCirculation int
	MintedAt         time.Time
	Flags            map[string]Flag
}

// Flag returns the named flag, null when absent
func (tx *Transaction) Flag(name string) Flag {
	if tx.Flags == nil {
		return FlagNull
	}
	return tx.Flags[name]
}

// withFlag returns a copy of tx with one flag replaced; the original map is not touched
func (tx Transaction) withFlag(name string, f Flag) Transaction {
	flags := make(map[string]Flag, len(tx.Flags)+1)
	for k, v := range tx.Flags {
		flags[k] = v
	}
	flags[name] = f
	tx.Flags = flags
	return tx
}

// Table is an immutable snapshot of transactions plus its flag schema
type Table struct {
	rows  []Transaction
	flags map[string]bool
}

// NewTable builds a table. The flag schema is the union of the declared
// columns and every flag present on a row.
func NewTable(rows []Transaction, flagColumns ...string) *Table {
	flags := make(map[string]bool, len(flagColumns))
	for _, c := range flagColumns {
		flags[c] = true
	}
	for i := range rows {
		for c := range rows[i].Flags {
			flags[c] = true
		}
	}
	return &Table{rows: rows, flags: flags}
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Row returns a pointer to row i. Callers must treat it as read-only.
func (t *Table) Row(i int) *Transaction {
	return &t.rows[i]
}

// Rows returns the backing rows. Callers must treat them as read-only.
func (t *Table) Rows() []Transaction {
	return t.rows
}

// HasFlag reports whether name is a declared flag column
func (t *Table) HasFlag(name string) bool {
	return t.flags[name]
}

// FlagColumns returns the flag schema in sorted order
func (t *Table) FlagColumns() []string {
	cols := make([]string, 0, len(t.flags))
	for c := range t.flags {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// Filter returns a new table with the rows that keep returns true for.
// The flag schema is preserved even if no rows survive.
func (t *Table) Filter(keep func(*Transaction) bool) *Table {
	out := make([]Transaction, 0, len(t.rows)/2)
	for i := range t.rows {
		if keep(&t.rows[i]) {
			out = append(out, t.rows[i])
		}
	}
	return &Table{rows: out, flags: t.flags}
}

// WithFlagColumn returns a new table with a derived flag column added
func (t *Table) WithFlagColumn(name string, derive func(*Transaction) Flag) *Table {
	out := make([]Transaction, len(t.rows))
	for i := range t.rows {
		out[i] = t.rows[i].withFlag(name, derive(&t.rows[i]))
	}
	flags := make(map[string]bool, len(t.flags)+1)
	for c := range t.flags {
		flags[c] = true
	}
	flags[name] = true
	return &Table{rows: out, flags: flags}
}

// Map returns a new table with fn applied to a copy of every row. fn must
// not mutate the Flags map it is handed; use WithFlagColumn for flags.
func (t *Table) Map(fn func(tx Transaction) Transaction) *Table {
	out := make([]Transaction, len(t.rows))
	for i := range t.rows {
		out[i] = fn(t.rows[i])
	}
	return &Table{rows: out, flags: t.flags}
}

// Prices returns the price of every row
func (t *Table) Prices() []float64 {
	out := make([]float64, len(t.rows))
	for i := range t.rows {
		out[i] = t.rows[i].Price
	}
	return out
}
