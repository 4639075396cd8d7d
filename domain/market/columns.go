package market

import (
	"strconv"

	"allday/domain/core"
)

// Column names a transaction attribute that can be grouped on or aggregated
type Column string

const (
	ColMarketplaceID    Column = "marketplace_id"
	ColCopyID           Column = "copy_id"
	ColTxID             Column = "tx_id"
	ColDate             Column = "date"
	ColPrice            Column = "price"
	ColPlayer           Column = "player"
	ColTeam             Column = "team"
	ColPosition         Column = "position"
	ColPositionGroup    Column = "position_group"
	ColTier             Column = "tier"
	ColPlayType         Column = "play_type"
	ColSeries           Column = "series"
	ColSetName          Column = "set_name"
	ColSeason           Column = "season"
	ColWeek             Column = "week"
	ColDescription      Column = "description"
	ColSite             Column = "site"
	ColTotalCirculation Column = "total_circulation"
)

type columnDef struct {
	text func(*Transaction) string
	// num is nil for text-only columns
	num func(*Transaction) (float64, bool)
}

func intText(v int) string { return strconv.Itoa(v) }

var columnDefs = map[Column]columnDef{
	ColMarketplaceID: {text: func(tx *Transaction) string { return tx.MarketplaceID }},
	ColCopyID:        {text: func(tx *Transaction) string { return tx.CopyID }},
	ColTxID:          {text: func(tx *Transaction) string { return tx.TxID }},
	ColDate:          {text: func(tx *Transaction) string { return tx.Timestamp.Format("2006-01-02") }},
	ColPrice: {
		text: func(tx *Transaction) string { return strconv.FormatFloat(tx.Price, 'f', -1, 64) },
		num:  func(tx *Transaction) (float64, bool) { return tx.Price, true },
	},
	ColPlayer:        {text: func(tx *Transaction) string { return tx.Player }},
	ColTeam:          {text: func(tx *Transaction) string { return tx.Team }},
	ColPosition:      {text: func(tx *Transaction) string { return tx.Position }},
	ColPositionGroup: {text: func(tx *Transaction) string { return PositionGroupOf(tx.Position) }},
	ColTier:          {text: func(tx *Transaction) string { return tx.Tier.String() }},
	ColPlayType:      {text: func(tx *Transaction) string { return tx.PlayType }},
	ColSeries:        {text: func(tx *Transaction) string { return tx.Series }},
	ColSetName:       {text: func(tx *Transaction) string { return tx.SetName }},
	ColSeason: {
		text: func(tx *Transaction) string { return intText(tx.Season) },
		num:  func(tx *Transaction) (float64, bool) { return float64(tx.Season), tx.Season != 0 },
	},
	ColWeek: {
		text: func(tx *Transaction) string { return intText(tx.Week) },
		num:  func(tx *Transaction) (float64, bool) { return float64(tx.Week), tx.Week != 0 },
	},
	ColDescription: {text: func(tx *Transaction) string { return tx.Description }},
	ColSite:        {text: func(tx *Transaction) string { return tx.Site }},
	ColTotalCirculation: {
		text: func(tx *Transaction) string { return intText(tx.TotalCirculation) },
		num: func(tx *Transaction) (float64, bool) {
			return float64(tx.TotalCirculation), tx.TotalCirculation > 0
		},
	},
}

// ParseColumn validates a column name
func ParseColumn(name string) (Column, error) {
	c := Column(name)
	if _, ok := columnDefs[c]; !ok {
		return "", core.NewUnknownColumnError(name)
	}
	return c, nil
}

// Valid reports whether c is a known column
func (c Column) Valid() bool {
	_, ok := columnDefs[c]
	return ok
}

// Numeric reports whether c can feed numeric aggregations
func (c Column) Numeric() bool {
	return columnDefs[c].num != nil
}

// Text returns the categorical value of c for tx
func (c Column) Text(tx *Transaction) string {
	def, ok := columnDefs[c]
	if !ok {
		return ""
	}
	return def.text(tx)
}

// Number returns the numeric value of c for tx; ok is false for null or text columns
func (c Column) Number(tx *Transaction) (float64, bool) {
	def, ok := columnDefs[c]
	if !ok || def.num == nil {
		return 0, false
	}
	return def.num(tx)
}

func (c Column) String() string { return string(c) }
