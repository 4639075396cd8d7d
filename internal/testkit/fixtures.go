package testkit

import (
	"fmt"
	"time"

	"allday/domain/market"
)

// Eastern is the fixed -04:00 offset used by all 2022 season fixtures
var Eastern = time.FixedZone("EDT", -4*3600)

// At builds an Eastern timestamp
func At(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, Eastern)
}

// Option customizes a fixture transaction
type Option func(*market.Transaction)

// Sale builds a transaction with sensible defaults: a COMMON Pass by a QB
func Sale(marketplaceID string, price float64, at time.Time, opts ...Option) market.Transaction {
	tx := market.Transaction{
		Timestamp:     at,
		MarketplaceID: marketplaceID,
		CopyID:        fmt.Sprintf("%s-%d", marketplaceID, at.UnixNano()),
		TxID:          fmt.Sprintf("tx-%s-%d", marketplaceID, at.UnixNano()),
		Price:         price,
		Player:        "Josh Allen",
		Team:          "Buffalo Bills",
		Position:      "QB",
		Tier:          market.TierCommon,
		PlayType:      "Pass",
		Season:        2022,
		Week:          1,
		Site:          "https://nflallday.com/listing/moment/" + marketplaceID,
		Flags:         map[string]market.Flag{},
	}
	for _, opt := range opts {
		opt(&tx)
	}
	return tx
}

func WithTier(t market.Tier) Option {
	return func(tx *market.Transaction) { tx.Tier = t }
}

func WithPlayer(name, team, position string) Option {
	return func(tx *market.Transaction) {
		tx.Player, tx.Team, tx.Position = name, team, position
	}
}

func WithPosition(position string) Option {
	return func(tx *market.Transaction) { tx.Position = position }
}

func WithPlayType(playType string) Option {
	return func(tx *market.Transaction) { tx.PlayType = playType }
}

func WithDescription(description string) Option {
	return func(tx *market.Transaction) { tx.Description = description }
}

func WithWeek(season, week int) Option {
	return func(tx *market.Transaction) { tx.Season, tx.Week = season, week }
}

func WithMinted(at time.Time) Option {
	return func(tx *market.Transaction) { tx.MintedAt = at }
}

// WithFlag sets a tri-state flag
func WithFlag(name string, f market.Flag) Option {
	return func(tx *market.Transaction) { tx.Flags[name] = f }
}

// WithBool sets a non-null flag
func WithBool(name string, b bool) Option {
	return WithFlag(name, market.FlagOf(b))
}

// Table wraps rows with the standard flag schema
func Table(rows ...market.Transaction) *market.Table {
	return market.NewTable(rows, market.FlagWonGame, market.FlagInPack,
		string(market.DescriptionTD), string(market.PlayByPlayTD), string(market.GameTD))
}

// TierRun appends n sales of one moment at one price, spaced a minute apart
func TierRun(rows []market.Transaction, marketplaceID string, tier market.Tier, price float64, n int, start time.Time) []market.Transaction {
	for i := 0; i < n; i++ {
		rows = append(rows, Sale(marketplaceID, price, start.Add(time.Duration(i)*time.Minute), WithTier(tier)))
	}
	return rows
}
