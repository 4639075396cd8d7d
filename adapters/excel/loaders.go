package excel

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"
)

// Snapshot column names as exported by the market data pipeline
const (
	colDatetime         = "Datetime"
	colTxID             = "tx_id"
	colMarketplaceID    = "marketplace_id"
	colNFTID            = "NFT_ID"
	colPrice            = "Price"
	colPlayer           = "Player"
	colTeam             = "Team"
	colPosition         = "Position"
	colTier             = "Moment_Tier"
	colPlayType         = "Play_Type"
	colSeries           = "Series"
	colSetName          = "Set_Name"
	colSeason           = "Season"
	colWeek             = "Week"
	colDescription      = "Description"
	colSite             = "site"
	colTotalCirculation = "Total_Circulation"
	colMintDate         = "Mint_Date"
)

// KnownFlagColumns are the nullable boolean columns carried through as flags
var KnownFlagColumns = []string{
	market.FlagWonGame,
	market.FlagInPack,
	string(market.PlayByPlayTD),
	string(market.GameTD),
	string(market.DescriptionTD),
}

// Loader turns sheets into domain values. Times without an offset are read
// in loc.
type Loader struct {
	loc    *time.Location
	logger *internal.Logger
}

// NewLoader creates a loader
func NewLoader(loc *time.Location, logger *internal.Logger) *Loader {
	if loc == nil {
		loc = time.UTC
	}
	return &Loader{loc: loc, logger: logger.WithComponent("loader")}
}

// Transactions builds the transaction table. Rows without a timestamp,
// marketplace id or price are skipped and counted.
func (l *Loader) Transactions(data *ExcelData) (*market.Table, error) {
	for _, required := range []string{colDatetime, colMarketplaceID, colPrice} {
		if !data.HasColumn(required) {
			return nil, fmt.Errorf("%w: transactions: missing column %q", core.ErrConfiguration, required)
		}
	}
	var flagCols []string
	for _, c := range KnownFlagColumns {
		if data.HasColumn(c) {
			flagCols = append(flagCols, c)
		}
	}

	rows := make([]market.Transaction, 0, len(data.Rows))
	skipped, unknownTier := 0, 0
	for _, raw := range data.Rows {
		ts, ok := raw.Time(colDatetime, l.loc)
		price, hasPrice := raw.Float(colPrice)
		id := raw.String(colMarketplaceID)
		if !ok || !hasPrice || id == "" {
			skipped++
			continue
		}
		tier, err := market.ParseTier(raw.String(colTier))
		if err != nil {
			unknownTier++
		}
		tx := market.Transaction{
			Timestamp:        ts,
			MarketplaceID:    id,
			CopyID:           raw.String(colNFTID),
			TxID:             raw.String(colTxID),
			Price:            price,
			Player:           raw.String(colPlayer),
			Team:             raw.String(colTeam),
			Position:         raw.String(colPosition),
			Tier:             tier,
			PlayType:         raw.String(colPlayType),
			Series:           raw.String(colSeries),
			SetName:          raw.String(colSetName),
			Season:           raw.Int(colSeason),
			Week:             raw.Int(colWeek),
			Description:      raw.String(colDescription),
			Site:             raw.String(colSite),
			TotalCirculation: raw.Int(colTotalCirculation),
		}
		if minted, ok := raw.Time(colMintDate, l.loc); ok {
			tx.MintedAt = minted
		}
		if len(flagCols) > 0 {
			tx.Flags = make(map[string]market.Flag, len(flagCols))
			for _, c := range flagCols {
				tx.Flags[c] = raw.Flag(c)
			}
		}
		rows = append(rows, tx)
	}

	if skipped > 0 {
		l.logger.Warn("skipped %d transaction rows without timestamp, id or price", skipped)
	}
	if unknownTier > 0 {
		l.logger.Debug("%d transactions have an unknown tier", unknownTier)
	}
	l.logger.Info("loaded %d transactions with flags %v", len(rows), flagCols)
	return market.NewTable(rows, flagCols...), nil
}

// PlayerStats reads weekly (or season, when week is absent) stat lines
func (l *Loader) PlayerStats(data *ExcelData) ([]market.PlayerStat, error) {
	nameCol, ok := DetectColumn(data, "player_display_name", "player_name", "Player")
	if !ok {
		return nil, fmt.Errorf("%w: player stats: no player name column", core.ErrConfiguration)
	}
	seasonCol, ok := DetectColumn(data, "season")
	if !ok {
		return nil, fmt.Errorf("%w: player stats: missing column %q", core.ErrConfiguration, "season")
	}
	teamCol, _ := DetectColumn(data, "team", "recent_team")
	weekCol, _ := DetectColumn(data, "week")

	out := make([]market.PlayerStat, 0, len(data.Rows))
	for _, raw := range data.Rows {
		name := raw.String(nameCol)
		if name == "" {
			continue
		}
		ppr, _ := raw.Float("fantasy_points_ppr")
		passYds, _ := raw.Float("passing_yards")
		recYds, _ := raw.Float("receiving_yards")
		rushYds, _ := raw.Float("rushing_yards")
		out = append(out, market.PlayerStat{
			PlayerID:         raw.String("player_id"),
			Name:             name,
			Position:         raw.String("position"),
			Team:             raw.String(teamCol),
			Season:           raw.Int(seasonCol),
			Week:             raw.Int(weekCol),
			FantasyPointsPPR: ppr,
			PassingTDs:       raw.Int("passing_tds"),
			PassingYards:     passYds,
			ReceivingTDs:     raw.Int("receiving_tds"),
			ReceivingYards:   recYds,
			RushingTDs:       raw.Int("rushing_tds"),
			RushingYards:     rushYds,
		})
	}
	l.logger.Info("loaded %d player stat lines", len(out))
	return out, nil
}

// Challenges reads the challenge sheet. "What You'll Need" and "Positions"
// hold JSON lists or comma separated names.
func (l *Loader) Challenges(data *ExcelData) ([]market.Challenge, error) {
	nameCol, ok := DetectColumn(data, "Name", "short_form")
	if !ok {
		return nil, fmt.Errorf("%w: challenges: no name column", core.ErrConfiguration)
	}
	startCol, ok := DetectColumn(data, "Start Time (EDT)", "Start")
	if !ok {
		return nil, fmt.Errorf("%w: challenges: no start column", core.ErrConfiguration)
	}
	endCol, ok := DetectColumn(data, "End Time (EDT)", "End")
	if !ok {
		return nil, fmt.Errorf("%w: challenges: no end column", core.ErrConfiguration)
	}

	out := make([]market.Challenge, 0, len(data.Rows))
	for i, raw := range data.Rows {
		start, okStart := raw.Time(startCol, l.loc)
		end, okEnd := raw.Time(endCol, l.loc)
		if !okStart || !okEnd || !end.After(start) {
			return nil, fmt.Errorf("%w: challenges: row %d (%s) has a bad time range", core.ErrConfiguration, i+1, raw.String(nameCol))
		}
		players, err := parseList(raw.String("What You'll Need"))
		if err != nil {
			return nil, fmt.Errorf("challenges: row %d: %w", i+1, err)
		}
		positions, err := parseList(raw.String("Positions"))
		if err != nil {
			return nil, fmt.Errorf("challenges: row %d: %w", i+1, err)
		}
		out = append(out, market.Challenge{
			Name:      raw.String(nameCol),
			Start:     start,
			End:       end,
			Week:      raw.Int("Week"),
			Players:   players,
			Positions: positions,
		})
	}
	l.logger.Info("loaded %d challenges", len(out))
	return out, nil
}

// Catalog reads the pack catalog. Tiers is an optional comma separated list.
func (l *Loader) Catalog(data *ExcelData) ([]market.CatalogEntry, error) {
	typeCol, ok := DetectColumn(data, "Type", "pack_type", "Name")
	if !ok {
		return nil, fmt.Errorf("%w: catalog: no pack type column", core.ErrConfiguration)
	}

	out := make([]market.CatalogEntry, 0, len(data.Rows))
	for i, raw := range data.Rows {
		cost, ok := raw.Float("Cost")
		if !ok {
			return nil, fmt.Errorf("%w: catalog: row %d has no cost", core.ErrConfiguration, i+1)
		}
		entry := market.CatalogEntry{
			PackType: raw.String(typeCol),
			Series:   raw.String("Series"),
			Cost:     cost,
			Supply:   raw.Int("Supply"),
		}
		tiers, err := parseList(raw.String("Tiers"))
		if err != nil {
			return nil, fmt.Errorf("catalog: row %d: %w", i+1, err)
		}
		for _, name := range tiers {
			tier, err := market.ParseTier(name)
			if err != nil {
				return nil, fmt.Errorf("catalog: row %d: %w", i+1, err)
			}
			entry.Tiers = append(entry.Tiers, tier)
		}
		out = append(out, entry)
	}
	return out, nil
}

func parseList(cell string) ([]string, error) {
	if cell == "" {
		return nil, nil
	}
	if strings.HasPrefix(cell, "[") {
		var list []string
		if err := json.Unmarshal([]byte(cell), &list); err != nil {
			return nil, fmt.Errorf("bad list %q: %w", cell, err)
		}
		return list, nil
	}
	var list []string
	for _, part := range strings.Split(cell, ",") {
		if p := strings.TrimSpace(part); p != "" {
			list = append(list, p)
		}
	}
	return list, nil
}
