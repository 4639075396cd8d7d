package testkit

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"allday/domain/market"
)

// MarketGeneratorConfig configures the synthetic marketplace generator
type MarketGeneratorConfig struct {
	MomentCount        int                 `json:"moment_count"`
	AvgSalesPerMoment  float64             `json:"avg_sales_per_moment"`
	TierWeights        map[market.Tier]int `json:"tier_weights"`
	TouchdownRate      float64             `json:"touchdown_rate"`
	DescriptionMissing float64             `json:"description_missing"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
	Seed               int64               `json:"seed"`
}

// DefaultMarketConfig covers the first five weeks of the 2022 season
func DefaultMarketConfig() MarketGeneratorConfig {
	return MarketGeneratorConfig{
		MomentCount:        200,
		AvgSalesPerMoment:  12,
		TierWeights:        map[market.Tier]int{market.TierCommon: 80, market.TierRare: 17, market.TierLegendary: 3},
		TouchdownRate:      0.4,
		DescriptionMissing: 0.05,
		StartDate:          At(2022, time.September, 1, 0, 0),
		EndDate:            At(2022, time.October, 13, 0, 0),
		Seed:               42,
	}
}

type moment struct {
	id        string
	player    rosterEntry
	tier      market.Tier
	playType  string
	touchdown bool
	won       bool
	week      int
}

type rosterEntry struct {
	name, team, position string
}

var roster = []rosterEntry{
	{"Josh Allen", "Buffalo Bills", "QB"},
	{"Patrick Mahomes", "Kansas City Chiefs", "QB"},
	{"Justin Jefferson", "Minnesota Vikings", "WR"},
	{"Gabe Davis", "Buffalo Bills", "WR"},
	{"Derrick Henry", "Tennessee Titans", "RB"},
	{"Travis Kelce", "Kansas City Chiefs", "TE"},
	{"T.J. Watt", "Pittsburgh Steelers", "LB"},
	{"Aaron Donald", "Los Angeles Rams", "DL"},
	{"Jalen Ramsey", "Los Angeles Rams", "DB"},
	{"Chicago Bears", "Chicago Bears", "Team"},
}

var tierBasePrice = map[market.Tier]float64{
	market.TierCommon:    6,
	market.TierRare:      90,
	market.TierLegendary: 900,
	market.TierUltimate:  5000,
}

// MarketGenerator generates realistic marketplace sales
type MarketGenerator struct {
	config MarketGeneratorConfig
	rng    *rand.Rand
}

// NewMarketGenerator creates a seeded generator
func NewMarketGenerator(config MarketGeneratorConfig) *MarketGenerator {
	return &MarketGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// Generate returns every sale, ordered by moment then time
func (g *MarketGenerator) Generate() []market.Transaction {
	var out []market.Transaction
	for i := 0; i < g.config.MomentCount; i++ {
		m := g.moment(i)
		sales := int(math.Round(g.config.AvgSalesPerMoment + g.rng.NormFloat64()*g.config.AvgSalesPerMoment/3))
		if sales < 1 {
			sales = 1
		}
		for s := 0; s < sales; s++ {
			out = append(out, g.sale(m, s))
		}
	}
	return out
}

func (g *MarketGenerator) moment(i int) moment {
	player := roster[g.rng.Intn(len(roster))]
	playType := "Pass"
	switch player.position {
	case "WR", "TE":
		playType = "Reception"
	case "RB":
		playType = "Rush"
	case "LB", "DL":
		playType = "Strip Sack"
	case "DB":
		playType = "Interception"
	case "Team":
		playType = "Team Melee"
	}
	return moment{
		id:        fmt.Sprintf("m-%04d", i+1),
		player:    player,
		tier:      g.tier(),
		playType:  playType,
		touchdown: g.rng.Float64() < g.config.TouchdownRate,
		won:       g.rng.Float64() < 0.5,
		week:      1 + g.rng.Intn(5),
	}
}

func (g *MarketGenerator) tier() market.Tier {
	total := 0
	for _, t := range market.Tiers() {
		total += g.config.TierWeights[t]
	}
	roll := g.rng.Intn(total)
	for _, t := range market.Tiers() {
		roll -= g.config.TierWeights[t]
		if roll < 0 {
			return t
		}
	}
	return market.TierCommon
}

func (g *MarketGenerator) sale(m moment, serial int) market.Transaction {
	span := g.config.EndDate.Sub(g.config.StartDate)
	at := g.config.StartDate.Add(time.Duration(g.rng.Int63n(int64(span))))

	price := tierBasePrice[m.tier] * math.Exp(g.rng.NormFloat64()*0.4)
	if m.touchdown {
		price *= 1.3
	}
	price = math.Round(price*100) / 100

	description := fmt.Sprintf("%s makes a play for the %s.", m.player.name, m.player.team)
	if m.touchdown {
		description = fmt.Sprintf("%s scores a touchdown for the %s.", m.player.name, m.player.team)
	}
	if g.rng.Float64() < g.config.DescriptionMissing {
		description = ""
	}

	pbp := market.FlagOf(m.touchdown)
	if g.rng.Float64() < 0.3 {
		pbp = market.FlagNull
	}

	return market.Transaction{
		Timestamp:        at,
		MarketplaceID:    m.id,
		CopyID:           fmt.Sprintf("%s-%d", m.id, serial+1),
		TxID:             fmt.Sprintf("0x%s%04d", m.id, serial),
		Price:            price,
		Player:           m.player.name,
		Team:             m.player.team,
		Position:         m.player.position,
		Tier:             m.tier,
		PlayType:         m.playType,
		Series:           "Series 2",
		SetName:          "Base",
		Season:           2022,
		Week:             m.week,
		Description:      description,
		Site:             "https://nflallday.com/listing/moment/" + m.id,
		TotalCirculation: 1000,
		Flags: map[string]market.Flag{
			market.FlagWonGame:          market.FlagOf(m.won),
			market.FlagInPack:           market.FlagFalse,
			string(market.PlayByPlayTD): pbp,
		},
	}
}
