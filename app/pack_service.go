package app

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/run"
	"allday/domain/stats"
	"allday/internal"
	"allday/internal/aggregate"
	"allday/internal/config"
	"allday/internal/metrics"
	"allday/internal/packsim"
	"allday/ports"
)

// BankInfo describes a generated sample bank
type BankInfo struct {
	ID         core.BankID `json:"id"`
	PackType   string      `json:"pack_type"`
	Cost       float64     `json:"cost"`
	Size       int         `json:"size"`
	Seed       uint64      `json:"seed"`
	ExportPath string      `json:"export_path,omitempty"`
}

// Draw is one bundle served to a caller, valued at tier averages
type Draw struct {
	BankID       core.BankID    `json:"bank_id"`
	Bundle       packsim.Bundle `json:"bundle"`
	Hit          string         `json:"hit"`
	Cost         float64        `json:"cost"`
	Profit       float64        `json:"profit"`
	AverageValue stats.Value    `json:"average_value"`
}

// PackValue is the expected worth of one pack type
type PackValue struct {
	PackType      string           `json:"pack_type"`
	Cost          float64          `json:"cost"`
	ExpectedValue stats.Value      `json:"expected_value"` // at tier averages
	BankMeanTotal stats.Value      `json:"bank_mean_total"`
	Averages      packsim.Averages `json:"tier_averages"`
}

// PackService builds one sample bank per configured pack type and serves
// draws from them
type PackService struct {
	tables   *config.Tables
	banks    ports.BankRepository
	exporter ports.BankExporter
	results  ports.ResultRepository
	agg      *aggregate.Aggregator
	logger   *internal.Logger

	mu       sync.Mutex
	byType   map[string]*packsim.Bank
	byID     map[core.BankID]*packsim.Bank // current banks only
	averages packsim.Averages
	rng      *rand.Rand
}

// NewPackService creates the service. banks, exporter and results are
// optional.
func NewPackService(tables *config.Tables, banks ports.BankRepository, exporter ports.BankExporter, results ports.ResultRepository, logger *internal.Logger) *PackService {
	return &PackService{
		tables:   tables,
		banks:    banks,
		exporter: exporter,
		results:  results,
		agg:      aggregate.NewAggregator(logger),
		logger:   logger.WithComponent("packs"),
		byType:   make(map[string]*packsim.Bank),
		byID:     make(map[core.BankID]*packsim.Bank),
	}
}

// PoolTable restricts transactions to moments minted inside the configured
// pack-pool window, when there is one
func (s *PackService) PoolTable(t *market.Table) *market.Table {
	if w, ok := s.tables.PackPoolWindow(); ok {
		return packsim.MintedWithin(t, w)
	}
	return t
}

// Build draws a bank for every pack type. Pack type i uses seed+i. Pool
// shortfalls and catalog mismatches fail the whole build.
func (s *PackService) Build(ctx context.Context, snap *Snapshot, seed uint64) ([]BankInfo, error) {
	poolTable := s.PoolTable(snap.Transactions)
	pools := packsim.BuildPools(poolTable)
	items, err := s.agg.ItemSummary(poolTable)
	if err != nil {
		return nil, err
	}
	averages, err := packsim.TierAverages(items)
	if err != nil {
		return nil, err
	}

	byType := make(map[string]*packsim.Bank, len(s.tables.PackTypes))
	infos := make([]BankInfo, 0, len(s.tables.PackTypes))
	for i, pt := range s.tables.PackTypes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pt, err := ApplyCatalog(pt, snap.Catalog)
		if err != nil {
			return nil, err
		}
		sim, err := packsim.NewSimulator(pt, pools, s.logger)
		if err != nil {
			return nil, err
		}
		bank, err := packsim.BuildBank(sim, pt.BankSize, seed+uint64(i))
		if err != nil {
			return nil, err
		}
		info := BankInfo{ID: bank.ID, PackType: bank.PackType, Cost: bank.Cost, Size: bank.Len(), Seed: bank.Seed}
		if s.banks != nil {
			if err := s.banks.SaveBank(ctx, bank); err != nil {
				return nil, err
			}
		}
		if s.exporter != nil {
			if info.ExportPath, err = s.exporter.Export(bank); err != nil {
				return nil, err
			}
		}
		byType[pt.Name] = bank
		infos = append(infos, info)
	}

	byID := make(map[core.BankID]*packsim.Bank, len(byType))
	for _, bank := range byType {
		byID[bank.ID] = bank
	}
	s.mu.Lock()
	s.byType = byType
	s.byID = byID
	s.averages = averages
	s.rng = packsim.NewRand(seed ^ 0x5eed)
	s.mu.Unlock()

	if err := s.storeValues(ctx); err != nil {
		return nil, err
	}
	return infos, nil
}

// ApplyCatalog overrides a pack type's cost from the catalog and checks
// its slots only use tiers the catalog allows. Entries without tiers allow
// every tier.
func ApplyCatalog(pt market.PackType, catalog []market.CatalogEntry) (market.PackType, error) {
	for _, entry := range catalog {
		if entry.PackType != pt.Name {
			continue
		}
		if entry.Cost > 0 {
			pt.Cost = entry.Cost
		}
		if len(entry.Tiers) == 0 {
			continue
		}
		for _, roll := range pt.Rolls {
			for _, slot := range roll.Slots {
				if !entry.Includes(slot.Tier) {
					return pt, fmt.Errorf("%w: %s packs cannot contain %s moments", core.ErrConfiguration, pt.Name, slot.Tier)
				}
			}
		}
	}
	return pt, nil
}

func (s *PackService) bank(packType string) (*packsim.Bank, error) {
	if _, err := s.tables.PackType(packType); err != nil {
		return nil, err
	}
	bank, ok := s.byType[packType]
	if !ok {
		return nil, fmt.Errorf("%w: no %s bank built", core.ErrNotFound, packType)
	}
	return bank, nil
}

func view(bank *packsim.Bank, b packsim.Bundle, averages packsim.Averages) *Draw {
	return &Draw{
		BankID:       bank.ID,
		Bundle:       b,
		Hit:          b.HitLabel(),
		Cost:         bank.Cost,
		Profit:       b.Profit(bank.Cost),
		AverageValue: stats.Value(packsim.AverageValue(b, averages)),
	}
}

// Draw returns a uniformly chosen bundle of the pack type's bank
func (s *PackService) Draw(packType string) (*Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.bank(packType)
	if err != nil {
		return nil, err
	}
	metrics.PackDrawn(packType)
	return view(bank, bank.Pick(s.rng), s.averages), nil
}

// DrawAt returns bundle index of the pack type's current bank
func (s *PackService) DrawAt(packType string, index int) (*Draw, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bank, err := s.bank(packType)
	if err != nil {
		return nil, err
	}
	b, err := bank.At(index)
	if err != nil {
		return nil, err
	}
	return view(bank, b, s.averages), nil
}

// BankDraw returns a bundle of a current bank, falling back to the bank
// repository for banks replaced by a later build
func (s *PackService) BankDraw(ctx context.Context, id core.BankID, index int) (*Draw, error) {
	s.mu.Lock()
	bank, ok := s.byID[id]
	averages := s.averages
	s.mu.Unlock()
	if ok {
		b, err := bank.At(index)
		if err != nil {
			return nil, err
		}
		return view(bank, b, averages), nil
	}
	if s.banks == nil {
		return nil, fmt.Errorf("%w: bank %s", core.ErrDrawNotFound, id)
	}
	b, err := s.banks.GetBundle(ctx, id, index)
	if err != nil {
		return nil, err
	}
	return &Draw{BankID: id, Bundle: b, Hit: b.HitLabel(), AverageValue: stats.Null()}, nil
}

// Values estimates every built pack type's worth
func (s *PackService) Values() []PackValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]PackValue, 0, len(s.tables.PackTypes))
	for _, pt := range s.tables.PackTypes {
		bank, ok := s.byType[pt.Name]
		if !ok {
			continue
		}
		out = append(out, PackValue{
			PackType:      pt.Name,
			Cost:          bank.Cost,
			ExpectedValue: stats.Value(expectedValue(pt, s.averages)),
			BankMeanTotal: stats.Value(meanTotal(bank)),
			Averages:      s.averages,
		})
	}
	return out
}

func expectedValue(pt market.PackType, avg packsim.Averages) float64 {
	expected := make(map[market.Tier]float64)
	probs := pt.Probabilities()
	for i, roll := range pt.Rolls {
		for _, slot := range roll.Slots {
			expected[slot.Tier] += probs[i] * float64(slot.Count)
		}
	}
	return packsim.RewardValue(expected, avg)
}

func meanTotal(bank *packsim.Bank) float64 {
	var sum float64
	_ = bank.Each(func(b packsim.Bundle) error {
		sum += b.Total
		return nil
	})
	return sum / float64(bank.Len())
}

func (s *PackService) storeValues(ctx context.Context) error {
	if s.results == nil {
		return nil
	}
	now := time.Now()
	var results []run.Result
	for _, v := range s.Values() {
		key := core.NewCacheKey(run.KindPackValue, "pack_type", v.PackType)
		res, err := run.NewResult(key, run.KindPackValue, "", v, now)
		if err != nil {
			return err
		}
		results = append(results, res)
	}
	return s.results.SaveResults(ctx, results)
}
