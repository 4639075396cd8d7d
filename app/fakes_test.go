package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"allday/domain/core"
	"allday/domain/market"
	"allday/domain/run"
	"allday/internal"
	"allday/internal/cache"
	"allday/internal/config"
	"allday/internal/packsim"
	"allday/internal/testkit"

	"github.com/stretchr/testify/require"
)

type memoryResults struct {
	mu    sync.Mutex
	saved map[string]run.Result
	calls int
}

func newMemoryResults() *memoryResults {
	return &memoryResults{saved: make(map[string]run.Result)}
}

func (m *memoryResults) SaveResults(_ context.Context, results []run.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	for _, r := range results {
		m.saved[r.Key] = r
	}
	return nil
}

func (m *memoryResults) GetResult(_ context.Context, key string) (*run.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.saved[key]
	if !ok {
		return nil, fmt.Errorf("%w %q", core.ErrResultNotFound, key)
	}
	return &r, nil
}

func (m *memoryResults) ListKeys(_ context.Context, kind string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k, r := range m.saved {
		if kind == "" || r.Kind == kind {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out, nil
}

type memoryRuns struct {
	started  []run.Run
	finished []run.Run
}

func (m *memoryRuns) StartRun(_ context.Context, r *run.Run) error {
	m.started = append(m.started, *r)
	return nil
}

func (m *memoryRuns) FinishRun(_ context.Context, r *run.Run) error {
	m.finished = append(m.finished, *r)
	return nil
}

func (m *memoryRuns) GetRun(_ context.Context, id core.RunID) (*run.Run, error) {
	for _, r := range m.finished {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memoryRuns) LatestRun(_ context.Context) (*run.Run, error) {
	if len(m.finished) == 0 {
		return nil, core.ErrNotFound
	}
	r := m.finished[len(m.finished)-1]
	return &r, nil
}

type memoryBanks struct {
	banks map[core.BankID]*packsim.Bank
}

func (m *memoryBanks) SaveBank(_ context.Context, bank *packsim.Bank) error {
	if m.banks == nil {
		m.banks = make(map[core.BankID]*packsim.Bank)
	}
	m.banks[bank.ID] = bank
	return nil
}

func (m *memoryBanks) GetBundle(_ context.Context, id core.BankID, index int) (packsim.Bundle, error) {
	bank, ok := m.banks[id]
	if !ok {
		return packsim.Bundle{}, core.ErrDrawNotFound
	}
	return bank.At(index)
}

type recordingExporter struct {
	exported []string
}

func (r *recordingExporter) Export(bank *packsim.Bank) (string, error) {
	path := "/exports/" + strings.ToLower(bank.PackType) + ".parquet"
	r.exported = append(r.exported, path)
	return path, nil
}

func loadTables(t *testing.T) *config.Tables {
	t.Helper()
	tables, err := config.LoadTables("")
	require.NoError(t, err)
	return tables
}

func newMemo(t *testing.T) *cache.Memo {
	t.Helper()
	memo, err := cache.New(32768, time.Hour, internal.NewNopLogger())
	require.NoError(t, err)
	return memo
}

// marketSnapshot is a small generated market, prepared like a loaded one.
// Every moment is minted inside the pack-pool window.
func marketSnapshot(t *testing.T, tables *config.Tables) *Snapshot {
	t.Helper()
	cfg := testkit.DefaultMarketConfig()
	cfg.MomentCount = 40
	cfg.AvgSalesPerMoment = 6
	cfg.TierWeights = map[market.Tier]int{market.TierCommon: 60, market.TierRare: 30, market.TierLegendary: 10}
	rows := testkit.NewMarketGenerator(cfg).Generate()
	minted := testkit.At(2022, time.September, 28, 12, 0)
	for i := range rows {
		rows[i].MintedAt = minted
	}
	table := testkit.Table(rows...)

	svc := NewSnapshotService(nil, config.DataConfig{}, tables, internal.NewNopLogger())
	return &Snapshot{
		Transactions: svc.Prepare(table, nil),
		Challenges: []market.Challenge{{
			Name:      "Week 2 Quarterbacks",
			Week:      2,
			Start:     testkit.At(2022, time.September, 15, 20, 15),
			End:       testkit.At(2022, time.September, 18, 20, 15),
			Positions: []string{"QB"},
			Rewards: []market.RewardTier{
				{Name: "top", Proportion: 1, Contents: map[market.Tier]int{market.TierRare: 1}},
			},
		}},
		InputsHash: core.NewHash([]byte("generated market")),
	}
}
