package packsim

import (
	"fmt"
	"math/rand/v2"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal"

	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"
)

// Bundle is the outcome of opening one pack
type Bundle struct {
	Index    int         `json:"index"`
	PackType string      `json:"pack_type"`
	Rolled   market.Tier `json:"rolled_tier"`
	Items    []Item      `json:"items"`
	Total    float64     `json:"total"`
}

// Hit is the highest tier present in the bundle
func (b Bundle) Hit() market.Tier {
	hit := market.TierUnknown
	for _, it := range b.Items {
		if it.Tier > hit {
			hit = it.Tier
		}
	}
	return hit
}

// HitLabel names the bundle after its best moment: Common, Rare, ...
func (b Bundle) HitLabel() string {
	return b.Hit().Title()
}

// Counts returns the number of moments per tier
func (b Bundle) Counts() map[market.Tier]int {
	out := make(map[market.Tier]int)
	for _, it := range b.Items {
		out[it.Tier]++
	}
	return out
}

// Profit is the bundle's total sale value less the pack cost
func (b Bundle) Profit(cost float64) float64 {
	return b.Total - cost
}

func (b Bundle) clone() Bundle {
	b.Items = append([]Item(nil), b.Items...)
	return b
}

// Simulator opens packs of one type from fixed pools
type Simulator struct {
	pack    market.PackType
	pools   Pools
	weights []float64
	logger  *internal.Logger
}

// NewSimulator checks that every tier a roll can ask for has enough rows
// to fill a pack without replacement. Short or missing pools are
// configuration errors.
func NewSimulator(pack market.PackType, pools Pools, logger *internal.Logger) (*Simulator, error) {
	if len(pack.Rolls) == 0 {
		return nil, fmt.Errorf("%w: pack type %s has no rolls", core.ErrInvalidProportion, pack.Name)
	}
	total := 0.0
	for _, r := range pack.Rolls {
		if r.Weight < 0 {
			return nil, fmt.Errorf("%w: pack type %s roll %s has negative weight", core.ErrInvalidProportion, pack.Name, r.Tier)
		}
		total += r.Weight
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: pack type %s has no positive weight", core.ErrInvalidProportion, pack.Name)
	}

	for tier, need := range pack.Requirements() {
		have := pools.Size(tier)
		if have == 0 {
			return nil, fmt.Errorf("%w: pack type %s needs %s moments", core.ErrMissingPoolTier, pack.Name, tier)
		}
		if have < need {
			return nil, core.NewPoolExhaustedError(tier.String(), need, have)
		}
	}

	weights := make([]float64, len(pack.Rolls))
	for i, r := range pack.Rolls {
		weights[i] = r.Weight
	}
	logger = logger.WithComponent("packsim")
	logger.Debug("simulator %s ready: pools %v", pack.Name, poolSizes(pools))
	return &Simulator{pack: pack, pools: pools, weights: weights, logger: logger}, nil
}

func poolSizes(p Pools) map[string]int {
	out := make(map[string]int, len(p))
	for tier, items := range p {
		out[tier.String()] = len(items)
	}
	return out
}

// Pack returns the simulated pack type
func (s *Simulator) Pack() market.PackType { return s.pack }

// Draw rolls the pack tier, then fills each slot from its tier pool.
// Rows are never repeated within one draw.
func (s *Simulator) Draw(rng *rand.Rand) Bundle {
	roll := s.pack.Rolls[int(distuv.NewCategorical(s.weights, rng).Rand())]

	picked := make(map[market.Tier][]int)
	for tier, n := range tierCounts(roll) {
		idx := make([]int, n)
		sampleuv.WithoutReplacement(idx, s.pools.Size(tier), rng)
		picked[tier] = idx
	}

	b := Bundle{PackType: s.pack.Name, Rolled: roll.Tier, Items: make([]Item, 0, roll.Size())}
	for _, slot := range roll.Slots {
		for i := 0; i < slot.Count; i++ {
			it := s.pools[slot.Tier][picked[slot.Tier][0]]
			picked[slot.Tier] = picked[slot.Tier][1:]
			b.Items = append(b.Items, it)
			b.Total += it.Price
		}
	}
	return b
}

func tierCounts(r market.Roll) map[market.Tier]int {
	out := make(map[market.Tier]int)
	for _, s := range r.Slots {
		if s.Count > 0 {
			out[s.Tier] += s.Count
		}
	}
	return out
}
