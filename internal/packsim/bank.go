package packsim

import (
	"fmt"
	"math/rand/v2"

	"allday/domain/core"
)

// Bank is a fixed set of pre-drawn bundles for one pack type. It is
// immutable once built: At(i) always returns the same bundle.
type Bank struct {
	ID       core.BankID
	PackType string
	Cost     float64
	Seed     uint64
	bundles  []Bundle
}

// NewRand returns the deterministic generator used for a seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// BuildBank draws n independent bundles from sim. The same seed always
// yields the same bank.
func BuildBank(sim *Simulator, n int, seed uint64) (*Bank, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: bank size %d for %s", core.ErrConfiguration, n, sim.pack.Name)
	}
	rng := NewRand(seed)
	bundles := make([]Bundle, n)
	for i := range bundles {
		b := sim.Draw(rng)
		b.Index = i
		bundles[i] = b
	}
	sim.logger.Info("built %s bank of %d bundles (seed %d)", sim.pack.Name, n, seed)
	return &Bank{
		ID:       core.NewBankID(),
		PackType: sim.pack.Name,
		Cost:     sim.pack.Cost,
		Seed:     seed,
		bundles:  bundles,
	}, nil
}

// Len returns the number of bundles
func (b *Bank) Len() int { return len(b.bundles) }

// At returns bundle i
func (b *Bank) At(i int) (Bundle, error) {
	if i < 0 || i >= len(b.bundles) {
		return Bundle{}, fmt.Errorf("%w: %s bundle %d of %d", core.ErrDrawNotFound, b.PackType, i, len(b.bundles))
	}
	return b.bundles[i].clone(), nil
}

// Pick returns a bundle chosen uniformly by index
func (b *Bank) Pick(rng *rand.Rand) Bundle {
	return b.bundles[rng.IntN(len(b.bundles))].clone()
}

// Each visits every bundle in index order
func (b *Bank) Each(fn func(Bundle) error) error {
	for _, bundle := range b.bundles {
		if err := fn(bundle.clone()); err != nil {
			return err
		}
	}
	return nil
}
