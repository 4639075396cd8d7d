package market

// Slot is a number of moments of one tier in a pack
type Slot struct {
	Tier  Tier `yaml:"tier" json:"tier"`
	Count int  `yaml:"count" json:"count"`
}

// CatalogEntry is one row of the pack catalog
type CatalogEntry struct {
	PackType string  `json:"pack_type"`
	Series   string  `json:"series"`
	Cost     float64 `json:"cost"`
	Supply   int     `json:"supply"`
	// Tiers lists the rarity tiers a pack of this type can contain
	Tiers []Tier `json:"tiers"`
}

// Includes reports whether the catalog entry allows a tier
func (e CatalogEntry) Includes(t Tier) bool {
	for _, allowed := range e.Tiers {
		if allowed == t {
			return true
		}
	}
	return false
}

// Roll is one outcome of the pack tier roll and the slots it fills
type Roll struct {
	Tier   Tier    `yaml:"tier" json:"tier"`
	Weight float64 `yaml:"weight" json:"weight"`
	Slots  []Slot  `yaml:"slots" json:"slots"`
}

// Size returns the number of moments a roll yields
func (r Roll) Size() int {
	n := 0
	for _, s := range r.Slots {
		n += s.Count
	}
	return n
}

// PackType is a configured pack: its price, bank size and tier rolls
type PackType struct {
	Name     string  `yaml:"name" json:"name"`
	Cost     float64 `yaml:"cost" json:"cost"`
	BankSize int     `yaml:"bank_size" json:"bank_size"`
	Rolls    []Roll  `yaml:"rolls" json:"rolls"`
}

// Probabilities normalizes roll weights so they sum to one
func (p PackType) Probabilities() []float64 {
	total := 0.0
	for _, r := range p.Rolls {
		total += r.Weight
	}
	out := make([]float64, len(p.Rolls))
	for i, r := range p.Rolls {
		out[i] = r.Weight / total
	}
	return out
}

// Requirements returns, per tier, the largest slot count any roll needs
func (p PackType) Requirements() map[Tier]int {
	need := make(map[Tier]int)
	for _, r := range p.Rolls {
		perRoll := make(map[Tier]int)
		for _, s := range r.Slots {
			perRoll[s.Tier] += s.Count
		}
		for t, n := range perRoll {
			if n > need[t] {
				need[t] = n
			}
		}
	}
	return need
}
