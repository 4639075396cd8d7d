package market

import (
	"time"
)

// RewardTier describes one reward bracket of a challenge: the share of
// reward packs in the bracket and the expected moments per tier in each pack.
type RewardTier struct {
	Name       string       `yaml:"name" json:"name"`
	Packs      int          `yaml:"packs" json:"packs"`
	Proportion float64      `yaml:"proportion" json:"proportion"`
	Contents   map[Tier]int `yaml:"contents" json:"contents"`
}

// Challenge is a time-boxed promotion with eligibility rules
type Challenge struct {
	Name      string
	Start     time.Time
	End       time.Time
	Week      int
	Players   []string
	Positions []string
	Rewards   []RewardTier
}

// Eligible reports whether a transaction's moment counts toward the challenge.
// Empty player and position lists accept everything.
func (c *Challenge) Eligible(tx *Transaction, mapping NameMapping) bool {
	if len(c.Positions) > 0 && !contains(c.Positions, tx.Position) {
		return false
	}
	if len(c.Players) == 0 {
		return true
	}
	name := mapping.Canonical(tx.Player)
	for _, p := range c.Players {
		if mapping.Canonical(p) == name {
			return true
		}
	}
	return false
}

// ExpectedContents weights every reward tier's contents by its proportion
func (c *Challenge) ExpectedContents() map[Tier]float64 {
	out := make(map[Tier]float64)
	for _, r := range c.Rewards {
		for tier, n := range r.Contents {
			out[tier] += r.Proportion * float64(n)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
