package market

import (
	"fmt"
	"strings"
)

// Tier is the ordered rarity tier of a Moment
type Tier int

const (
	TierUnknown Tier = iota
	TierCommon
	TierRare
	TierLegendary
	TierUltimate
)

var tierNames = map[Tier]string{
	TierCommon:    "COMMON",
	TierRare:      "RARE",
	TierLegendary: "LEGENDARY",
	TierUltimate:  "ULTIMATE",
}

// Tiers returns every known tier in ascending rarity
func Tiers() []Tier {
	return []Tier{TierCommon, TierRare, TierLegendary, TierUltimate}
}

// ParseTier parses a rarity label case-insensitively
func ParseTier(s string) (Tier, error) {
	upper := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range tierNames {
		if name == upper {
			return t, nil
		}
	}
	return TierUnknown, fmt.Errorf("unknown rarity tier %q", s)
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Title returns the tier in title case, e.g. "Rare"
func (t Tier) Title() string {
	name := t.String()
	return name[:1] + strings.ToLower(name[1:])
}

// MarshalText implements encoding.TextMarshaler
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *Tier) UnmarshalText(b []byte) error {
	parsed, err := ParseTier(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
