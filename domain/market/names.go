package market

import "strings"

// NameMapping reconciles player display-name variants between the
// marketplace export and the statistics source.
type NameMapping struct {
	canonical map[string]string
}

// NewNameMapping builds a mapping. Keys and values are trimmed, so a
// variant recorded with stray whitespace still matches.
func NewNameMapping(variants map[string]string) NameMapping {
	canonical := make(map[string]string, len(variants))
	for from, to := range variants {
		canonical[strings.TrimSpace(from)] = strings.TrimSpace(to)
	}
	return NameMapping{canonical: canonical}
}

// Canonical returns the canonical spelling of a player name
func (m NameMapping) Canonical(name string) string {
	trimmed := strings.TrimSpace(name)
	if to, ok := m.canonical[trimmed]; ok {
		return to
	}
	return trimmed
}

// Len returns the number of variants
func (m NameMapping) Len() int {
	return len(m.canonical)
}
