package market

import (
	"regexp"
	"strings"
)

// ScoringVariant names one touchdown-determination flag
type ScoringVariant string

const (
	DescriptionTD    ScoringVariant = "description_td"
	PlayByPlayTD     ScoringVariant = "pbp_td"
	GameTD           ScoringVariant = "game_td"
	ScoredTDInMoment ScoringVariant = "scored_td_in_moment"
	ScoredTDInGame   ScoringVariant = "scored_td_in_game"
)

var scoringLabels = map[ScoringVariant]string{
	ScoredTDInMoment: "Best Guess (Moment TD)",
	PlayByPlayTD:     "Conservative (Moment TD)",
	DescriptionTD:    "Description only (Moment TD)",
	ScoredTDInGame:   "Best Guess: (In-game TD)",
	GameTD:           "Conservative (In-game TD)",
}

// ScoringVariants lists every variant in the order materialization sweeps them
func ScoringVariants() []ScoringVariant {
	return []ScoringVariant{ScoredTDInMoment, ScoredTDInGame, PlayByPlayTD, DescriptionTD, GameTD}
}

// Label is the human readable name used in result tables
func (v ScoringVariant) Label() string {
	if l, ok := scoringLabels[v]; ok {
		return l
	}
	return string(v)
}

// Composite is a best-guess variant that prefers Primary and falls back to
// Fallback only when Primary is null.
type Composite struct {
	Name     ScoringVariant
	Primary  ScoringVariant
	Fallback ScoringVariant
}

// Composites returns the best-guess definitions
func Composites() []Composite {
	return []Composite{
		{Name: ScoredTDInMoment, Primary: PlayByPlayTD, Fallback: DescriptionTD},
		{Name: ScoredTDInGame, Primary: GameTD, Fallback: DescriptionTD},
	}
}

// Resolve evaluates the composite for one transaction
func (c Composite) Resolve(tx *Transaction) Flag {
	return tx.Flag(string(c.Primary)).Or(tx.Flag(string(c.Fallback)))
}

var scoringPlayTypes = []string{
	"Pass", "Reception", "Rush", "Strip Sack", "Interception",
	"Fumble Recovery", "Blocked Kick", "Punt Return", "Kick Return",
}

// ScoringPlayTypes returns a copy of the play types that can depict a score
func ScoringPlayTypes() []string {
	out := make([]string, len(scoringPlayTypes))
	copy(out, scoringPlayTypes)
	return out
}

// IsScoringPlayType reports whether a play type can depict a touchdown
func IsScoringPlayType(playType string) bool {
	for _, p := range scoringPlayTypes {
		if strings.EqualFold(p, playType) {
			return true
		}
	}
	return false
}

var touchdownPattern = regexp.MustCompile(`(?i)\b(?:TD|touchdown)\b`)

// DescribesTouchdown is the description text heuristic. Non-scoring play
// types are false; a scoring play with no description is null.
func DescribesTouchdown(playType, description string) Flag {
	if !IsScoringPlayType(playType) {
		return FlagFalse
	}
	if strings.TrimSpace(description) == "" {
		return FlagNull
	}
	return FlagOf(touchdownPattern.MatchString(description))
}
