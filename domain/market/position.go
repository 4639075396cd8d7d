package market

// Position groupings used when splitting the market by role
const (
	GroupAll     = "All"
	GroupOffense = "Offense"
	GroupDefense = "Defense"
	GroupTeam    = "Team"
)

var (
	offensePositions = []string{"QB", "WR", "RB", "TE", "OL"}
	defensePositions = []string{"DB", "DL", "LB"}
	teamPositions    = []string{"Team"}
)

var positionGroups = func() map[string]string {
	m := make(map[string]string)
	for _, p := range offensePositions {
		m[p] = GroupOffense
	}
	for _, p := range defensePositions {
		m[p] = GroupDefense
	}
	for _, p := range teamPositions {
		m[p] = GroupTeam
	}
	return m
}()

// PositionGroupOf maps a position to Offense, Defense or Team.
// Unmapped positions return "".
func PositionGroupOf(position string) string {
	return positionGroups[position]
}

// PositionType selects how the market is split for a comparison family
type PositionType string

const (
	ByPosition PositionType = "By Position"
	ByGroup    PositionType = "By Group"
	ByRarity   PositionType = "By Rarity"
)

// PositionTypes lists every split in materialization order
func PositionTypes() []PositionType {
	return []PositionType{ByPosition, ByGroup, ByRarity}
}

// Column returns the column a position type splits on
func (p PositionType) Column() Column {
	switch p {
	case ByGroup:
		return ColPositionGroup
	case ByRarity:
		return ColTier
	default:
		return ColPosition
	}
}

// Groups returns the group values swept for a position type. GroupAll
// stands for the unsplit table.
func (p PositionType) Groups() []string {
	switch p {
	case ByGroup:
		return []string{GroupAll, GroupOffense, GroupDefense, GroupTeam}
	case ByRarity:
		out := make([]string, 0, 4)
		for _, t := range Tiers() {
			out = append(out, t.String())
		}
		return out
	default:
		out := []string{GroupAll}
		out = append(out, offensePositions...)
		out = append(out, defensePositions...)
		return append(out, teamPositions...)
	}
}
