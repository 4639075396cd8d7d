package market

// PlayerStat is one weekly stat line. Week is zero for season totals.
type PlayerStat struct {
	PlayerID         string
	Name             string
	Position         string
	Team             string
	Season           int
	Week             int
	FantasyPointsPPR float64
	PassingTDs       int
	PassingYards     float64
	ReceivingTDs     int
	ReceivingYards   float64
	RushingTDs       int
	RushingYards     float64
}

// TotalTDs sums passing, receiving and rushing touchdowns
func (s PlayerStat) TotalTDs() int {
	return s.PassingTDs + s.ReceivingTDs + s.RushingTDs
}

// StatKey identifies a stat line by canonical player name, season and week
type StatKey struct {
	Name   string
	Season int
	Week   int
}

// StatIndex looks weekly lines up by canonical name
type StatIndex struct {
	lines map[StatKey]PlayerStat
}

// NewStatIndex indexes stat lines after normalizing names through mapping
func NewStatIndex(stats []PlayerStat, mapping NameMapping) *StatIndex {
	idx := &StatIndex{lines: make(map[StatKey]PlayerStat, len(stats))}
	for _, s := range stats {
		key := StatKey{Name: mapping.Canonical(s.Name), Season: s.Season, Week: s.Week}
		idx.lines[key] = s
	}
	return idx
}

// Lookup returns the line for a canonical name
func (idx *StatIndex) Lookup(name string, season, week int) (PlayerStat, bool) {
	s, ok := idx.lines[StatKey{Name: name, Season: season, Week: week}]
	return s, ok
}

// Len returns the number of indexed lines
func (idx *StatIndex) Len() int {
	return len(idx.lines)
}
