package config

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"
	_ "time/tzdata"

	"allday/domain/core"
	"allday/domain/market"
	"allday/internal/errors"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var defaultTables []byte

// Tables holds the static calendar, naming and catalog data. It is parsed
// once at startup and passed by reference; nothing mutates it afterwards.
type Tables struct {
	Timezone       string            `yaml:"timezone"`
	Season         int               `yaml:"season"`
	PreseasonStart string            `yaml:"preseason_start"`
	Weeks          []WeekTiming      `yaml:"weeks"`
	Games          []GameTiming      `yaml:"games"`
	PackDrops      []DropTiming      `yaml:"pack_drops"`
	PlayerNames    map[string]string `yaml:"player_names"`
	PackTypes      []market.PackType `yaml:"pack_types"`
	Challenges     []ChallengeTiming `yaml:"challenges,omitempty"`
	PackPool       *DropTiming       `yaml:"pack_pool,omitempty"`

	loc  *time.Location
	hash core.Hash
}

// WeekTiming is one NFL week as a pair of dates
type WeekTiming struct {
	Week  int    `yaml:"week"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// GameTiming is one game slot within a week
type GameTiming struct {
	Week  int    `yaml:"week"`
	Name  string `yaml:"name"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// DropTiming is a pack drop; the end minute is inclusive
type DropTiming struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// ChallengeTiming declares a challenge directly in the tables file
type ChallengeTiming struct {
	Name      string              `yaml:"name"`
	Week      int                 `yaml:"week"`
	Start     string              `yaml:"start"`
	End       string              `yaml:"end"`
	Players   []string            `yaml:"players"`
	Positions []string            `yaml:"positions"`
	Rewards   []market.RewardTier `yaml:"rewards"`
}

// LoadTables reads the tables file at path, or the embedded defaults when
// path is empty
func LoadTables(path string) (*Tables, error) {
	data := defaultTables
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read tables file %s", path)
		}
		data = b
	}
	return ParseTables(data)
}

// ParseTables decodes and validates a tables document
func ParseTables(data []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, errors.Wrap(errors.ConfigInvalid(err.Error()), "cannot parse tables YAML")
	}
	if t.Timezone == "" {
		t.Timezone = "America/New_York"
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "bad timezone %q", t.Timezone)
	}
	t.loc = loc
	t.hash = core.NewHash(data)
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

// Location returns the zone used for dates without an offset
func (t *Tables) Location() *time.Location {
	return t.loc
}

// Hash identifies the tables document a run was computed with
func (t *Tables) Hash() core.Hash {
	return t.hash
}

func (t *Tables) validate() error {
	sort.Slice(t.Weeks, func(i, j int) bool { return t.Weeks[i].Week < t.Weeks[j].Week })
	for _, w := range t.Weeks {
		if _, err := t.window(fmt.Sprintf("week %d", w.Week), w.Start, w.End, false); err != nil {
			return err
		}
	}
	for _, g := range t.Games {
		if _, err := t.window(g.Name, g.Start, g.End, false); err != nil {
			return err
		}
	}
	for _, d := range t.PackDrops {
		if _, err := t.window("pack drop", d.Start, d.End, true); err != nil {
			return err
		}
	}
	if t.PackPool != nil {
		if _, err := t.window("pack pool", t.PackPool.Start, t.PackPool.End, false); err != nil {
			return err
		}
	}
	seen := make(map[string]bool)
	for _, p := range t.PackTypes {
		if p.Name == "" || seen[p.Name] {
			return errors.ConfigInvalid(fmt.Sprintf("pack type name %q is empty or duplicated", p.Name))
		}
		seen[p.Name] = true
		if p.BankSize <= 0 {
			return errors.ConfigInvalid(fmt.Sprintf("pack type %s: bank_size must be positive", p.Name))
		}
		if len(p.Rolls) == 0 {
			return errors.Wrapf(core.ErrInvalidProportion, "pack type %s has no rolls", p.Name)
		}
		for _, r := range p.Rolls {
			if r.Weight <= 0 || r.Tier == market.TierUnknown {
				return errors.Wrapf(core.ErrInvalidProportion, "pack type %s: bad roll %s weight %v", p.Name, r.Tier, r.Weight)
			}
			if r.Size() == 0 {
				return errors.ConfigInvalid(fmt.Sprintf("pack type %s: roll %s has no slots", p.Name, r.Tier))
			}
		}
	}
	return nil
}

// ParseTime accepts RFC3339, "2006-01-02 15:04" or "2006-01-02"; the last
// two are read in the tables' timezone
func (t *Tables) ParseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	for _, layout := range []string{"2006-01-02 15:04", "2006-01-02"} {
		if ts, err := time.ParseInLocation(layout, s, t.loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, errors.ConfigInvalid(fmt.Sprintf("unparseable time %q", s))
}

func (t *Tables) window(name, start, end string, inclusive bool) (core.Window, error) {
	s, err := t.ParseTime(start)
	if err != nil {
		return core.Window{}, err
	}
	e, err := t.ParseTime(end)
	if err != nil {
		return core.Window{}, err
	}
	if !e.After(s) {
		return core.Window{}, errors.ConfigInvalid(fmt.Sprintf("window %s ends before it starts", name))
	}
	w := core.NewWindow(name, s, e)
	w.InclusiveEnd = inclusive
	return w, nil
}

// DateRanges returns every named date-range window: All Time, the full
// season, single weeks, cumulative "since" ranges and pack drops
func (t *Tables) DateRanges() []core.Window {
	var out []core.Window
	out = append(out,
		core.NewWindow(AllTime, time.Time{}, time.Time{}),
		core.NewWindow(AllDates, time.Time{}, time.Time{}),
	)
	if pre, err := t.ParseTime(t.PreseasonStart); err == nil {
		out = append(out, core.Since(fmt.Sprintf("Since %d preseason", t.Season), pre))
	}
	for i, w := range t.Weeks {
		win, _ := t.window(WeekRange(t.Season, w.Week), w.Start, w.End, false)
		if i == 0 {
			out = append(out, core.Since(FullSeason(t.Season), win.Start))
		}
		out = append(out, win, core.Since(SinceWeek(t.Season, w.Week), win.Start))
	}
	out = append(out, t.PackDropWindows()...)
	return out
}

// MainDateRanges are the ranges the price-driver sweep runs over
func (t *Tables) MainDateRanges() []string {
	out := []string{AllTime, FullSeason(t.Season)}
	for _, w := range t.Weeks {
		out = append(out, WeekRange(t.Season, w.Week))
	}
	return out
}

// SinceDateRanges are the cumulative ranges used for play and pack summaries
func (t *Tables) SinceDateRanges() []string {
	out := []string{AllDates, fmt.Sprintf("Since %d preseason", t.Season)}
	for _, w := range t.Weeks {
		out = append(out, SinceWeek(t.Season, w.Week))
	}
	return out
}

// GameWindows returns one window per game slot, named "week_<n>_<slot>"
func (t *Tables) GameWindows() []core.Window {
	out := make([]core.Window, 0, len(t.Games))
	for _, g := range t.Games {
		w, _ := t.window(GameWindowName(g.Week, g.Name), g.Start, g.End, false)
		out = append(out, w)
	}
	return out
}

// PackDropWindows returns the inclusive drop windows named by start date
func (t *Tables) PackDropWindows() []core.Window {
	out := make([]core.Window, 0, len(t.PackDrops))
	for _, d := range t.PackDrops {
		w, _ := t.window("", d.Start, d.End, true)
		out = append(out, w.Renamed(DropName(w.Start)))
	}
	return out
}

// PackPoolWindow is the mint window whose moments feed the pack simulator.
// ok is false when every transaction is eligible.
func (t *Tables) PackPoolWindow() (w core.Window, ok bool) {
	if t.PackPool == nil {
		return core.Window{}, false
	}
	w, _ = t.window("pack pool", t.PackPool.Start, t.PackPool.End, false)
	return w, true
}

// NameMapping returns the player-name reconciliation table
func (t *Tables) NameMapping() market.NameMapping {
	return market.NewNameMapping(t.PlayerNames)
}

// PackType looks a pack type up by name
func (t *Tables) PackType(name string) (market.PackType, error) {
	for _, p := range t.PackTypes {
		if p.Name == name {
			return p, nil
		}
	}
	return market.PackType{}, fmt.Errorf("%w %q", core.ErrUnknownPackType, name)
}

// ConfiguredChallenges converts the challenges declared in the tables file
func (t *Tables) ConfiguredChallenges() ([]market.Challenge, error) {
	out := make([]market.Challenge, 0, len(t.Challenges))
	for _, c := range t.Challenges {
		w, err := t.window(c.Name, c.Start, c.End, false)
		if err != nil {
			return nil, err
		}
		out = append(out, market.Challenge{
			Name:      c.Name,
			Start:     w.Start,
			End:       w.End,
			Week:      c.Week,
			Players:   c.Players,
			Positions: c.Positions,
			Rewards:   c.Rewards,
		})
	}
	return out, nil
}

// Window naming
const (
	AllTime  = "All Time"
	AllDates = "All dates"
)

func FullSeason(season int) string { return fmt.Sprintf("%d Full Season", season) }

func WeekRange(season, week int) string { return fmt.Sprintf("%d Week %d", season, week) }

func SinceWeek(season, week int) string { return fmt.Sprintf("Since %d Week %d", season, week) }

func GameWindowName(week int, slot string) string { return fmt.Sprintf("week_%d_%s", week, slot) }

func DropName(start time.Time) string { return "Drop " + start.Format("2006-01-02") }
