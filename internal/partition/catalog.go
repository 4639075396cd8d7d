package partition

import (
	"fmt"
	"time"

	"allday/domain/core"
)

// BufferWidth is the length of the pre/post buffer around a game or challenge
const BufferWidth = 24 * time.Hour

// Derived window names
const (
	PreGame         = "pre_game_1d"
	DuringGame      = "during_game"
	PostGame        = "post_game_1d"
	PreChallenge    = "pre_challenge_1d"
	DuringChallenge = "during_challenge"
	PostChallenge   = "post_challenge_1d"
)

// Catalog resolves window names. It is built once and never mutated;
// With returns an extended copy.
type Catalog struct {
	windows map[string]core.Window
	order   []string
}

// NewCatalog indexes windows by name. Duplicate names are a configuration error.
func NewCatalog(windows ...core.Window) (*Catalog, error) {
	c := &Catalog{windows: make(map[string]core.Window, len(windows))}
	if err := c.add(windows); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) add(windows []core.Window) error {
	for _, w := range windows {
		if w.Name == "" {
			return fmt.Errorf("%w: window without a name", core.ErrConfiguration)
		}
		if _, dup := c.windows[w.Name]; dup {
			return fmt.Errorf("%w: duplicate window %q", core.ErrConfiguration, w.Name)
		}
		c.windows[w.Name] = w
		c.order = append(c.order, w.Name)
	}
	return nil
}

// With returns a new catalog holding c's windows plus the given ones
func (c *Catalog) With(windows ...core.Window) (*Catalog, error) {
	out := &Catalog{
		windows: make(map[string]core.Window, len(c.windows)+len(windows)),
		order:   make([]string, len(c.order), len(c.order)+len(windows)),
	}
	copy(out.order, c.order)
	for k, v := range c.windows {
		out.windows[k] = v
	}
	if err := out.add(windows); err != nil {
		return nil, err
	}
	return out, nil
}

// Lookup returns the named window or an unknown-window error
func (c *Catalog) Lookup(name string) (core.Window, error) {
	w, ok := c.windows[name]
	if !ok {
		return core.Window{}, core.NewUnknownWindowError(name)
	}
	return w, nil
}

// Names lists windows in insertion order
func (c *Catalog) Names() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) Len() int { return len(c.order) }

// GameBuffers derives the 24h before, the game itself and the 24h after
func GameBuffers(game core.Window) []core.Window {
	return []core.Window{
		game.Before(PreGame, BufferWidth),
		game.Renamed(DuringGame),
		game.After(PostGame, BufferWidth),
	}
}

// ChallengeBuffers derives the same three windows around a challenge
func ChallengeBuffers(challenge core.Window) []core.Window {
	return []core.Window{
		challenge.Before(PreChallenge, BufferWidth),
		challenge.Renamed(DuringChallenge),
		challenge.After(PostChallenge, BufferWidth),
	}
}
