package core

import (
	"time"
)

// Window is a named time interval. Boundaries are half-open [Start, End)
// unless InclusiveEnd is set. A zero Start or End leaves that side unbounded.
type Window struct {
	Name         string
	Start        time.Time
	End          time.Time
	InclusiveEnd bool
}

// NewWindow creates a half-open window
func NewWindow(name string, start, end time.Time) Window {
	return Window{Name: name, Start: start, End: end}
}

// Since creates a window that is unbounded on the right
func Since(name string, start time.Time) Window {
	return Window{Name: name, Start: start}
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if w.End.IsZero() {
		return true
	}
	if w.InclusiveEnd {
		return !t.After(w.End)
	}
	return t.Before(w.End)
}

// Before returns the buffer window of length d that ends where w starts
func (w Window) Before(name string, d time.Duration) Window {
	return Window{Name: name, Start: w.Start.Add(-d), End: w.Start}
}

// After returns the buffer window of length d that starts where w ends
func (w Window) After(name string, d time.Duration) Window {
	return Window{Name: name, Start: w.End, End: w.End.Add(d)}
}

// Renamed returns a copy of the window with another name
func (w Window) Renamed(name string) Window {
	w.Name = name
	return w
}

// IsBounded reports whether both ends are set
func (w Window) IsBounded() bool {
	return !w.Start.IsZero() && !w.End.IsZero()
}

// String representations
func (w Window) String() string {
	start, end := "-inf", "+inf"
	if !w.Start.IsZero() {
		start = w.Start.Format(time.RFC3339)
	}
	if !w.End.IsZero() {
		end = w.End.Format(time.RFC3339)
	}
	closing := ")"
	if w.InclusiveEnd {
		closing = "]"
	}
	return w.Name + " [" + start + ", " + end + closing
}
