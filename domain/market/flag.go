package market

import "strings"

// Flag is a nullable boolean
type Flag int8

const (
	FlagNull Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a bool to a non-null Flag
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// ParseFlag reads the loose boolean spellings found in exported tables.
// Anything unrecognised is null.
func ParseFlag(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "1", "1.0", "yes", "y":
		return FlagTrue
	case "false", "f", "0", "0.0", "no", "n":
		return FlagFalse
	default:
		return FlagNull
	}
}

func (f Flag) IsNull() bool { return f == FlagNull }

// Bool returns the value and whether it is set
func (f Flag) Bool() (value bool, ok bool) {
	return f == FlagTrue, f != FlagNull
}

// Is reports whether the flag is set and equal to b
func (f Flag) Is(b bool) bool {
	return f != FlagNull && (f == FlagTrue) == b
}

// Or returns f unless it is null, in which case fallback is returned
func (f Flag) Or(fallback Flag) Flag {
	if f != FlagNull {
		return f
	}
	return fallback
}

func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "true"
	case FlagFalse:
		return "false"
	default:
		return "null"
	}
}
