package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Configuration errors: the caller asked for something that does not exist
	ErrConfiguration     = errors.New("configuration error")
	ErrUnknownWindow     = fmt.Errorf("%w: unknown time window", ErrConfiguration)
	ErrUnknownColumn     = fmt.Errorf("%w: unknown column", ErrConfiguration)
	ErrUnknownAggOp      = fmt.Errorf("%w: unknown aggregation", ErrConfiguration)
	ErrUnknownPackType   = fmt.Errorf("%w: unknown pack type", ErrConfiguration)
	ErrMissingPoolTier   = fmt.Errorf("%w: missing pool tier", ErrConfiguration)
	ErrPoolExhausted     = fmt.Errorf("%w: pool exhausted", ErrConfiguration)
	ErrInvalidFamily     = fmt.Errorf("%w: invalid test family", ErrConfiguration)
	ErrUnalignedPairs    = fmt.Errorf("%w: paired samples cannot be aligned", ErrConfiguration)
	ErrInvalidProportion = fmt.Errorf("%w: invalid tier proportions", ErrConfiguration)

	// Lookup errors
	ErrNotFound       = errors.New("resource not found")
	ErrDrawNotFound   = fmt.Errorf("%w: draw", ErrNotFound)
	ErrResultNotFound = fmt.Errorf("%w: result", ErrNotFound)
)

// Error constructors with context
func NewUnknownWindowError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownWindow, name)
}

func NewUnknownColumnError(column string) error {
	return fmt.Errorf("%w %q", ErrUnknownColumn, column)
}

func NewPoolExhaustedError(tier string, need, have int) error {
	return fmt.Errorf("%w: tier %s needs %d rows, pool has %d", ErrPoolExhausted, tier, need, have)
}

// IsConfigurationError reports whether err is a fail-fast configuration error
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
