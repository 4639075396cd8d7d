package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// Domain-specific ID types
type (
	BankID ID
	RunID  ID
)

func (id BankID) String() string { return ID(id).String() }
func (id RunID) String() string  { return ID(id).String() }

// NewBankID identifies one generated sample bank
func NewBankID() BankID { return BankID(NewID()) }

// NewRunID identifies one materialization run
func NewRunID() RunID { return RunID(NewID()) }

// ParseBankID parses a string into BankID
func ParseBankID(s string) (BankID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("bank ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("invalid bank ID %q: %w", s, err)
	}
	return BankID(s), nil
}
