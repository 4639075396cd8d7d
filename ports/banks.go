package ports

import (
	"context"

	"allday/domain/core"
	"allday/internal/packsim"
)

// BankRepository stores generated sample banks
type BankRepository interface {
	SaveBank(ctx context.Context, bank *packsim.Bank) error

	// GetBundle returns core.ErrDrawNotFound for an unknown bank or index
	GetBundle(ctx context.Context, id core.BankID, index int) (packsim.Bundle, error)
}

// BankExporter writes a bank to a columnar file for offline analysis
type BankExporter interface {
	Export(bank *packsim.Bank) (path string, err error)
}
