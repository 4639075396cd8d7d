package run

import (
	"fmt"

	"allday/domain/core"
)

// Fingerprint pins everything a materialization depends on, so two runs
// with equal fingerprints produce equal results
type Fingerprint struct {
	InputsHash  core.Hash `json:"inputs_hash"`
	TablesHash  core.Hash `json:"tables_hash"`
	Seed        uint64    `json:"seed"`
	CodeVersion string    `json:"code_version"`
	Fingerprint core.Hash `json:"fingerprint"`
}

// NewFingerprint derives the combined hash
func NewFingerprint(inputs, tables core.Hash, seed uint64, codeVersion string) Fingerprint {
	data := fmt.Sprintf("inputs:%s|tables:%s|seed:%d|code:%s", inputs, tables, seed, codeVersion)
	return Fingerprint{
		InputsHash:  inputs,
		TablesHash:  tables,
		Seed:        seed,
		CodeVersion: codeVersion,
		Fingerprint: core.NewHash([]byte(data)),
	}
}

// Validate checks the fingerprint is complete
func (f Fingerprint) Validate() error {
	if f.InputsHash.IsEmpty() {
		return fmt.Errorf("%w: fingerprint has no inputs hash", core.ErrConfiguration)
	}
	if f.CodeVersion == "" {
		return fmt.Errorf("%w: fingerprint has no code version", core.ErrConfiguration)
	}
	return nil
}
