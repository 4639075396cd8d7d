package run

import (
	"encoding/json"
	"fmt"
	"time"

	"allday/domain/core"
)

// Status of a materialization run
type Status string

const (
	StatusRunning  Status = "running"
	StatusComplete Status = "complete"
	StatusFailed   Status = "failed"
)

// Result kinds written by a materialization run
const (
	KindPriceDrivers = "price_drivers"
	KindChallenge    = "challenge"
	KindSummary      = "summary"
	KindPlayVsPlayer = "play_vs_player"
	KindPlayerDaily  = "player_daily"
	KindMint         = "mint"
	KindPackValue    = "pack_value"
	KindGameWindow   = "game_window"
)

// Kinds lists every result kind
func Kinds() []string {
	return []string{
		KindPriceDrivers, KindChallenge, KindSummary, KindPlayVsPlayer,
		KindPlayerDaily, KindMint, KindPackValue, KindGameWindow,
	}
}

// Run is one materialization pass over a snapshot
type Run struct {
	ID          core.RunID `json:"id" db:"id"`
	StartedAt   time.Time  `json:"started_at" db:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	Status      Status     `json:"status" db:"status"`
	ResultCount int        `json:"result_count" db:"result_count"`
	Error       string     `json:"error,omitempty" db:"error"`
	Fingerprint core.Hash  `json:"fingerprint" db:"fingerprint"`
	Seed        int64      `json:"seed" db:"seed"`
}

// NewRun starts a run for the given inputs
func NewRun(fp Fingerprint, at time.Time) *Run {
	return &Run{
		ID:          core.NewRunID(),
		StartedAt:   at,
		Status:      StatusRunning,
		Fingerprint: fp.Fingerprint,
		Seed:        int64(fp.Seed),
	}
}

// Finish records the outcome. A non-nil err marks the run failed.
func (r *Run) Finish(count int, err error, at time.Time) {
	r.FinishedAt = &at
	r.ResultCount = count
	r.Status = StatusComplete
	if err != nil {
		r.Status = StatusFailed
		r.Error = err.Error()
	}
}

// Result is one materialized value stored under its canonical cache key
type Result struct {
	Key        string          `json:"key" db:"cache_key"`
	Hash       core.Hash       `json:"hash" db:"key_hash"`
	Kind       string          `json:"kind" db:"kind"`
	RunID      *core.RunID     `json:"run_id,omitempty" db:"run_id"`
	Payload    json.RawMessage `json:"payload" db:"payload"`
	ComputedAt time.Time       `json:"computed_at" db:"computed_at"`
}

// NewResult marshals payload under key
func NewResult(key core.CacheKey, kind string, runID core.RunID, payload interface{}, at time.Time) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("cannot encode result %s: %w", key, err)
	}
	res := Result{
		Key:        key.Canonical(),
		Hash:       key.Hash(),
		Kind:       kind,
		Payload:    body,
		ComputedAt: at,
	}
	if !core.ID(runID).IsEmpty() {
		res.RunID = &runID
	}
	return res, nil
}
