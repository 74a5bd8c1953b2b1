// Package journal records what a run did: every fill seen (applied or
// dropped as a duplicate) and blotter snapshots. It is an audit trail.
// Nothing in the engine reads it back; `posagg replay` re-feeds recorded
// fills into a fresh engine.
package journal

import (
	"time"

	"github.com/rustyeddy/posagg/position"
)

type FillRecord struct {
	RecordID   string        `json:"record_id"`
	RunID      string        `json:"run_id"`
	RecordedAt time.Time     `json:"recorded_at"`
	Fill       position.Fill `json:"fill"`
	Applied    bool          `json:"applied"` // false: dropped as a duplicate exec id
}

type BlotterSnapshot struct {
	SnapshotID string // minted by the journal when empty
	RunID      string
	TakenAt    time.Time
	Lines      []position.BlotterLine
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordBlotter(BlotterSnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error         { return nil }
func (Nop) RecordBlotter(BlotterSnapshot) error { return nil }
func (Nop) Close() error                        { return nil }
