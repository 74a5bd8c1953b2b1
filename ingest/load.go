package ingest

import (
	"context"
	"fmt"

	"github.com/rustyeddy/posagg/position"
)

// Applier is the part of the engine Load needs.
type Applier interface {
	ApplyFill(position.Fill) error
	Seen(execID string) bool
}

// Stats summarizes a load.
type Stats struct {
	Rows       int
	Applied    int
	Duplicates int
}

// Source yields fills one at a time; *Reader satisfies it.
type Source interface {
	Next() (position.Fill, bool, error)
}

// Load feeds every fill from src into the engine. It stops at the first
// malformed row or engine error, and checks ctx between rows. onFill, if
// non-nil, sees each fill with whether it was applied or deduplicated.
func Load(ctx context.Context, src Source, eng Applier, onFill func(f position.Fill, applied bool) error) (Stats, error) {
	var st Stats
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		f, ok, err := src.Next()
		if err != nil {
			return st, err
		}
		if !ok {
			return st, nil
		}
		st.Rows++

		dup := f.ExecID != "" && eng.Seen(f.ExecID)
		if err := eng.ApplyFill(f); err != nil {
			return st, fmt.Errorf("row %d: %w", st.Rows, err)
		}
		if dup {
			st.Duplicates++
		} else {
			st.Applied++
		}

		if onFill != nil {
			if err := onFill(f, !dup); err != nil {
				return st, err
			}
		}
	}
}

// SliceSource adapts an in-memory slice to Source.
type SliceSource struct {
	fills []position.Fill
	i     int
}

func NewSliceSource(fills []position.Fill) *SliceSource {
	return &SliceSource{fills: fills}
}

func (s *SliceSource) Next() (position.Fill, bool, error) {
	if s.i >= len(s.fills) {
		return position.Fill{}, false, nil
	}
	f := s.fills[s.i]
	s.i++
	return f, true, nil
}
