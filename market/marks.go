package market

import (
	"sync"
)

// MarkProvider supplies the latest reference price for an instrument.
// ok is false when no mark is available. Implementations must answer
// quickly; a source that needs I/O has to absorb failures and timeouts
// into ok == false.
type MarkProvider interface {
	Mark(instrument string) (price float64, ok bool)
}

// MarkStore is an in-memory table of last known marks.
type MarkStore struct {
	mu    sync.RWMutex
	marks map[string]float64
}

func NewMarkStore(initial map[string]float64) *MarkStore {
	ms := &MarkStore{marks: make(map[string]float64, len(initial))}
	for k, v := range initial {
		ms.marks[k] = v
	}
	return ms
}

func (ms *MarkStore) Set(instrument string, price float64) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.marks[instrument] = price
}

func (ms *MarkStore) Mark(instrument string) (float64, bool) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	p, ok := ms.marks[instrument]
	return p, ok
}

// FallbackMarks asks each provider in order and returns the first mark found.
type FallbackMarks []MarkProvider

func (f FallbackMarks) Mark(instrument string) (float64, bool) {
	for _, p := range f {
		if p == nil {
			continue
		}
		if price, ok := p.Mark(instrument); ok {
			return price, true
		}
	}
	return 0, false
}
