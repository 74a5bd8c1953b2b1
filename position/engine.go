package position

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/rustyeddy/posagg/internal/logger"
	"github.com/rustyeddy/posagg/market"
)

// BlotterLine is a derived, point in time view of one Position. It is
// recomputed on every query and never stored.
type BlotterLine struct {
	Symbol   string  `json:"symbol"`
	NetQty   int64   `json:"net_qty"`
	AvgPrice float64 `json:"avg_price"`
	Mark     float64 `json:"mark"`
	HasMark  bool    `json:"has_mark"`
	UPL      float64 `json:"upl"`
	RPL      float64 `json:"rpl"`
	Fees     float64 `json:"fees"`
	NLVDelta float64 `json:"nlv_delta"` // RPL + UPL - Fees
}

// Observer is told about every fill the engine sees. Calls happen after
// the engine lock is released.
type Observer interface {
	FillApplied(f Fill, pos Position, realized float64)
	FillDuplicate(f Fill)
	FillRejected(f Fill, err error)
}

type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// Engine owns the positions keyed by instrument and the set of execution
// ids already applied.
//
// ApplyFill takes the write lock for the whole accumulate/reduce/flip
// sequence; queries share a read lock. Callers that feed fills from
// several goroutines get serialized here.
type Engine struct {
	mu        sync.RWMutex
	resolver  *market.Resolver
	marks     market.MarkProvider
	positions map[string]*Position
	seen      map[string]struct{}
	log       *slog.Logger
	observer  Observer
}

// NewEngine builds an engine. marks may be nil, in which case every
// instrument is unmarked.
func NewEngine(resolver *market.Resolver, marks market.MarkProvider, opts ...Option) *Engine {
	e := &Engine{
		resolver:  resolver,
		marks:     marks,
		positions: make(map[string]*Position),
		seen:      make(map[string]struct{}),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ApplyFill folds one fill into its instrument's position.
//
// A fill whose ExecID was already applied is dropped without error. A fill
// for an instrument with no tick configuration is rejected with an error
// wrapping market.ErrUnknownSymbol and changes nothing, including the
// dedup set.
func (e *Engine) ApplyFill(f Fill) error {
	e.mu.Lock()

	if f.ExecID != "" {
		if _, dup := e.seen[f.ExecID]; dup {
			obs := e.observer
			e.mu.Unlock()

			e.log.Debug("duplicate fill dropped",
				slog.String("exec_id", f.ExecID),
				slog.String("symbol", f.Symbol))
			if obs != nil {
				obs.FillDuplicate(f)
			}
			return nil
		}
	}

	sym, err := e.resolver.Resolve(f.Symbol)
	if err != nil {
		obs := e.observer
		e.mu.Unlock()

		err = fmt.Errorf("apply fill %s: %w", f.Symbol, err)
		if obs != nil {
			obs.FillRejected(f, err)
		}
		return err
	}

	if f.ExecID != "" {
		e.seen[f.ExecID] = struct{}{}
	}

	pos := e.positionLocked(f.Symbol)
	realized, flipped := pos.apply(f, sym)
	snapshot := *pos
	obs := e.observer
	e.mu.Unlock()

	if flipped {
		e.log.Debug("position flipped",
			slog.String("symbol", f.Symbol),
			slog.Int64("net_qty", snapshot.NetQty),
			slog.Float64("avg_price", snapshot.AvgPrice))
	}
	if obs != nil {
		obs.FillApplied(f, snapshot, realized)
	}
	return nil
}

// positionLocked is the get-or-create for the write path.
func (e *Engine) positionLocked(symbol string) *Position {
	p, ok := e.positions[symbol]
	if !ok {
		p = &Position{Symbol: symbol}
		e.positions[symbol] = p
	}
	return p
}

// Position returns a copy of the instrument's position. An instrument with
// no fills reads as a zeroed position.
func (e *Engine) Position(symbol string) Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.positionRLocked(symbol)
}

func (e *Engine) positionRLocked(symbol string) Position {
	if p, ok := e.positions[symbol]; ok {
		return *p
	}
	return Position{Symbol: symbol}
}

// Seen reports whether a fill with this execution id has been applied.
func (e *Engine) Seen(execID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.seen[execID]
	return ok
}

// Symbols returns every instrument with at least one applied fill, sorted.
func (e *Engine) Symbols() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.symbolsRLocked()
}

func (e *Engine) symbolsRLocked() []string {
	out := make([]string, 0, len(e.positions))
	for s := range e.positions {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) mark(symbol string) (float64, bool) {
	if e.marks == nil {
		return 0, false
	}
	return e.marks.Mark(symbol)
}

// UnrealizedPnL marks the open quantity against the provider's current
// price. Flat positions and unmarked instruments return 0.
func (e *Engine) UnrealizedPnL(symbol string) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	pos := e.positionRLocked(symbol)
	mark, ok := e.mark(symbol)
	return e.unrealizedRLocked(&pos, mark, ok)
}

func (e *Engine) unrealizedRLocked(pos *Position, mark float64, ok bool) float64 {
	if pos.IsFlat() || !ok {
		return 0
	}
	// An open position was resolved when its first fill was applied.
	sym, err := e.resolver.Resolve(pos.Symbol)
	if err != nil {
		return 0
	}
	return pos.unrealized(mark, sym)
}

// BlotterLine assembles the current view of one instrument.
func (e *Engine) BlotterLine(symbol string) BlotterLine {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.blotterLineRLocked(symbol)
}

func (e *Engine) blotterLineRLocked(symbol string) BlotterLine {
	pos := e.positionRLocked(symbol)
	mark, ok := e.mark(symbol)
	upl := e.unrealizedRLocked(&pos, mark, ok)

	line := BlotterLine{
		Symbol:   symbol,
		NetQty:   pos.NetQty,
		AvgPrice: pos.AvgPrice,
		HasMark:  ok,
		UPL:      upl,
		RPL:      pos.RealizedPnL,
		Fees:     pos.FeesCum,
		NLVDelta: pos.RealizedPnL + upl - pos.FeesCum,
	}
	if ok {
		line.Mark = mark
	}
	return line
}

// Blotter returns one line per instrument that has received a fill,
// ordered by instrument id.
func (e *Engine) Blotter() []BlotterLine {
	e.mu.RLock()
	defer e.mu.RUnlock()

	syms := e.symbolsRLocked()
	out := make([]BlotterLine, 0, len(syms))
	for _, s := range syms {
		out = append(out, e.blotterLineRLocked(s))
	}
	return out
}

// ResetDay forwards the session roll hook to every position.
func (e *Engine) ResetDay() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.positions {
		p.ResetDay()
	}
}
