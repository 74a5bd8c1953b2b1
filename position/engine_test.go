package position

import (
	"fmt"
	"sync"
	"testing"

	"github.com/rustyeddy/posagg/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1e-4

type testObserver struct {
	mu         sync.Mutex
	applied    []Fill
	realized   []float64
	duplicates []Fill
	rejected   []error
}

func (o *testObserver) FillApplied(f Fill, _ Position, realized float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applied = append(o.applied, f)
	o.realized = append(o.realized, realized)
}

func (o *testObserver) FillDuplicate(f Fill) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.duplicates = append(o.duplicates, f)
}

func (o *testObserver) FillRejected(_ Fill, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rejected = append(o.rejected, err)
}

func newEngine(t *testing.T, marks market.MarkProvider, opts ...Option) *Engine {
	t.Helper()
	return NewEngine(market.NewResolver(market.DefaultSymbols()), marks, opts...)
}

func apply(t *testing.T, e *Engine, side Side, qty int64, price float64) {
	t.Helper()
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: side, Qty: qty, Price: price}))
}

func TestOpenFromFlat(t *testing.T) {
	e := newEngine(t, nil)
	apply(t, e, Buy, 2, 4500)

	pos := e.Position("MESZ5")
	assert.Equal(t, int64(2), pos.NetQty)
	assert.Equal(t, 4500.0, pos.AvgPrice)
	assert.Equal(t, 0.0, pos.RealizedPnL)
	assert.True(t, pos.IsLong())
}

func TestAccumulateThenReduce(t *testing.T) {
	e := newEngine(t, nil)

	apply(t, e, Buy, 2, 4500.00)
	pos := e.Position("MESZ5")
	assert.Equal(t, int64(2), pos.NetQty)
	assert.InDelta(t, 4500.00, pos.AvgPrice, tol)

	apply(t, e, Buy, 1, 4501.00)
	pos = e.Position("MESZ5")
	assert.Equal(t, int64(3), pos.NetQty)
	assert.InDelta(t, 4500.3333, pos.AvgPrice, tol)

	apply(t, e, Sell, 2, 4505.00)
	pos = e.Position("MESZ5")
	assert.Equal(t, int64(1), pos.NetQty)
	assert.InDelta(t, 46.6667, pos.RealizedPnL, tol)
	assert.InDelta(t, 4500.3333, pos.AvgPrice, tol, "partial reduce keeps the average")
}

func TestFlipThroughZero(t *testing.T) {
	obs := &testObserver{}
	e := newEngine(t, nil, WithObserver(obs))

	apply(t, e, Buy, 5, 4500.00)
	apply(t, e, Sell, 8, 4510.00)

	pos := e.Position("MESZ5")
	assert.Equal(t, int64(-3), pos.NetQty)
	assert.InDelta(t, 250.00, pos.RealizedPnL, tol)
	assert.Equal(t, 4510.00, pos.AvgPrice)
	assert.True(t, pos.IsShort())

	require.Len(t, obs.realized, 2)
	assert.InDelta(t, 250.00, obs.realized[1], tol)
}

func TestFlipShortToLong(t *testing.T) {
	e := newEngine(t, nil)

	apply(t, e, Sell, 2, 4500.00)
	apply(t, e, Buy, 3, 4490.00)

	pos := e.Position("MESZ5")
	assert.Equal(t, int64(1), pos.NetQty)
	// short 2 from 4500 covered at 4490: 40 ticks * 1.25 * 2
	assert.InDelta(t, 100.0, pos.RealizedPnL, tol)
	assert.Equal(t, 4490.0, pos.AvgPrice)
}

func TestShortAccumulateBlends(t *testing.T) {
	e := newEngine(t, nil)

	apply(t, e, Sell, 1, 4500)
	apply(t, e, Sell, 3, 4504)

	pos := e.Position("MESZ5")
	assert.Equal(t, int64(-4), pos.NetQty)
	assert.InDelta(t, 4503.0, pos.AvgPrice, tol)
}

func TestCloseAtSamePriceIsNeutral(t *testing.T) {
	for _, open := range []Side{Buy, Sell} {
		t.Run(string(open), func(t *testing.T) {
			e := newEngine(t, nil)
			closeSide := Sell
			if open == Sell {
				closeSide = Buy
			}

			apply(t, e, open, 4, 4512.75)
			apply(t, e, closeSide, 4, 4512.75)

			pos := e.Position("MESZ5")
			assert.Equal(t, int64(0), pos.NetQty)
			assert.Equal(t, 0.0, pos.RealizedPnL)
			assert.Equal(t, 0.0, pos.AvgPrice)
		})
	}
}

func TestFlatClearsAverage(t *testing.T) {
	e := newEngine(t, nil)

	steps := []struct {
		side  Side
		qty   int64
		price float64
	}{
		{Buy, 3, 4500}, {Sell, 1, 4502}, {Sell, 2, 4499}, // flat
		{Sell, 2, 4498}, {Buy, 5, 4495}, // flip long 3
		{Sell, 3, 4501}, // flat
		{Buy, 1, 4600},
	}

	for i, s := range steps {
		apply(t, e, s.side, s.qty, s.price)
		pos := e.Position("MESZ5")
		assert.Equal(t, pos.NetQty == 0, pos.AvgPrice == 0, "step %d: %+v", i, pos)
	}
}

func TestFeesAccrueOnEveryFill(t *testing.T) {
	e := newEngine(t, nil)

	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500, Fees: 0.95}))
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4501, Fees: 0.95}))
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Sell, Qty: 3, Price: 4502, Fees: 1.90}))

	pos := e.Position("MESZ5")
	assert.InDelta(t, 3.80, pos.FeesCum, 1e-9)
}

func TestNegativeFeesAreRebates(t *testing.T) {
	e := newEngine(t, nil)
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500, Fees: 0.50}))
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500, Fees: -0.20}))
	assert.InDelta(t, 0.30, e.Position("MESZ5").FeesCum, 1e-9)
}

func TestIdempotentExecID(t *testing.T) {
	obs := &testObserver{}
	e := newEngine(t, nil, WithObserver(obs))

	f := Fill{Symbol: "MESZ5", Side: Buy, Qty: 2, Price: 4500, Fees: 1.0, ExecID: "X1"}
	require.NoError(t, e.ApplyFill(f))
	once := e.Position("MESZ5")

	require.NoError(t, e.ApplyFill(f))
	assert.Equal(t, once, e.Position("MESZ5"))
	assert.True(t, e.Seen("X1"))
	assert.False(t, e.Seen("X2"))

	assert.Len(t, obs.applied, 1)
	assert.Len(t, obs.duplicates, 1)
}

func TestEmptyExecIDNeverDeduplicates(t *testing.T) {
	e := newEngine(t, nil)
	f := Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500}
	require.NoError(t, e.ApplyFill(f))
	require.NoError(t, e.ApplyFill(f))
	assert.Equal(t, int64(2), e.Position("MESZ5").NetQty)
	assert.False(t, e.Seen(""))
}

func TestExecIDIsGlobalAcrossSymbols(t *testing.T) {
	e := newEngine(t, nil)
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500, ExecID: "E"}))
	require.NoError(t, e.ApplyFill(Fill{Symbol: "MCLX5", Side: Buy, Qty: 1, Price: 60, ExecID: "E"}))

	assert.Equal(t, []string{"MESZ5"}, e.Symbols())
}

func TestUnknownSymbolRejected(t *testing.T) {
	obs := &testObserver{}
	e := newEngine(t, nil, WithObserver(obs))

	err := e.ApplyFill(Fill{Symbol: "ZNZ5", Side: Buy, Qty: 1, Price: 110, ExecID: "Z1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)

	assert.False(t, e.Seen("Z1"), "rejected fills do not consume their exec id")
	assert.Empty(t, e.Symbols())
	assert.Len(t, obs.rejected, 1)
}

func TestUnrealizedSignSymmetry(t *testing.T) {
	marks := market.NewMarkStore(nil)
	e := newEngine(t, marks)

	apply(t, e, Sell, 3, 4510)

	marks.Set("MESZ5", 4500)
	assert.InDelta(t, 150.0, e.UnrealizedPnL("MESZ5"), tol)

	marks.Set("MESZ5", 4520)
	assert.InDelta(t, -150.0, e.UnrealizedPnL("MESZ5"), tol)

	// Linear in |net_qty|.
	apply(t, e, Sell, 3, 4510)
	assert.InDelta(t, -300.0, e.UnrealizedPnL("MESZ5"), tol)
}

func TestUnrealizedScalesInverselyWithTick(t *testing.T) {
	coarse := market.MustSymbolTable(market.SymbolConfig{Root: "XX", TickSize: 1, DollarsPerTick: 1})
	fine := market.MustSymbolTable(market.SymbolConfig{Root: "XX", TickSize: 0.5, DollarsPerTick: 1})
	marks := market.NewMarkStore(map[string]float64{"XXZ5": 110})

	var got []float64
	for _, tbl := range []market.SymbolTable{coarse, fine} {
		e := NewEngine(market.NewResolver(tbl), marks)
		require.NoError(t, e.ApplyFill(Fill{Symbol: "XXZ5", Side: Buy, Qty: 2, Price: 100}))
		got = append(got, e.UnrealizedPnL("XXZ5"))
	}
	assert.InDelta(t, 20.0, got[0], tol)
	assert.InDelta(t, 40.0, got[1], tol)
}

func TestUnknownMarkIsZero(t *testing.T) {
	e := newEngine(t, market.NewMarkStore(nil))
	apply(t, e, Buy, 2, 4500)

	assert.Equal(t, 0.0, e.UnrealizedPnL("MESZ5"))
	line := e.BlotterLine("MESZ5")
	assert.False(t, line.HasMark)
	assert.Equal(t, 0.0, line.UPL)

	noProvider := newEngine(t, nil)
	apply(t, noProvider, Buy, 2, 4500)
	assert.Equal(t, 0.0, noProvider.UnrealizedPnL("MESZ5"))
}

func TestFlatWithMarkIsZero(t *testing.T) {
	marks := market.NewMarkStore(map[string]float64{"MESZ5": 4600})
	e := newEngine(t, marks)
	apply(t, e, Buy, 1, 4500)
	apply(t, e, Sell, 1, 4500)

	assert.Equal(t, 0.0, e.UnrealizedPnL("MESZ5"))
	line := e.BlotterLine("MESZ5")
	assert.True(t, line.HasMark)
	assert.Equal(t, 4600.0, line.Mark)
}

func TestBlotterConsistency(t *testing.T) {
	marks := market.NewMarkStore(map[string]float64{"MESZ5": 4507.25, "MCLX5": 61.02})
	e := newEngine(t, marks)

	fills := []Fill{
		{Symbol: "MESZ5", Side: Buy, Qty: 2, Price: 4500, Fees: 1.9},
		{Symbol: "MESZ5", Side: Sell, Qty: 1, Price: 4505, Fees: 0.95},
		{Symbol: "MCLX5", Side: Sell, Qty: 4, Price: 61.10, Fees: 3.8},
		{Symbol: "MCLX5", Side: Buy, Qty: 1, Price: 60.95, Fees: 0.95},
	}
	for _, f := range fills {
		require.NoError(t, e.ApplyFill(f))
	}

	lines := e.Blotter()
	require.Len(t, lines, 2)
	assert.Equal(t, "MCLX5", lines[0].Symbol)
	assert.Equal(t, "MESZ5", lines[1].Symbol)

	for _, l := range lines {
		assert.InDelta(t, l.RPL+l.UPL-l.Fees, l.NLVDelta, 1e-9, l.Symbol)
		assert.True(t, l.HasMark)
	}

	// MCL short 3 @ 61.10 marked at 61.02: 8 ticks * $1 * 3
	assert.InDelta(t, 24.0, lines[0].UPL, tol)
	// MCL covered 1 from 61.10 at 60.95: 15 ticks
	assert.InDelta(t, 15.0, lines[0].RPL, tol)

	// Reads are repeatable with no fills in between.
	assert.Equal(t, lines, e.Blotter())

	// A new mark changes UPL and NLV on the next query.
	marks.Set("MESZ5", 4510)
	mes := e.BlotterLine("MESZ5")
	assert.InDelta(t, 50.0, mes.UPL, tol)
	assert.InDelta(t, mes.RPL+mes.UPL-mes.Fees, mes.NLVDelta, 1e-9)
}

func TestQueryDoesNotCreatePosition(t *testing.T) {
	e := newEngine(t, nil)

	line := e.BlotterLine("MESH6")
	assert.Equal(t, BlotterLine{Symbol: "MESH6"}, line)
	assert.Equal(t, Position{Symbol: "MESH6"}, e.Position("MESH6"))
	assert.Empty(t, e.Blotter())
}

func TestResetDayIsNoop(t *testing.T) {
	e := newEngine(t, nil)
	apply(t, e, Buy, 2, 4500)
	before := e.Position("MESZ5")
	e.ResetDay()
	assert.Equal(t, before, e.Position("MESZ5"))
}

func TestConcurrentApplyIsSerialized(t *testing.T) {
	e := newEngine(t, market.NewMarkStore(map[string]float64{"MESZ5": 4501}))

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_ = e.ApplyFill(Fill{
					Symbol: "MESZ5", Side: Buy, Qty: 1, Price: 4500,
					ExecID: fmt.Sprintf("w%d-%d", w, i%25),
				})
				_ = e.Blotter()
			}
		}(w)
	}
	wg.Wait()

	pos := e.Position("MESZ5")
	assert.Equal(t, int64(8*25), pos.NetQty)
	assert.InDelta(t, 4500.0, pos.AvgPrice, 1e-9)
}
