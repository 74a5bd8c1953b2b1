package position

import "github.com/rustyeddy/posagg/market"

// Position is the running aggregate for one instrument.
//
// AvgPrice is the weighted average entry of the open side and is 0
// whenever NetQty is 0. RealizedPnL only moves when a fill closes
// quantity. FeesCum is the plain sum of every applied fill's fees.
type Position struct {
	Symbol      string  `json:"symbol"`
	NetQty      int64   `json:"net_qty"` // + long, - short
	AvgPrice    float64 `json:"avg_price"`
	RealizedPnL float64 `json:"realized_pnl"`
	FeesCum     float64 `json:"fees_cum"`
}

func (p *Position) IsLong() bool  { return p.NetQty > 0 }
func (p *Position) IsShort() bool { return p.NetQty < 0 }
func (p *Position) IsFlat() bool  { return p.NetQty == 0 }

// Direction is +1 long, -1 short, 0 flat.
func (p *Position) Direction() int64 {
	switch {
	case p.NetQty > 0:
		return 1
	case p.NetQty < 0:
		return -1
	}
	return 0
}

// ResetDay is where a session roll (day P&L vs. carried ledger) would go.
// The ledger currently persists across sessions, so it does nothing.
func (p *Position) ResetDay() {}

// apply runs the lot accounting for one fill and returns the realized
// increment. One fill crosses zero at most once: it adds, reduces, closes,
// or closes and flips.
func (p *Position) apply(f Fill, sym market.SymbolConfig) (realized float64, flipped bool) {
	signed := f.SignedQty()

	switch {
	case p.NetQty == 0:
		p.AvgPrice = f.Price
		p.NetQty = signed

	case (p.NetQty > 0) == (signed > 0):
		// Same direction: quantity weighted blend.
		next := p.NetQty + signed
		p.AvgPrice = (p.AvgPrice*float64(abs(p.NetQty)) + f.Price*float64(abs(signed))) / float64(abs(next))
		p.NetQty = next

	default:
		closeQty := min(abs(p.NetQty), abs(signed))
		realized = tickPnL(p.Direction(), p.AvgPrice, f.Price, sym) * float64(closeQty)
		p.RealizedPnL += realized

		remaining := p.NetQty + signed
		switch {
		case remaining == 0:
			p.NetQty = 0
			p.AvgPrice = 0
		case (remaining > 0) != (p.NetQty > 0):
			// Flipped: the overfill opens the other side at this price.
			p.NetQty = remaining
			p.AvgPrice = f.Price
			flipped = true
		default:
			p.NetQty = remaining
		}
	}

	p.FeesCum += f.Fees
	return realized, flipped
}

// unrealized marks the open quantity against mark.
func (p *Position) unrealized(mark float64, sym market.SymbolConfig) float64 {
	if p.NetQty == 0 {
		return 0
	}
	return tickPnL(p.Direction(), p.AvgPrice, mark, sym) * float64(abs(p.NetQty))
}

// tickPnL is the per contract P&L of moving from entry to exit: the price
// difference in ticks times the tick value, signed by direction.
func tickPnL(dir int64, entry, exit float64, sym market.SymbolConfig) float64 {
	return float64(dir) * (exit - entry) / sym.TickSize * sym.DollarsPerTick
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
