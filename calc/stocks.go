package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultStockSlippage is the round trip slippage per share assumed when
// none is given.
const DefaultStockSlippage = 0.02

type StockTrade struct {
	Entry         float64
	Exit          float64
	Direction     Direction
	Shares        int64
	Commission    float64 // per share
	SlippageRound float64 // per share, round trip
}

type StockResult struct {
	Gross       decimal.Decimal
	Costs       decimal.Decimal
	Net         decimal.Decimal
	NetPerShare decimal.Decimal
}

// Stocks computes gross = dir * (exit - entry) * shares less
// shares * (commission + slippage), rounded to cents.
func Stocks(t StockTrade) (StockResult, error) {
	switch {
	case t.Shares <= 0:
		return StockResult{}, fmt.Errorf("%w: shares must be > 0, got %d", ErrInvalidTrade, t.Shares)
	case t.Commission < 0 || t.SlippageRound < 0:
		return StockResult{}, fmt.Errorf("%w: costs must be >= 0", ErrInvalidTrade)
	case t.Direction != Long && t.Direction != Short:
		return StockResult{}, fmt.Errorf("%w: direction not set", ErrInvalidTrade)
	}

	n := decimal.NewFromInt(t.Shares)
	perShareGross := dec(t.Exit).Sub(dec(t.Entry)).Mul(decimal.NewFromInt(int64(t.Direction)))
	perShareCost := dec(t.Commission).Add(dec(t.SlippageRound))

	gross := perShareGross.Mul(n)
	costs := perShareCost.Mul(n)

	return StockResult{
		Gross:       gross.Round(cents),
		Costs:       costs.Round(cents),
		Net:         gross.Sub(costs).Round(cents),
		NetPerShare: perShareGross.Sub(perShareCost).Round(cents),
	}, nil
}
