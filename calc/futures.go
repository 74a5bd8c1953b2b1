package calc

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FuturesFees are per side, per contract.
type FuturesFees struct {
	Exchange   float64 `json:"exchange" yaml:"exchange"`
	Clearing   float64 `json:"clearing" yaml:"clearing"`
	NFA        float64 `json:"nfa" yaml:"nfa"`
	Commission float64 `json:"commission" yaml:"commission"`
}

// DefaultFuturesFees is a retail micro contract on a commissioned plan.
func DefaultFuturesFees() FuturesFees {
	return FuturesFees{
		Exchange:   0.35,
		Clearing:   0.19,
		NFA:        0.02,
		Commission: 0.39,
	}
}

// NoCommission returns a copy with the commission zeroed, for plans that
// only pass through exchange, clearing and NFA fees.
func (f FuturesFees) NoCommission() FuturesFees {
	f.Commission = 0
	return f
}

func (f FuturesFees) PerSide() decimal.Decimal {
	return dec(f.Exchange).Add(dec(f.Clearing)).Add(dec(f.NFA)).Add(dec(f.Commission))
}

// RoundTrip is entry plus exit fees for the given number of contracts.
func (f FuturesFees) RoundTrip(contracts int64) decimal.Decimal {
	return f.PerSide().Mul(decimal.NewFromInt(2 * contracts))
}

type FuturesTrade struct {
	Entry          float64
	Exit           float64
	Direction      Direction
	Contracts      int64
	TickSize       float64
	DollarsPerTick float64
	Fees           FuturesFees
	SlippageTicks  float64 // round trip
}

type FuturesResult struct {
	Ticks          decimal.Decimal
	Gross          decimal.Decimal
	Fees           decimal.Decimal
	Slippage       decimal.Decimal
	Net            decimal.Decimal
	NetPerContract decimal.Decimal
}

func (t FuturesTrade) validate() error {
	switch {
	case t.Contracts <= 0:
		return fmt.Errorf("%w: contracts must be > 0, got %d", ErrInvalidTrade, t.Contracts)
	case t.TickSize <= 0:
		return fmt.Errorf("%w: tick size must be > 0, got %v", ErrInvalidTrade, t.TickSize)
	case t.DollarsPerTick <= 0:
		return fmt.Errorf("%w: dollars per tick must be > 0, got %v", ErrInvalidTrade, t.DollarsPerTick)
	case t.SlippageTicks < 0:
		return fmt.Errorf("%w: slippage must be >= 0, got %v", ErrInvalidTrade, t.SlippageTicks)
	case t.Direction != Long && t.Direction != Short:
		return fmt.Errorf("%w: direction not set", ErrInvalidTrade)
	}
	return nil
}

// Futures computes the net P&L of one futures round trip:
//
//	gross    = dir * (exit - entry) / tick * $/tick * contracts
//	fees     = 2 * per side fees * contracts
//	slippage = slippage ticks * $/tick * contracts
//
// Money values are rounded to cents.
func Futures(t FuturesTrade) (FuturesResult, error) {
	if err := t.validate(); err != nil {
		return FuturesResult{}, err
	}

	n := decimal.NewFromInt(t.Contracts)
	dpt := dec(t.DollarsPerTick)

	ticks := dec(t.Exit).Sub(dec(t.Entry)).Div(dec(t.TickSize)).Mul(decimal.NewFromInt(int64(t.Direction)))
	gross := ticks.Mul(dpt).Mul(n)
	fees := t.Fees.RoundTrip(t.Contracts)
	slip := dec(t.SlippageTicks).Mul(dpt).Mul(n)
	net := gross.Sub(fees).Sub(slip)

	return FuturesResult{
		Ticks:          ticks,
		Gross:          gross.Round(cents),
		Fees:           fees.Round(cents),
		Slippage:       slip.Round(cents),
		Net:            net.Round(cents),
		NetPerContract: net.Div(n).Round(cents),
	}, nil
}
