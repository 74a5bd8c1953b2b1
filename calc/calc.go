// Package calc answers "what did that round trip make?" for a single entry
// and exit, net of fees and slippage. It is independent of the position
// engine and works in decimal so results round to exact cents.
package calc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidTrade = errors.New("invalid trade")

type Direction int

const (
	Long  Direction = 1
	Short Direction = -1
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "l":
		return Long, nil
	case "short", "sell", "s":
		return Short, nil
	}
	return 0, fmt.Errorf("%w: direction %q (want long or short)", ErrInvalidTrade, s)
}

func (d Direction) String() string {
	if d == Short {
		return "SHORT"
	}
	return "LONG"
}

const cents = 2

func dec(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }
