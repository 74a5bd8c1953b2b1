package position

import (
	"fmt"
	"strings"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// ParseSide accepts BUY or SELL in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

// Sign is +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Fill is one executed trade. The engine trusts it: Qty > 0 and a known
// Side are enforced by whoever builds it (see package ingest).
type Fill struct {
	TS      string  `json:"ts"` // opaque, never interpreted
	Symbol  string  `json:"symbol"`
	Side    Side    `json:"side"`
	Qty     int64   `json:"qty"`
	Price   float64 `json:"price"`
	Fees    float64 `json:"fees"`
	Account string  `json:"account"`
	ExecID  string  `json:"exec_id,omitempty"` // empty: no dedup
	Note    string  `json:"note,omitempty"`
}

// SignedQty is +Qty for buys and -Qty for sells.
func (f Fill) SignedQty() int64 {
	return f.Side.Sign() * f.Qty
}
