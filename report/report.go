// Package report renders blotter lines for humans and machines.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rustyeddy/posagg/position"
)

const tableHeader = "SYMBOL  NET  AVG_PRICE   MARK      UPL       RPL       FEES     NLV_DELTA"

// Format selects a renderer.
type Format string

const (
	Table Format = "table"
	JSON  Format = "json"
	CSV   Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", Table:
		return Table, nil
	case JSON:
		return JSON, nil
	case CSV:
		return CSV, nil
	}
	return "", fmt.Errorf("unknown format %q (want table, json or csv)", s)
}

// Write renders lines in the given format.
func Write(w io.Writer, format Format, lines []position.BlotterLine) error {
	switch format {
	case JSON:
		return WriteJSON(w, lines)
	case CSV:
		return WriteCSV(w, lines)
	default:
		return WriteTable(w, lines)
	}
}

// WriteTable prints a fixed-width blotter. An unmarked line shows "--" in
// the MARK column.
func WriteTable(w io.Writer, lines []position.BlotterLine) error {
	if len(lines) == 0 {
		_, err := fmt.Fprintln(w, "No positions.")
		return err
	}

	if _, err := fmt.Fprintln(w, tableHeader); err != nil {
		return err
	}
	for _, l := range lines {
		mark := "--"
		if l.HasMark {
			mark = fmt.Sprintf("%.2f", l.Mark)
		}
		_, err := fmt.Fprintf(w, "%-6s %4d  %9.2f  %7s  %8.2f  %8.2f  %8.2f  %10.2f\n",
			l.Symbol, l.NetQty, l.AvgPrice, mark, l.UPL, l.RPL, l.Fees, l.NLVDelta)
		if err != nil {
			return err
		}
	}
	return nil
}

type jsonLine struct {
	Symbol   string   `json:"symbol"`
	NetQty   int64    `json:"net_qty"`
	AvgPrice float64  `json:"avg_price"`
	Mark     *float64 `json:"mark"`
	UPL      float64  `json:"upl"`
	RPL      float64  `json:"rpl"`
	Fees     float64  `json:"fees"`
	NLVDelta float64  `json:"nlv_delta"`
}

// WriteJSON writes the lines as an indented JSON array. A missing mark is
// null.
func WriteJSON(w io.Writer, lines []position.BlotterLine) error {
	out := make([]jsonLine, 0, len(lines))
	for _, l := range lines {
		jl := jsonLine{
			Symbol:   l.Symbol,
			NetQty:   l.NetQty,
			AvgPrice: l.AvgPrice,
			UPL:      l.UPL,
			RPL:      l.RPL,
			Fees:     l.Fees,
			NLVDelta: l.NLVDelta,
		}
		if l.HasMark {
			m := l.Mark
			jl.Mark = &m
		}
		out = append(out, jl)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

var csvHeader = []string{"symbol", "net_qty", "avg_price", "mark", "upl", "rpl", "fees", "nlv_delta"}

// WriteCSV writes a header row followed by one row per line. A missing
// mark is an empty cell.
func WriteCSV(w io.Writer, lines []position.BlotterLine) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, l := range lines {
		mark := ""
		if l.HasMark {
			mark = ff(l.Mark)
		}
		if err := cw.Write([]string{
			l.Symbol,
			strconv.FormatInt(l.NetQty, 10),
			ff(l.AvgPrice),
			mark,
			ff(l.UPL),
			ff(l.RPL),
			ff(l.Fees),
			ff(l.NLVDelta),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ff(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
