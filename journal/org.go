package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatBlotterOrg renders a snapshot as an Org-mode heading with a table,
// ready to paste into a trading journal.
func FormatBlotterOrg(s BlotterSnapshot) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("** Blotter %s (%s)\n", s.TakenAt.UTC().Format(time.RFC3339), shortID(s.RunID)))
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":RUN_ID: %s\n", s.RunID))
	b.WriteString(fmt.Sprintf(":SNAPSHOT_ID: %s\n", s.SnapshotID))
	b.WriteString(":END:\n\n")

	b.WriteString("| Symbol | Net | Avg | Mark | UPL | RPL | Fees | NLV Δ |\n")
	b.WriteString("|--------+-----+-----+------+-----+-----+------+-------|\n")

	var total float64
	for _, l := range s.Lines {
		mark := "--"
		if l.HasMark {
			mark = fmt.Sprintf("%.2f", l.Mark)
		}
		b.WriteString(fmt.Sprintf("| %s | %d | %.4f | %s | %.2f | %.2f | %.2f | %.2f |\n",
			l.Symbol, l.NetQty, l.AvgPrice, mark, l.UPL, l.RPL, l.Fees, l.NLVDelta))
		total += l.NLVDelta
	}
	b.WriteString(fmt.Sprintf("|--------+-----+-----+------+-----+-----+------+-------|\n| Total | | | | | | | %.2f |\n", total))

	return b.String()
}

// FormatFillsOrg renders recorded fills as an Org list.
func FormatFillsOrg(recs []FillRecord) string {
	var b strings.Builder
	for _, r := range recs {
		status := ""
		if !r.Applied {
			status = " [DUPLICATE]"
		}
		b.WriteString(fmt.Sprintf("- %s %s %s %d @ %.4f fees %.2f exec=%s%s\n",
			orDash(r.Fill.TS), r.Fill.Symbol, r.Fill.Side, r.Fill.Qty, r.Fill.Price, r.Fill.Fees,
			orDash(r.Fill.ExecID), status))
	}
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
