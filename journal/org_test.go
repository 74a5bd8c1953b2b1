package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/posagg/position"
)

func TestFormatBlotterOrg(t *testing.T) {
	t.Parallel()

	snap := BlotterSnapshot{
		SnapshotID: "01JSNAP",
		RunID:      "01JABCDEFGHJKMNPQRSTVWXYZ0",
		TakenAt:    time.Date(2025, 10, 1, 15, 0, 0, 0, time.UTC),
		Lines: []position.BlotterLine{
			{Symbol: "MCLX5", NetQty: -3, AvgPrice: 61.1, RPL: 15, Fees: 4.75, NLVDelta: 10.25},
			{Symbol: "MESZ5", NetQty: 1, AvgPrice: 4500, Mark: 4510, HasMark: true, UPL: 50, RPL: 25, Fees: 2.85, NLVDelta: 72.15},
		},
	}

	out := FormatBlotterOrg(snap)

	assert.True(t, strings.HasPrefix(out, "** Blotter 2025-10-01T15:00:00Z (01JABCDE)\n"))
	assert.Contains(t, out, ":RUN_ID: 01JABCDEFGHJKMNPQRSTVWXYZ0")
	assert.Contains(t, out, ":SNAPSHOT_ID: 01JSNAP")
	assert.Contains(t, out, "| MCLX5 | -3 | 61.1000 | -- | 0.00 | 15.00 | 4.75 | 10.25 |")
	assert.Contains(t, out, "| MESZ5 | 1 | 4500.0000 | 4510.00 | 50.00 | 25.00 | 2.85 | 72.15 |")
	assert.Contains(t, out, "| Total | | | | | | | 82.40 |")
}

func TestFormatFillsOrg(t *testing.T) {
	t.Parallel()

	out := FormatFillsOrg([]FillRecord{
		{Applied: true, Fill: position.Fill{TS: "09:30", Symbol: "MESZ5", Side: position.Buy, Qty: 2, Price: 4500, Fees: 1.9, ExecID: "E1"}},
		{Applied: false, Fill: position.Fill{Symbol: "MESZ5", Side: position.Buy, Qty: 2, Price: 4500, Fees: 1.9, ExecID: "E1"}},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 2)
	assert.Equal(t, "- 09:30 MESZ5 BUY 2 @ 4500.0000 fees 1.90 exec=E1", lines[0])
	assert.Equal(t, "- - MESZ5 BUY 2 @ 4500.0000 fees 1.90 exec=E1 [DUPLICATE]", lines[1])
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "abc", shortID("abc"))
	assert.Equal(t, "01234567", shortID("0123456789"))
}
