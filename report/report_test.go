package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/posagg/position"
)

var sample = []position.BlotterLine{
	{Symbol: "MCLX5", NetQty: -3, AvgPrice: 61.1, RPL: 15, Fees: 4.75, NLVDelta: 10.25},
	{Symbol: "MESZ5", NetQty: 1, AvgPrice: 4500, Mark: 4510, HasMark: true, UPL: 50, RPL: 25, Fees: 2.85, NLVDelta: 72.15},
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, sample))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, tableHeader, lines[0])
	assert.Equal(t, "MCLX5    -3      61.10       --      0.00     15.00      4.75       10.25", lines[1])
	assert.Equal(t, "MESZ5     1    4500.00  4510.00     50.00     25.00      2.85       72.15", lines[2])
}

func TestWriteTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, nil))
	assert.Equal(t, "No positions.\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Nil(t, got[0]["mark"])
	assert.Equal(t, 4510.0, got[1]["mark"])
	assert.Equal(t, -3.0, got[0]["net_qty"])

	buf.Reset()
	require.NoError(t, WriteJSON(&buf, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample))

	want := "symbol,net_qty,avg_price,mark,upl,rpl,fees,nlv_delta\n" +
		"MCLX5,-3,61.1,,0,15,4.75,10.25\n" +
		"MESZ5,1,4500,4510,50,25,2.85,72.15\n"
	assert.Equal(t, want, buf.String())
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", Table, false},
		{"table", Table, false},
		{"json", JSON, false},
		{"csv", CSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
