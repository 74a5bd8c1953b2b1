package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/posagg/internal/id"
)

var (
	fillHeader    = []string{"record_id", "run_id", "recorded_at", "ts", "symbol", "side", "qty", "price", "fees", "account", "exec_id", "note", "applied"}
	blotterHeader = []string{"snapshot_id", "run_id", "taken_at", "symbol", "net_qty", "avg_price", "mark", "upl", "rpl", "fees", "nlv_delta"}
)

type CSVJournal struct {
	fills   *csv.Writer
	blotter *csv.Writer
	ff, bf  *os.File
}

func NewCSV(fillsPath, blotterPath string) (*CSVJournal, error) {
	ff, err := os.Create(fillsPath)
	if err != nil {
		return nil, err
	}
	bf, err := os.Create(blotterPath)
	if err != nil {
		ff.Close()
		return nil, err
	}

	fw := csv.NewWriter(ff)
	bw := csv.NewWriter(bf)

	if err := fw.Write(fillHeader); err != nil {
		return nil, err
	}
	if err := bw.Write(blotterHeader); err != nil {
		return nil, err
	}

	fw.Flush()
	if err := fw.Error(); err != nil {
		return nil, err
	}
	bw.Flush()
	if err := bw.Error(); err != nil {
		return nil, err
	}

	return &CSVJournal{fw, bw, ff, bf}, nil
}

func (j *CSVJournal) RecordFill(r FillRecord) error {
	if r.RecordID == "" {
		r.RecordID = id.New()
	}
	err := j.fills.Write([]string{
		r.RecordID,
		r.RunID,
		r.RecordedAt.UTC().Format(time.RFC3339Nano),
		r.Fill.TS,
		r.Fill.Symbol,
		string(r.Fill.Side),
		strconv.FormatInt(r.Fill.Qty, 10),
		f(r.Fill.Price),
		f(r.Fill.Fees),
		r.Fill.Account,
		r.Fill.ExecID,
		r.Fill.Note,
		strconv.FormatBool(r.Applied),
	})
	if err != nil {
		return err
	}
	j.fills.Flush()
	return j.fills.Error()
}

func (j *CSVJournal) RecordBlotter(s BlotterSnapshot) error {
	if s.SnapshotID == "" {
		s.SnapshotID = id.New()
	}
	taken := s.TakenAt.UTC().Format(time.RFC3339Nano)
	for _, l := range s.Lines {
		mark := ""
		if l.HasMark {
			mark = f(l.Mark)
		}
		err := j.blotter.Write([]string{
			s.SnapshotID,
			s.RunID,
			taken,
			l.Symbol,
			strconv.FormatInt(l.NetQty, 10),
			f(l.AvgPrice),
			mark,
			f(l.UPL),
			f(l.RPL),
			f(l.Fees),
			f(l.NLVDelta),
		})
		if err != nil {
			return err
		}
	}
	j.blotter.Flush()
	return j.blotter.Error()
}

func (j *CSVJournal) Close() error {
	j.fills.Flush()
	if err := j.fills.Error(); err != nil {
		return err
	}
	j.blotter.Flush()
	if err := j.blotter.Error(); err != nil {
		return err
	}

	if err := j.ff.Close(); err != nil {
		return err
	}
	return j.bf.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
