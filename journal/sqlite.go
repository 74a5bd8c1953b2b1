package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/posagg/internal/id"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordFill(r FillRecord) error {
	if r.RecordID == "" {
		r.RecordID = id.New()
	}
	_, err := j.db.Exec(`
		INSERT INTO fills
		(record_id, run_id, recorded_at, ts, symbol, side, qty, price, fees, account, exec_id, note, applied)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RecordID, r.RunID, r.RecordedAt.UTC(), r.Fill.TS, r.Fill.Symbol, string(r.Fill.Side),
		r.Fill.Qty, r.Fill.Price, r.Fill.Fees, r.Fill.Account, r.Fill.ExecID, r.Fill.Note, r.Applied,
	)
	return err
}

// RecordBlotter writes all lines of a snapshot in one transaction.
func (j *SQLite) RecordBlotter(s BlotterSnapshot) error {
	if s.SnapshotID == "" {
		s.SnapshotID = id.New()
	}

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO blotter
		(snapshot_id, run_id, taken_at, symbol, net_qty, avg_price, mark, upl, rpl, fees, nlv_delta)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range s.Lines {
		mark := sql.NullFloat64{Float64: l.Mark, Valid: l.HasMark}
		_, err := stmt.Exec(s.SnapshotID, s.RunID, s.TakenAt.UTC(), l.Symbol, l.NetQty, l.AvgPrice,
			mark, l.UPL, l.RPL, l.Fees, l.NLVDelta)
		if err != nil {
			return fmt.Errorf("insert blotter line %s: %w", l.Symbol, err)
		}
	}
	return tx.Commit()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
