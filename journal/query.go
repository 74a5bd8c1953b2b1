package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rustyeddy/posagg/position"
)

// ErrNotFound is returned when a query matches nothing.
var ErrNotFound = errors.New("not found")

// ListRuns returns every run id with recorded fills, oldest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT DISTINCT run_id FROM fills ORDER BY run_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRun returns the most recent run id.
func (j *SQLite) LatestRun(ctx context.Context) (string, error) {
	var r string
	err := j.db.QueryRowContext(ctx, `SELECT run_id FROM fills ORDER BY record_id DESC LIMIT 1`).Scan(&r)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("latest run: %w", ErrNotFound)
	}
	return r, err
}

// ListFills returns the fills recorded for runID in recording order. An
// empty runID lists every run.
func (j *SQLite) ListFills(ctx context.Context, runID string) ([]FillRecord, error) {
	q := `
		SELECT record_id, run_id, recorded_at, ts, symbol, side, qty, price, fees, account, exec_id, note, applied
		FROM fills`
	var args []any
	if runID != "" {
		q += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	q += ` ORDER BY record_id ASC`

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FillRecord
	for rows.Next() {
		var (
			rec  FillRecord
			side string
		)
		if err := rows.Scan(
			&rec.RecordID,
			&rec.RunID,
			&rec.RecordedAt,
			&rec.Fill.TS,
			&rec.Fill.Symbol,
			&side,
			&rec.Fill.Qty,
			&rec.Fill.Price,
			&rec.Fill.Fees,
			&rec.Fill.Account,
			&rec.Fill.ExecID,
			&rec.Fill.Note,
			&rec.Applied,
		); err != nil {
			return nil, err
		}
		rec.Fill.Side = position.Side(side)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LatestBlotter returns the newest snapshot recorded for runID.
func (j *SQLite) LatestBlotter(ctx context.Context, runID string) (BlotterSnapshot, error) {
	var snapID string
	err := j.db.QueryRowContext(ctx, `
		SELECT snapshot_id FROM blotter
		WHERE run_id = ?
		ORDER BY snapshot_id DESC
		LIMIT 1`, runID).Scan(&snapID)
	if errors.Is(err, sql.ErrNoRows) {
		return BlotterSnapshot{}, fmt.Errorf("blotter for run %q: %w", runID, ErrNotFound)
	}
	if err != nil {
		return BlotterSnapshot{}, err
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT taken_at, symbol, net_qty, avg_price, mark, upl, rpl, fees, nlv_delta
		FROM blotter
		WHERE snapshot_id = ?
		ORDER BY symbol ASC`, snapID)
	if err != nil {
		return BlotterSnapshot{}, err
	}
	defer rows.Close()

	snap := BlotterSnapshot{SnapshotID: snapID, RunID: runID}
	for rows.Next() {
		var (
			l    position.BlotterLine
			mark sql.NullFloat64
		)
		if err := rows.Scan(&snap.TakenAt, &l.Symbol, &l.NetQty, &l.AvgPrice, &mark,
			&l.UPL, &l.RPL, &l.Fees, &l.NLVDelta); err != nil {
			return BlotterSnapshot{}, err
		}
		l.Mark, l.HasMark = mark.Float64, mark.Valid
		snap.Lines = append(snap.Lines, l)
	}
	return snap, rows.Err()
}
