// Package ingest turns CSV rows and loose field values into position.Fill
// values. It is the only place fills are validated; the engine trusts
// whatever it is given.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/rustyeddy/posagg/position"
)

// ErrMalformed wraps every rejection of an input row.
var ErrMalformed = errors.New("malformed fill")

// Columns is the canonical header order.
var Columns = []string{"ts", "symbol", "side", "qty", "price", "fees", "account", "exec_id", "note"}

var required = []string{"symbol", "side", "qty", "price"}

// DefaultAccount is used when a row carries no account.
const DefaultAccount = "default"

// Record is a raw fill keyed by column name.
type Record map[string]string

// ParseRecord validates a raw record and builds the fill.
func ParseRecord(rec Record) (position.Fill, error) {
	for _, col := range required {
		if strings.TrimSpace(rec[col]) == "" {
			return position.Fill{}, fmt.Errorf("%w: missing %s", ErrMalformed, col)
		}
	}

	side, err := position.ParseSide(rec["side"])
	if err != nil {
		return position.Fill{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(rec["qty"]), 10, 64)
	if err != nil {
		return position.Fill{}, fmt.Errorf("%w: bad qty %q", ErrMalformed, rec["qty"])
	}
	if qty <= 0 {
		return position.Fill{}, fmt.Errorf("%w: qty must be positive, got %d", ErrMalformed, qty)
	}

	price, err := parseNumber(rec["price"])
	if err != nil {
		return position.Fill{}, fmt.Errorf("%w: bad price %q", ErrMalformed, rec["price"])
	}

	var fees float64
	if s := strings.TrimSpace(rec["fees"]); s != "" {
		fees, err = parseNumber(s)
		if err != nil {
			return position.Fill{}, fmt.Errorf("%w: bad fees %q", ErrMalformed, rec["fees"])
		}
	}

	account := strings.TrimSpace(rec["account"])
	if account == "" {
		account = DefaultAccount
	}

	return position.Fill{
		TS:      strings.TrimSpace(rec["ts"]),
		Symbol:  strings.TrimSpace(rec["symbol"]),
		Side:    side,
		Qty:     qty,
		Price:   price,
		Fees:    fees,
		Account: account,
		ExecID:  strings.TrimSpace(rec["exec_id"]),
		Note:    rec["note"],
	}, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not finite: %q", s)
	}
	return v, nil
}

// Reader streams fills from CSV with a header row. Columns are matched by
// name, case-insensitively; unknown columns are ignored.
type Reader struct {
	r      *csv.Reader
	index  map[string]int
	line   int
	header bool
}

func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{r: cr}
}

func (r *Reader) readHeader() error {
	row, err := r.r.Read()
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return err
	}
	r.line++

	r.index = make(map[string]int, len(row))
	for i, name := range row {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		r.index[name] = i
	}
	for _, col := range required {
		if _, ok := r.index[col]; !ok {
			return fmt.Errorf("%w: header missing column %q", ErrMalformed, col)
		}
	}
	r.header = true
	return nil
}

// Next returns the next fill. ok is false at end of input.
func (r *Reader) Next() (position.Fill, bool, error) {
	if !r.header {
		if err := r.readHeader(); err != nil {
			if err == io.EOF {
				return position.Fill{}, false, nil
			}
			return position.Fill{}, false, err
		}
	}

	for {
		row, err := r.r.Read()
		if err == io.EOF {
			return position.Fill{}, false, nil
		}
		if err != nil {
			return position.Fill{}, false, err
		}
		r.line++

		if blank(row) {
			continue
		}

		rec := make(Record, len(r.index))
		for name, i := range r.index {
			if i < len(row) {
				rec[name] = row[i]
			}
		}

		f, err := ParseRecord(rec)
		if err != nil {
			return position.Fill{}, false, fmt.Errorf("line %d: %w", r.line, err)
		}
		return f, true, nil
	}
}

// Line is the number of CSV records consumed so far, header included.
func (r *Reader) Line() int { return r.line }

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteFills writes fills in the canonical column order.
func WriteFills(w io.Writer, fills []position.Fill) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, f := range fills {
		err := cw.Write([]string{
			f.TS,
			f.Symbol,
			string(f.Side),
			strconv.FormatInt(f.Qty, 10),
			strconv.FormatFloat(f.Price, 'f', -1, 64),
			strconv.FormatFloat(f.Fees, 'f', -1, 64),
			f.Account,
			f.ExecID,
			f.Note,
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
