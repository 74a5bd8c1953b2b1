package market

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

var (
	// ErrUnknownSymbol is returned when an instrument resolves to a root
	// that has no tick configuration.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrInvalidSymbol is returned when a SymbolConfig fails validation.
	ErrInvalidSymbol = errors.New("invalid symbol config")
)

// SymbolConfig is the tick metadata for an instrument root.
type SymbolConfig struct {
	Root           string  `json:"root" yaml:"root"`
	TickSize       float64 `json:"tick_size" yaml:"tick_size"`
	DollarsPerTick float64 `json:"dollars_per_tick" yaml:"dollars_per_tick"`
}

// Validate checks the tick math inputs. A zero tick size would turn every
// P&L computation into a division by zero, so it is rejected up front.
func (c SymbolConfig) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return fmt.Errorf("%w: root is required", ErrInvalidSymbol)
	}
	if !(c.TickSize > 0) || math.IsInf(c.TickSize, 0) {
		return fmt.Errorf("%w: %s tick_size must be positive, got %v", ErrInvalidSymbol, c.Root, c.TickSize)
	}
	if !(c.DollarsPerTick > 0) || math.IsInf(c.DollarsPerTick, 0) {
		return fmt.Errorf("%w: %s dollars_per_tick must be positive, got %v", ErrInvalidSymbol, c.Root, c.DollarsPerTick)
	}
	return nil
}

// PointValue is the currency value of a one point move for one contract.
func (c SymbolConfig) PointValue() float64 {
	return c.DollarsPerTick / c.TickSize
}

// SymbolTable is an immutable root -> SymbolConfig table. Build it with
// NewSymbolTable; the zero value is an empty table.
type SymbolTable struct {
	byRoot map[string]SymbolConfig
	roots  []string // longest first
}

// NewSymbolTable validates every entry and returns the table.
func NewSymbolTable(cfgs ...SymbolConfig) (SymbolTable, error) {
	byRoot := make(map[string]SymbolConfig, len(cfgs))
	for _, c := range cfgs {
		if err := c.Validate(); err != nil {
			return SymbolTable{}, err
		}
		if _, dup := byRoot[c.Root]; dup {
			return SymbolTable{}, fmt.Errorf("%w: duplicate root %q", ErrInvalidSymbol, c.Root)
		}
		byRoot[c.Root] = c
	}

	roots := make([]string, 0, len(byRoot))
	for r := range byRoot {
		roots = append(roots, r)
	}
	sort.Slice(roots, func(i, j int) bool {
		if len(roots[i]) != len(roots[j]) {
			return len(roots[i]) > len(roots[j])
		}
		return roots[i] < roots[j]
	})

	return SymbolTable{byRoot: byRoot, roots: roots}, nil
}

// MustSymbolTable is NewSymbolTable for static tables known to be valid.
func MustSymbolTable(cfgs ...SymbolConfig) SymbolTable {
	t, err := NewSymbolTable(cfgs...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultSymbols returns the built-in CME micro table.
func DefaultSymbols() SymbolTable {
	return MustSymbolTable(
		SymbolConfig{Root: "MES", TickSize: 0.25, DollarsPerTick: 1.25},
		SymbolConfig{Root: "MCL", TickSize: 0.01, DollarsPerTick: 1.00},
	)
}

// Lookup returns the config for an exact root.
func (t SymbolTable) Lookup(root string) (SymbolConfig, bool) {
	c, ok := t.byRoot[root]
	return c, ok
}

// Len returns the number of configured roots.
func (t SymbolTable) Len() int { return len(t.byRoot) }

// Configs returns the entries sorted by root.
func (t SymbolTable) Configs() []SymbolConfig {
	out := make([]SymbolConfig, 0, len(t.byRoot))
	for _, c := range t.byRoot {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Root < out[j].Root })
	return out
}

// Resolver maps tradable instrument ids ("MESZ5") to their root and tick
// metadata. It holds no state beyond the table it was built with.
type Resolver struct {
	table SymbolTable
}

func NewResolver(table SymbolTable) *Resolver {
	return &Resolver{table: table}
}

// Root returns the configured root that prefixes the instrument. When
// several roots match, the longest one wins. With no match the instrument
// is its own root.
func (r *Resolver) Root(instrument string) string {
	for _, root := range r.table.roots {
		if strings.HasPrefix(instrument, root) {
			return root
		}
	}
	return instrument
}

// Resolve returns the tick metadata for the instrument's root.
func (r *Resolver) Resolve(instrument string) (SymbolConfig, error) {
	root := r.Root(instrument)
	c, ok := r.table.Lookup(root)
	if !ok {
		return SymbolConfig{}, fmt.Errorf("%w: %q (root %q)", ErrUnknownSymbol, instrument, root)
	}
	return c, nil
}
