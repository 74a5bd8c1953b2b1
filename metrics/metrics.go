// Package metrics counts what the position engine does. It has its own
// registry so batch runs can dump it as a node-exporter textfile.
package metrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/posagg/market"
	"github.com/rustyeddy/posagg/position"
)

// Metrics holds the engine counters and implements position.Observer.
type Metrics struct {
	FillsApplied   *prometheus.CounterVec // labels: side
	Duplicates     prometheus.Counter
	Rejected       *prometheus.CounterVec // labels: reason
	MalformedRows  prometheus.Counter
	OpenPositions  prometheus.Gauge
	RealizedPnL    prometheus.Gauge
	FeesPaid       prometheus.Gauge
	FilledQty      *prometheus.CounterVec // labels: symbol

	reg *prometheus.Registry

	mu   sync.Mutex
	open map[string]bool
}

func New() *Metrics {
	m := &Metrics{
		FillsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posagg_fills_applied_total",
			Help: "Fills applied to a position",
		}, []string{"side"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posagg_fills_duplicate_total",
			Help: "Fills dropped because their exec id was already applied",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posagg_fills_rejected_total",
			Help: "Fills the engine refused (by reason)",
		}, []string{"reason"}),
		MalformedRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posagg_ingest_malformed_rows_total",
			Help: "Input rows that could not be parsed into a fill",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posagg_open_positions",
			Help: "Instruments with a non-zero net quantity",
		}),
		RealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posagg_realized_pnl_dollars",
			Help: "Realized P&L summed over all applied fills",
		}),
		FeesPaid: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "posagg_fees_dollars",
			Help: "Fees summed over all applied fills (negative for rebates)",
		}),
		FilledQty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posagg_filled_quantity_total",
			Help: "Absolute quantity filled (by instrument)",
		}, []string{"symbol"}),
		reg:  prometheus.NewRegistry(),
		open: make(map[string]bool),
	}

	m.reg.MustRegister(
		m.FillsApplied,
		m.Duplicates,
		m.Rejected,
		m.MalformedRows,
		m.OpenPositions,
		m.RealizedPnL,
		m.FeesPaid,
		m.FilledQty,
	)
	return m
}

func (m *Metrics) FillApplied(f position.Fill, pos position.Position, realized float64) {
	m.FillsApplied.WithLabelValues(string(f.Side)).Inc()
	m.FilledQty.WithLabelValues(f.Symbol).Add(float64(f.Qty))
	m.RealizedPnL.Add(realized)
	m.FeesPaid.Add(f.Fees)

	// Observers run after the engine releases its lock, so concurrent fills
	// on one symbol can arrive out of order and the gauge is approximate
	// until writers quiesce.
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open[pos.Symbol] = !pos.IsFlat()
	n := 0
	for _, o := range m.open {
		if o {
			n++
		}
	}
	m.OpenPositions.Set(float64(n))
}

func (m *Metrics) FillDuplicate(position.Fill) {
	m.Duplicates.Inc()
}

func (m *Metrics) FillRejected(_ position.Fill, err error) {
	reason := "other"
	if errors.Is(err, market.ErrUnknownSymbol) {
		reason = "unknown_symbol"
	}
	m.Rejected.WithLabelValues(reason).Inc()
}

// Malformed counts an input row that never became a fill.
func (m *Metrics) Malformed() {
	m.MalformedRows.Inc()
}

// WriteTextfile writes the registry in the text exposition format,
// atomically replacing path.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

var _ position.Observer = (*Metrics)(nil)
