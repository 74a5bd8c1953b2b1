package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/posagg/config"
	"github.com/rustyeddy/posagg/ingest"
	"github.com/rustyeddy/posagg/internal/id"
	"github.com/rustyeddy/posagg/journal"
	"github.com/rustyeddy/posagg/market"
	"github.com/rustyeddy/posagg/metrics"
	"github.com/rustyeddy/posagg/position"
	"github.com/rustyeddy/posagg/report"
)

// session is one CLI run: an engine, its mark sources, journal and
// metrics. finish prints the blotter and releases everything.
type session struct {
	runID   string
	eng     *position.Engine
	marks   *market.MarkStore
	redis   *market.RedisMarks
	journal journal.Journal
	metrics *metrics.Metrics
}

// parseMarks turns SYMBOL=PRICE pairs into a map. Later pairs win.
func parseMarks(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, p := range pairs {
		sym, px, ok := strings.Cut(p, "=")
		sym = strings.TrimSpace(sym)
		if !ok || sym == "" {
			return nil, fmt.Errorf("mark %q: want SYMBOL=PRICE", p)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(px), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("mark %q: bad price", p)
		}
		out[sym] = v
	}
	return out, nil
}

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.FillsFile, jc.BlotterFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

// newSession wires an engine from the resolved config. With journaled
// false the configured journal is ignored.
func newSession(c *config.Config, journaled bool) (*session, error) {
	table, err := c.SymbolTable()
	if err != nil {
		return nil, err
	}

	cliMarks, err := parseMarks(markFlags)
	if err != nil {
		return nil, err
	}
	store := market.NewMarkStore(c.Marks)
	for sym, px := range cliMarks {
		store.Set(sym, px)
	}

	s := &session{
		runID:   id.New(),
		marks:   store,
		journal: journal.Nop{},
		metrics: metrics.New(),
	}

	var provider market.MarkProvider = store
	if c.Redis.Addr != "" {
		rc, err := c.Redis.Market()
		if err != nil {
			return nil, err
		}
		s.redis = market.NewRedisMarks(rc, log)
		provider = market.FallbackMarks{s.redis, store}
	}

	if journaled {
		j, err := openJournal(c.Journal)
		if err != nil {
			if s.redis != nil {
				s.redis.Close()
			}
			return nil, fmt.Errorf("create journal: %w", err)
		}
		s.journal = j
	}

	s.eng = position.NewEngine(market.NewResolver(table), provider,
		position.WithLogger(log),
		position.WithObserver(s.metrics))

	log.Debug("session started",
		"run_id", s.runID,
		"symbols", table.Len(),
		"journal", c.Journal.Type,
		"redis", c.Redis.Addr != "")
	return s, nil
}

// load feeds src into the engine and journals every fill seen.
func (s *session) load(ctx context.Context, src ingest.Source) (ingest.Stats, error) {
	st, err := ingest.Load(ctx, src, s.eng, func(f position.Fill, applied bool) error {
		return s.journal.RecordFill(journal.FillRecord{
			RunID:      s.runID,
			RecordedAt: time.Now().UTC(),
			Fill:       f,
			Applied:    applied,
		})
	})
	if errors.Is(err, ingest.ErrMalformed) {
		s.metrics.Malformed()
	}
	log.Info("fills loaded",
		"run_id", s.runID,
		"rows", st.Rows,
		"applied", st.Applied,
		"duplicates", st.Duplicates)
	return st, err
}

// finish snapshots and prints the blotter, then closes the session.
func (s *session) finish(w io.Writer) error {
	lines := s.eng.Blotter()

	var errs []error
	if len(lines) > 0 {
		err := s.journal.RecordBlotter(journal.BlotterSnapshot{
			RunID:   s.runID,
			TakenAt: time.Now().UTC(),
			Lines:   lines,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("journal blotter: %w", err))
		}
	}

	if err := report.Write(w, out, lines); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, s.close())
	return errors.Join(errs...)
}

// close writes the metrics file and releases the journal and mark
// sources. Commands call it directly when a load fails so the metrics
// still record the failure.
func (s *session) close() error {
	var errs []error
	if metricsFile != "" {
		if err := s.metrics.WriteTextfile(metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	if err := s.journal.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close journal: %w", err))
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Debug("close redis", "err", err)
		}
	}
	return errors.Join(errs...)
}
