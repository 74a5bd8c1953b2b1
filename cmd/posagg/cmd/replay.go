package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/ingest"
	"github.com/rustyeddy/posagg/journal"
	"github.com/rustyeddy/posagg/position"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Rebuild the blotter of a journaled run",
	Long: `Re-apply the fills recorded for a run in a SQLite journal to a fresh
engine and print the blotter with current marks. Fills that were dropped
as duplicates are fed again and dropped again.

Examples:
  posagg replay --db posagg.sqlite
  posagg replay --db posagg.sqlite --run 01JB6Q7V3X2K9M4N8P0R5S7T1W --mark MESZ5=4520`,
	Args: cobra.NoArgs,
	RunE: runReplay,
}

var (
	replayDBPath string
	replayRunID  string
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayDBPath, "db", "d", "./posagg.sqlite", "SQLite journal path")
	replayCmd.Flags().StringVar(&replayRunID, "run", "", "run id (default: latest run)")
}

func runReplay(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	j, err := journal.NewSQLite(replayDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runID := replayRunID
	if runID == "" {
		runID, err = j.LatestRun(ctx)
		if err != nil {
			return err
		}
	}

	recs, err := j.ListFills(ctx, runID)
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}
	fills := make([]position.Fill, 0, len(recs))
	for _, r := range recs {
		fills = append(fills, r.Fill)
	}

	s, err := newSession(cfg, false)
	if err != nil {
		return err
	}
	st, err := s.load(ctx, ingest.NewSliceSource(fills))
	if err != nil {
		s.close()
		return fmt.Errorf("replay run %s: %w", runID, err)
	}

	log.Info("replay complete", "run_id", runID, "applied", st.Applied, "duplicates", st.Duplicates)
	return s.finish(cmd.OutOrStdout())
}
