package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/ingest"
	"github.com/rustyeddy/posagg/internal/id"
	"github.com/rustyeddy/posagg/journal"
	"github.com/rustyeddy/posagg/position"
	"github.com/rustyeddy/posagg/report"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the SQLite journal",
	Long: `Query fills and blotter snapshots recorded in a SQLite journal.

Subcommands:
  runs     - List recorded run ids and when each started
  fills    - List the fills of a run (--format csv re-emits them for load-csv)
  blotter  - Show the last blotter snapshot of a run

Output is Org-mode unless --format is json or csv.

Examples:
  posagg journal runs
  posagg journal fills --run 01JB6Q7V3X2K9M4N8P0R5S7T1W
  posagg journal blotter --db ./posagg.sqlite`,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded run ids",
	Args:  cobra.NoArgs,
	RunE:  runJournalRuns,
}

var journalFillsCmd = &cobra.Command{
	Use:   "fills",
	Short: "List the fills of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalFills,
}

var journalBlotterCmd = &cobra.Command{
	Use:   "blotter",
	Short: "Show the last blotter snapshot of a run",
	Args:  cobra.NoArgs,
	RunE:  runJournalBlotter,
}

var (
	journalDBPath string
	journalRunID  string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalRunsCmd)
	journalCmd.AddCommand(journalFillsCmd)
	journalCmd.AddCommand(journalBlotterCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./posagg.sqlite", "path to SQLite journal DB")
	journalCmd.PersistentFlags().StringVar(&journalRunID, "run", "", "run id (default: latest run)")
}

func openJournalRun(cmd *cobra.Command) (*journal.SQLite, string, error) {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return nil, "", fmt.Errorf("open db: %w", err)
	}
	runID := journalRunID
	if runID == "" {
		runID, err = j.LatestRun(cmd.Context())
		if err != nil {
			j.Close()
			return nil, "", err
		}
	}
	return j, runID, nil
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(cmd.Context())
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	for _, r := range runs {
		started, err := id.Time(r)
		if err != nil {
			fmt.Fprintln(cmd.OutOrStdout(), r)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", r, started.UTC().Format(time.RFC3339))
	}
	return nil
}

func runJournalFills(cmd *cobra.Command, args []string) error {
	j, runID, err := openJournalRun(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	recs, err := j.ListFills(cmd.Context(), runID)
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}

	switch out {
	case report.JSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	case report.CSV:
		// Applied fills only, in the load-csv column layout.
		fills := make([]position.Fill, 0, len(recs))
		for _, r := range recs {
			if r.Applied {
				fills = append(fills, r.Fill)
			}
		}
		return ingest.WriteFills(cmd.OutOrStdout(), fills)
	default:
		fmt.Fprint(cmd.OutOrStdout(), journal.FormatFillsOrg(recs))
		return nil
	}
}

func runJournalBlotter(cmd *cobra.Command, args []string) error {
	j, runID, err := openJournalRun(cmd)
	if err != nil {
		return err
	}
	defer j.Close()

	snap, err := j.LatestBlotter(cmd.Context(), runID)
	if err != nil {
		return err
	}

	if out == report.Table {
		fmt.Fprint(cmd.OutOrStdout(), journal.FormatBlotterOrg(snap))
		return nil
	}
	return report.Write(cmd.OutOrStdout(), out, snap.Lines)
}
