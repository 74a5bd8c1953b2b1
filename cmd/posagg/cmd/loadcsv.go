package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/ingest"
)

var loadCSVCmd = &cobra.Command{
	Use:   "load-csv <path> [path...]",
	Short: "Load fills from CSV and show the blotter",
	Long: `Apply every fill in one or more CSV files, in order, to a fresh engine
and print the blotter.

CSV columns: ts,symbol,side,qty,price,fees,account,exec_id,note
(symbol, side, qty and price are required). Fills repeated across files
are dropped by exec_id.

Examples:
  posagg load-csv fills.csv
  posagg load-csv --mark MESZ5=4512.25 --format json monday.csv tuesday.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLoadCSV,
}

func init() {
	rootCmd.AddCommand(loadCSVCmd)
}

func runLoadCSV(cmd *cobra.Command, args []string) error {
	s, err := newSession(cfg, true)
	if err != nil {
		return err
	}

	for _, path := range args {
		fh, err := os.Open(path)
		if err != nil {
			s.close()
			return fmt.Errorf("open fills: %w", err)
		}
		_, err = s.load(cmd.Context(), ingest.NewReader(fh))
		fh.Close()
		if err != nil {
			s.close()
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	return s.finish(cmd.OutOrStdout())
}
