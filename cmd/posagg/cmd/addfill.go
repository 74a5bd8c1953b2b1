package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/ingest"
	"github.com/rustyeddy/posagg/position"
)

var addFillCmd = &cobra.Command{
	Use:   "add-fill",
	Short: "Apply a single fill and show the blotter",
	Long: `Apply one manually entered fill and print the resulting blotter.
With --seed the fills of a CSV file are applied first.

Examples:
  posagg add-fill --symbol MESZ5 --side BUY --qty 1 --price 4500 --fees 0.95
  posagg add-fill --seed fills.csv --symbol MESZ5 --side SELL --qty 2 --price 4510`,
	Args: cobra.NoArgs,
	RunE: runAddFill,
}

// addFillFields holds the raw flag values; they are validated by
// ingest.ParseRecord exactly like a CSV row.
var (
	addFillFields = make(map[string]*string, len(ingest.Columns))
	addFillSeed   string
)

func init() {
	rootCmd.AddCommand(addFillCmd)

	f := addFillCmd.Flags()
	field := func(name, col, def, usage string) {
		v := new(string)
		addFillFields[col] = v
		f.StringVar(v, name, def, usage)
	}
	field("symbol", "symbol", "", "instrument, e.g. MESZ5 (required)")
	field("side", "side", "", "BUY or SELL (required)")
	field("qty", "qty", "", "contracts, > 0 (required)")
	field("price", "price", "", "fill price (required)")
	field("fees", "fees", "", "fees charged (negative for a rebate)")
	field("exec-id", "exec_id", "", "execution id")
	field("ts", "ts", "", "timestamp")
	field("account", "account", ingest.DefaultAccount, "account")
	field("note", "note", "", "free text")
	f.StringVar(&addFillSeed, "seed", "", "CSV of fills to apply first")

	addFillCmd.MarkFlagRequired("symbol")
	addFillCmd.MarkFlagRequired("side")
	addFillCmd.MarkFlagRequired("qty")
	addFillCmd.MarkFlagRequired("price")
}

func runAddFill(cmd *cobra.Command, args []string) error {
	rec := make(ingest.Record, len(addFillFields))
	for col, v := range addFillFields {
		rec[col] = *v
	}
	fill, err := ingest.ParseRecord(rec)
	if err != nil {
		return err
	}

	s, err := newSession(cfg, true)
	if err != nil {
		return err
	}

	if addFillSeed != "" {
		fh, err := os.Open(addFillSeed)
		if err != nil {
			s.close()
			return fmt.Errorf("open seed: %w", err)
		}
		_, err = s.load(cmd.Context(), ingest.NewReader(fh))
		fh.Close()
		if err != nil {
			s.close()
			return fmt.Errorf("%s: %w", addFillSeed, err)
		}
	}

	if _, err := s.load(cmd.Context(), ingest.NewSliceSource([]position.Fill{fill})); err != nil {
		s.close()
		return err
	}

	return s.finish(cmd.OutOrStdout())
}
