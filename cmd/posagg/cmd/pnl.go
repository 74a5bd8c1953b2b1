package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/calc"
	"github.com/rustyeddy/posagg/market"
)

var pnlCmd = &cobra.Command{
	Use:   "pnl",
	Short: "One-shot P&L for a single round trip",
	Long: `Compute the net P&L of one entry and exit after fees and slippage.

Subcommands:
  futures  - tick based, with per side exchange/clearing/NFA/commission fees
  stocks   - per share, with commission and round trip slippage

Examples:
  posagg pnl futures --entry 4500 --exit 4510 --side long
  posagg pnl futures --symbol MCLX5 --entry 61.10 --exit 60.85 --side short --contracts 3
  posagg pnl stocks --entry 101.20 --exit 102.05 --side long --shares 100`,
}

var pnlFuturesCmd = &cobra.Command{
	Use:   "futures",
	Short: "Futures round trip P&L",
	Args:  cobra.NoArgs,
	RunE:  runPnLFutures,
}

var pnlStocksCmd = &cobra.Command{
	Use:   "stocks",
	Short: "Stock or ETF round trip P&L",
	Args:  cobra.NoArgs,
	RunE:  runPnLStocks,
}

var (
	pnlEntry        float64
	pnlExit         float64
	pnlSide         string
	pnlSymbol       string
	pnlContracts    int64
	pnlTickSize     float64
	pnlDollarsTick  float64
	pnlNoCommission bool
	pnlSlippage     float64
	pnlShares       int64
	pnlCommission   float64
)

func init() {
	rootCmd.AddCommand(pnlCmd)
	pnlCmd.AddCommand(pnlFuturesCmd)
	pnlCmd.AddCommand(pnlStocksCmd)

	pf := pnlCmd.PersistentFlags()
	pf.Float64Var(&pnlEntry, "entry", 0, "entry price (required)")
	pf.Float64Var(&pnlExit, "exit", 0, "exit price (required)")
	pf.StringVar(&pnlSide, "side", "long", "long or short")
	pf.Float64Var(&pnlSlippage, "slippage", -1, "round trip slippage: ticks for futures, $/share for stocks (default from config)")
	pnlCmd.MarkPersistentFlagRequired("entry")
	pnlCmd.MarkPersistentFlagRequired("exit")

	ff := pnlFuturesCmd.Flags()
	ff.StringVar(&pnlSymbol, "symbol", "", "instrument whose configured tick size to use, e.g. MESZ5")
	ff.Int64VarP(&pnlContracts, "contracts", "n", 1, "number of contracts")
	ff.Float64Var(&pnlTickSize, "tick", 0.25, "tick size (ignored with --symbol)")
	ff.Float64Var(&pnlDollarsTick, "dollars-per-tick", 1.25, "dollars per tick (ignored with --symbol)")
	ff.BoolVar(&pnlNoCommission, "no-commission", false, "commission-free plan: only exchange, clearing and NFA fees")

	sf := pnlStocksCmd.Flags()
	sf.Int64VarP(&pnlShares, "shares", "n", 25, "number of shares")
	sf.Float64Var(&pnlCommission, "commission", 0, "commission per share")
}

func runPnLFutures(cmd *cobra.Command, args []string) error {
	dir, err := calc.ParseDirection(pnlSide)
	if err != nil {
		return err
	}

	tick, dpt := pnlTickSize, pnlDollarsTick
	label := "custom"
	if pnlSymbol != "" {
		table, err := cfg.SymbolTable()
		if err != nil {
			return err
		}
		sym, err := market.NewResolver(table).Resolve(pnlSymbol)
		if err != nil {
			return err
		}
		tick, dpt, label = sym.TickSize, sym.DollarsPerTick, pnlSymbol
	}

	fees := cfg.PnL.Fees
	plan := "commissioned"
	if pnlNoCommission {
		fees = fees.NoCommission()
		plan = "no commission"
	}
	slip := pnlSlippage
	if slip < 0 {
		slip = cfg.PnL.SlippageTicks
	}

	res, err := calc.Futures(calc.FuturesTrade{
		Entry:          pnlEntry,
		Exit:           pnlExit,
		Direction:      dir,
		Contracts:      pnlContracts,
		TickSize:       tick,
		DollarsPerTick: dpt,
		Fees:           fees,
		SlippageTicks:  slip,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Contract: %s  Side: %s  Contracts: %d\n", label, dir, pnlContracts)
	fmt.Fprintf(w, "  Entry: %.2f  Exit: %.2f  Tick: %g  $/tick: %g\n", pnlEntry, pnlExit, tick, dpt)
	fmt.Fprintf(w, "  Plan: %s\n", plan)
	fmt.Fprintf(w, "  Gross: $%s (%s ticks)\n", res.Gross.StringFixed(2), res.Ticks.String())
	fmt.Fprintf(w, "  Fees RT: $%s\n", res.Fees.StringFixed(2))
	fmt.Fprintf(w, "  Slippage RT: %g ticks ($%s)\n", slip, res.Slippage.StringFixed(2))
	fmt.Fprintf(w, "  Net P&L: $%s ($%s per contract)\n", res.Net.StringFixed(2), res.NetPerContract.StringFixed(2))
	return nil
}

func runPnLStocks(cmd *cobra.Command, args []string) error {
	dir, err := calc.ParseDirection(pnlSide)
	if err != nil {
		return err
	}
	slip := pnlSlippage
	if slip < 0 {
		slip = cfg.PnL.StockSlippage
	}

	res, err := calc.Stocks(calc.StockTrade{
		Entry:         pnlEntry,
		Exit:          pnlExit,
		Direction:     dir,
		Shares:        pnlShares,
		Commission:    pnlCommission,
		SlippageRound: slip,
	})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Side: %s  Shares: %d\n", dir, pnlShares)
	fmt.Fprintf(w, "  Entry: %.4f  Exit: %.4f\n", pnlEntry, pnlExit)
	fmt.Fprintf(w, "  Costs: commission/share $%.4f, slippage RT/share $%.4f\n", pnlCommission, slip)
	fmt.Fprintf(w, "  P&L per share: $%s\n", res.NetPerShare.StringFixed(2))
	fmt.Fprintf(w, "  P&L total:     $%s\n", res.Net.StringFixed(2))
	return nil
}
