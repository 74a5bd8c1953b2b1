package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/posagg/config"
	"github.com/rustyeddy/posagg/internal/logger"
	"github.com/rustyeddy/posagg/report"
)

const (
	envConfig    = "POSAGG_CONFIG"
	envRedisAddr = "POSAGG_REDIS_ADDR"
	envLogLevel  = "POSAGG_LOG_LEVEL"
)

// Global flags
var (
	cfgPath     string
	envFile     string
	logLevel    string
	format      string
	journalDB   string
	metricsFile string
	redisAddr   string
	markFlags   []string
)

// Resolved by the root PersistentPreRunE.
var (
	cfg *config.Config
	log *slog.Logger
	out report.Format
)

var rootCmd = &cobra.Command{
	Use:   "posagg",
	Short: "Aggregate futures fills into positions and a P&L blotter",
	Long: `posagg folds execution fills into per-instrument positions using
weighted average cost, and reports realized and unrealized P&L.

It provides tools for:
  - Loading fills from CSV and printing the blotter
  - Applying a single manual fill
  - Journaling fills and blotter snapshots to CSV or SQLite
  - Replaying a journaled run
  - One-shot futures and stock P&L calculations
  - CME session status and next open

Marks come from the config file, --mark flags and optionally Redis.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "config file (YAML or JSON), env "+envConfig)
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before flags are resolved")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (default from config)")
	pf.StringVar(&format, "format", "table", "output format: table|json|csv")
	pf.StringVar(&journalDB, "journal-db", "", "journal fills and blotter to this SQLite file")
	pf.StringVar(&metricsFile, "metrics-file", "", "write Prometheus textfile metrics here on exit")
	pf.StringVar(&redisAddr, "redis-addr", "", "Redis address for live marks, env "+envRedisAddr)
	pf.StringArrayVar(&markFlags, "mark", nil, "mark price as SYMBOL=PRICE (repeatable)")
}

// setup loads .env, the config file and the logger. Flags set on the
// command line win over the environment, which wins over the config file.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	fromEnv(cmd, "config", &cfgPath, envConfig)
	fromEnv(cmd, "redis-addr", &redisAddr, envRedisAddr)
	fromEnv(cmd, "log-level", &logLevel, envLogLevel)

	c := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		c = loaded
	}
	if redisAddr != "" {
		c.Redis.Addr = redisAddr
	}
	if journalDB != "" {
		c.Journal = config.JournalConfig{Type: "sqlite", DBPath: journalDB}
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}

	lvl, err := logger.ParseLevel(c.Log.Level)
	if err != nil {
		return err
	}
	f, err := report.ParseFormat(format)
	if err != nil {
		return err
	}

	cfg = c
	out = f
	log = logger.New(cmd.ErrOrStderr(), "posagg", lvl)
	return nil
}

func fromEnv(cmd *cobra.Command, flag string, dst *string, key string) {
	if cmd.Flags().Changed(flag) {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
