package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/posagg/calc"
	"github.com/rustyeddy/posagg/market"
)

// Config is the complete posagg configuration.
type Config struct {
	Symbols []market.SymbolConfig `json:"symbols" yaml:"symbols"`
	Marks   map[string]float64    `json:"marks,omitempty" yaml:"marks,omitempty"`
	Redis   RedisConfig           `json:"redis" yaml:"redis"`
	Journal JournalConfig         `json:"journal" yaml:"journal"`
	Log     LogConfig             `json:"log" yaml:"log"`
	PnL     PnLConfig             `json:"pnl" yaml:"pnl"`
	Session SessionConfig         `json:"session" yaml:"session"`
}

// RedisConfig points at an optional live mark source. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`
	DB       int    `json:"db" yaml:"db"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Timeout  string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "50ms"
}

// ParseTimeout converts the timeout string to time.Duration.
func (r RedisConfig) ParseTimeout() (time.Duration, error) {
	if r.Timeout == "" {
		return 0, nil
	}
	return time.ParseDuration(r.Timeout)
}

// Market converts the section into market.RedisConfig.
func (r RedisConfig) Market() (market.RedisConfig, error) {
	d, err := r.ParseTimeout()
	if err != nil {
		return market.RedisConfig{}, err
	}
	return market.RedisConfig{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
		Prefix:   r.Prefix,
		Timeout:  d,
	}, nil
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type        string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	FillsFile   string `json:"fills_file,omitempty" yaml:"fills_file,omitempty"`
	BlotterFile string `json:"blotter_file,omitempty" yaml:"blotter_file,omitempty"`
	DBPath      string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// PnLConfig holds the defaults for `posagg pnl`.
type PnLConfig struct {
	Fees          calc.FuturesFees `json:"fees" yaml:"fees"`
	SlippageTicks float64          `json:"slippage_ticks" yaml:"slippage_ticks"`
	StockSlippage float64          `json:"stock_slippage" yaml:"stock_slippage"`
}

// SessionConfig drives `posagg session`. An empty CalendarFile selects the
// built-in CME Globex schedule.
type SessionConfig struct {
	CalendarFile string `json:"calendar_file,omitempty" yaml:"calendar_file,omitempty"`
	DisplayTZ    string `json:"display_tz" yaml:"display_tz"`
}

// LoadFromFile loads configuration from a file (YAML or JSON)
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Sections the file leaves out keep their defaults.
	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks the configuration. Symbol tick math is validated here so
// a bad tick size fails at load instead of on the first fill.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols: at least one symbol is required")
	}
	if _, err := c.SymbolTable(); err != nil {
		return fmt.Errorf("symbols: %w", err)
	}
	for sym, px := range c.Marks {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("marks: empty instrument")
		}
		if math.IsNaN(px) || math.IsInf(px, 0) {
			return fmt.Errorf("marks.%s must be a finite price", sym)
		}
	}
	if _, err := c.Redis.ParseTimeout(); err != nil {
		return fmt.Errorf("redis.timeout: %w", err)
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("redis.db must not be negative")
	}
	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.BlotterFile == "" {
			return fmt.Errorf("journal fills_file and blotter_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'none', 'csv' or 'sqlite'")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	if c.PnL.SlippageTicks < 0 || c.PnL.StockSlippage < 0 {
		return fmt.Errorf("pnl slippage must not be negative")
	}
	if c.Session.DisplayTZ != "" {
		if _, err := time.LoadLocation(c.Session.DisplayTZ); err != nil {
			return fmt.Errorf("session.display_tz: %w", err)
		}
	}
	return nil
}

// SymbolTable builds the immutable resolver table from the symbols section.
func (c *Config) SymbolTable() (market.SymbolTable, error) {
	return market.NewSymbolTable(c.Symbols...)
}

// Default returns a configuration with the micro futures roots and no
// journal.
func Default() *Config {
	return &Config{
		Symbols: market.DefaultSymbols().Configs(),
		Redis: RedisConfig{
			Prefix:  "mark:",
			Timeout: "50ms",
		},
		Journal: JournalConfig{
			Type: "none",
		},
		Log: LogConfig{
			Level: "info",
		},
		PnL: PnLConfig{
			Fees:          calc.DefaultFuturesFees(),
			SlippageTicks: 1,
			StockSlippage: calc.DefaultStockSlippage,
		},
		Session: SessionConfig{
			DisplayTZ: "UTC",
		},
	}
}
