package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/posagg/calc"
	"github.com/rustyeddy/posagg/market"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Len(t, cfg.Symbols, 2)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, 0.39, cfg.PnL.Fees.Commission)
	assert.NoError(t, cfg.Validate())

	table, err := cfg.SymbolTable()
	require.NoError(t, err)
	mes, ok := table.Lookup("MES")
	require.True(t, ok)
	assert.Equal(t, 0.25, mes.TickSize)
	assert.Equal(t, 1.25, mes.DollarsPerTick)
}

func TestValidate(t *testing.T) {
	with := func(mut func(*Config)) *Config {
		c := Default()
		mut(c)
		return c
	}

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			config:  Default(),
			wantErr: false,
		},
		{
			name:    "no symbols",
			config:  with(func(c *Config) { c.Symbols = nil }),
			wantErr: true,
			errMsg:  "at least one symbol",
		},
		{
			name: "zero tick size",
			config: with(func(c *Config) {
				c.Symbols = append(c.Symbols, market.SymbolConfig{Root: "ZN", TickSize: 0, DollarsPerTick: 15.625})
			}),
			wantErr: true,
			errMsg:  "ZN tick_size must be positive",
		},
		{
			name: "duplicate root",
			config: with(func(c *Config) {
				c.Symbols = append(c.Symbols, market.SymbolConfig{Root: "MES", TickSize: 0.25, DollarsPerTick: 1.25})
			}),
			wantErr: true,
			errMsg:  "MES",
		},
		{
			name:    "bad redis timeout",
			config:  with(func(c *Config) { c.Redis.Timeout = "soon" }),
			wantErr: true,
			errMsg:  "redis.timeout",
		},
		{
			name:    "unknown journal type",
			config:  with(func(c *Config) { c.Journal.Type = "postgres" }),
			wantErr: true,
			errMsg:  "journal.type must be",
		},
		{
			name:    "csv journal without files",
			config:  with(func(c *Config) { c.Journal.Type = "csv" }),
			wantErr: true,
			errMsg:  "fills_file and blotter_file",
		},
		{
			name:    "sqlite journal without path",
			config:  with(func(c *Config) { c.Journal.Type = "sqlite" }),
			wantErr: true,
			errMsg:  "db_path required",
		},
		{
			name:    "sqlite journal",
			config:  with(func(c *Config) { c.Journal = JournalConfig{Type: "sqlite", DBPath: "posagg.db"} }),
			wantErr: false,
		},
		{
			name:    "bad log level",
			config:  with(func(c *Config) { c.Log.Level = "chatty" }),
			wantErr: true,
			errMsg:  "log.level",
		},
		{
			name:    "unknown display zone",
			config:  with(func(c *Config) { c.Session.DisplayTZ = "Mars/Olympus" }),
			wantErr: true,
			errMsg:  "session.display_tz",
		},
		{
			name:    "negative slippage",
			config:  with(func(c *Config) { c.PnL.SlippageTicks = -1 }),
			wantErr: true,
			errMsg:  "slippage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Marks = map[string]float64{"MESZ5": 4512.25}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			_, err = os.Stat(path)
			require.NoError(t, err)

			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			assert.Equal(t, cfg.Symbols, loaded.Symbols)
			assert.Equal(t, cfg.Marks, loaded.Marks)
			assert.Equal(t, cfg.Redis, loaded.Redis)
			assert.Equal(t, cfg.Journal, loaded.Journal)
			assert.Equal(t, cfg.PnL, loaded.PnL)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "posagg.yaml")
	data := `
symbols:
  - root: ES
    tick_size: 0.25
    dollars_per_tick: 12.5
  - root: ESTX
    tick_size: 1
    dollars_per_tick: 10
marks:
  ESZ5: 6001.5
journal:
  type: csv
  fills_file: fills.csv
  blotter_file: blotter.csv
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Symbols, 2)
	assert.Equal(t, 6001.5, cfg.Marks["ESZ5"])
	assert.Equal(t, "csv", cfg.Journal.Type)
}

func TestLoadKeepsDefaultsForMissingSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "symbols.yaml")
	data := "symbols:\n  - root: MES\n    tick_size: 0.25\n    dollars_per_tick: 1.25\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	require.Len(t, cfg.Symbols, 1)
	assert.Equal(t, calc.DefaultFuturesFees(), cfg.PnL.Fees)
	assert.Equal(t, 1.0, cfg.PnL.SlippageTicks)
	assert.Equal(t, calc.DefaultStockSlippage, cfg.PnL.StockSlippage)
	assert.Equal(t, "mark:", cfg.Redis.Prefix)
	assert.Equal(t, "none", cfg.Journal.Type)
	assert.Equal(t, "UTC", cfg.Session.DisplayTZ)

	jsonPath := filepath.Join(t.TempDir(), "symbols.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"symbols":[{"root":"MCL","tick_size":0.01,"dollars_per_tick":1}],"pnl":{"slippage_ticks":2}}`), 0644))

	cfg, err = LoadFromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.PnL.SlippageTicks)
	assert.Equal(t, calc.DefaultFuturesFees(), cfg.PnL.Fees)
}

func TestLoadRejectsBadTick(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	data := "symbols:\n  - root: MES\n    tick_size: 0\n    dollars_per_tick: 1.25\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, market.ErrInvalidSymbol)
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)
}

func TestRedisParseTimeout(t *testing.T) {
	tests := []struct {
		timeout  string
		expected time.Duration
		wantErr  bool
	}{
		{"50ms", 50 * time.Millisecond, false},
		{"1s", time.Second, false},
		{"", 0, false},
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.timeout, func(t *testing.T) {
			r := RedisConfig{Timeout: tt.timeout}
			d, err := r.ParseTimeout()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expected, d)
			}
		})
	}

	mc, err := RedisConfig{Addr: "localhost:6379", Prefix: "px:", Timeout: "20ms"}.Market()
	require.NoError(t, err)
	assert.Equal(t, "px:", mc.Prefix)
	assert.Equal(t, 20*time.Millisecond, mc.Timeout)
}
