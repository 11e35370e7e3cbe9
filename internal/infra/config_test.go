package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
app:
  name: stock-sim
  version: "1.0"
market:
  universe:
    - symbol: TENC
      name: 腾讯控股
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Market.Timezone != "Asia/Shanghai" {
		t.Errorf("expected default timezone, got %s", cfg.Market.Timezone)
	}
	if cfg.Market.TickSeconds != 2.0 {
		t.Errorf("expected default tick 2.0, got %v", cfg.Market.TickSeconds)
	}
	if cfg.Market.LimitRatio != 0.1 {
		t.Errorf("expected default limit ratio 0.1, got %v", cfg.Market.LimitRatio)
	}
	if cfg.Market.HistoryLimit != 240 {
		t.Errorf("expected default history limit 240, got %d", cfg.Market.HistoryLimit)
	}
	if cfg.Account.InitialCash != 100000 {
		t.Errorf("expected default initial cash 100000, got %v", cfg.Account.InitialCash)
	}
	if len(cfg.Market.Universe) != 1 || cfg.Market.Universe[0].Symbol != "TENC" {
		t.Errorf("unexpected universe: %+v", cfg.Market.Universe)
	}
	if cfg.Logging.File != "simulator.log" {
		t.Errorf("expected default log file simulator.log, got %s", cfg.Logging.File)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SIMULATION_SPEED", "4.5")
	t.Setenv("MARKET_TICK_SECONDS", "0.5")
	t.Setenv("FORCE_MARKET_OPEN", "1")
	t.Setenv("SIMULATOR_DB_PATH", "/tmp/override.db")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Market.SimulationSpeed != 4.5 {
		t.Errorf("expected speed override 4.5, got %v", cfg.Market.SimulationSpeed)
	}
	if cfg.Market.TickSeconds != 0.5 {
		t.Errorf("expected tick override 0.5, got %v", cfg.Market.TickSeconds)
	}
	if !cfg.Market.ForceOpen {
		t.Error("expected force open override")
	}
	if cfg.Storage.Path != "/tmp/override.db" {
		t.Errorf("expected db path override, got %s", cfg.Storage.Path)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestConfig_ValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad timezone", func(c *Config) { c.Market.Timezone = "Nope/Nope" }},
		{"limit ratio too large", func(c *Config) { c.Market.LimitRatio = 2 }},
		{"negative history limit", func(c *Config) { c.Market.HistoryLimit = -1 }},
		{"negative cash", func(c *Config) { c.Account.InitialCash = -5 }},
		{"empty symbol", func(c *Config) { c.Market.Universe = []Listing{{Name: "x"}} }},
		{"duplicate symbol", func(c *Config) {
			c.Market.Universe = []Listing{{Symbol: "A", Name: "a"}, {Symbol: "A", Name: "b"}}
		}},
	}

	for _, tc := range cases {
		var cfg Config
		cfg.applyDefaults()
		tc.mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}
