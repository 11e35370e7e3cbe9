package infra

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"stock_sim/internal/clock"
)

// Listing is one entry of the tradable universe.
type Listing struct {
	Symbol string `yaml:"symbol"`
	Name   string `yaml:"name"`
}

// Config holds all application settings. After loading, environment
// variables override the simulation knobs.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Market struct {
		Timezone        string    `yaml:"timezone"`
		MorningOpen     string    `yaml:"morning_open"`
		MorningClose    string    `yaml:"morning_close"`
		AfternoonOpen   string    `yaml:"afternoon_open"`
		AfternoonClose  string    `yaml:"afternoon_close"`
		TickSeconds     float64   `yaml:"tick_seconds"`
		SimulationSpeed float64   `yaml:"simulation_speed"`
		ForceOpen       bool      `yaml:"force_open"`
		LimitRatio      float64   `yaml:"limit_ratio"`
		HistoryLimit    int       `yaml:"history_limit"`
		Universe        []Listing `yaml:"universe"`
	} `yaml:"market"`

	Account struct {
		InitialCash float64 `yaml:"initial_cash"`
	} `yaml:"account"`

	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the configuration file, applies defaults
// for omitted fields, environment overrides, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Market.Timezone == "" {
		c.Market.Timezone = "Asia/Shanghai"
	}
	if c.Market.MorningOpen == "" {
		c.Market.MorningOpen = "09:30"
	}
	if c.Market.MorningClose == "" {
		c.Market.MorningClose = "11:30"
	}
	if c.Market.AfternoonOpen == "" {
		c.Market.AfternoonOpen = "13:00"
	}
	if c.Market.AfternoonClose == "" {
		c.Market.AfternoonClose = "15:00"
	}
	if c.Market.TickSeconds == 0 {
		c.Market.TickSeconds = 2.0
	}
	if c.Market.SimulationSpeed == 0 {
		c.Market.SimulationSpeed = 1.0
	}
	if c.Market.LimitRatio == 0 {
		c.Market.LimitRatio = 0.1
	}
	if c.Market.HistoryLimit == 0 {
		c.Market.HistoryLimit = 240
	}
	if c.Account.InitialCash == 0 {
		c.Account.InitialCash = 100000
	}
	if c.Server.Listen == "" {
		c.Server.Listen = ":8000"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/simulator.db"
	}
	if c.Logging.Dir == "" {
		c.Logging.Dir = "logs"
	}
	if c.Logging.File == "" {
		c.Logging.File = "simulator.log"
	}
}

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if _, err := clock.New(c.ClockConfig()); err != nil {
		return err
	}
	if c.Market.LimitRatio <= 0 || c.Market.LimitRatio >= 1 {
		return fmt.Errorf("limit ratio must be in (0, 1), got %v", c.Market.LimitRatio)
	}
	if c.Market.HistoryLimit <= 0 {
		return fmt.Errorf("history limit must be positive")
	}
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("initial cash must be positive")
	}
	seen := make(map[string]bool, len(c.Market.Universe))
	for _, l := range c.Market.Universe {
		if l.Symbol == "" {
			return fmt.Errorf("universe entries require a symbol")
		}
		if seen[l.Symbol] {
			return fmt.Errorf("duplicate universe symbol %s", l.Symbol)
		}
		seen[l.Symbol] = true
	}
	return nil
}

// ClockConfig maps the market section onto the session-clock config.
func (c *Config) ClockConfig() clock.Config {
	return clock.Config{
		Timezone:        c.Market.Timezone,
		MorningOpen:     c.Market.MorningOpen,
		MorningClose:    c.Market.MorningClose,
		AfternoonOpen:   c.Market.AfternoonOpen,
		AfternoonClose:  c.Market.AfternoonClose,
		TickSeconds:     c.Market.TickSeconds,
		SimulationSpeed: c.Market.SimulationSpeed,
		ForceOpen:       c.Market.ForceOpen,
	}
}

// overrideWithEnv applies the simulation knobs honored by the runtime
// environment on top of the file-based configuration.
func overrideWithEnv(cfg *Config) {
	if v := os.Getenv("SIMULATION_SPEED"); v != "" {
		if speed, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Market.SimulationSpeed = speed
		}
	}
	if v := os.Getenv("MARKET_TICK_SECONDS"); v != "" {
		if tick, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Market.TickSeconds = tick
		}
	}
	if v := os.Getenv("FORCE_MARKET_OPEN"); v != "" {
		cfg.Market.ForceOpen = v == "1"
	}
	if v := os.Getenv("SIMULATOR_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("SIMULATOR_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
}
