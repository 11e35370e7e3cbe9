package app

import (
	"log/slog"
	"os"

	"github.com/shopspring/decimal"

	"stock_sim/internal/clock"
	"stock_sim/internal/domain"
	"stock_sim/internal/engine"
	"stock_sim/internal/infra"
	"stock_sim/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config *infra.Config
	Clock  *clock.SessionClock
	Store  domain.PortfolioStore
	Engine *engine.Engine
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize wires config, logging, storage, clock and engine.
func (b *Bootstrap) Initialize() error {
	configPath := os.Getenv("SIMULATOR_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("configuration loaded",
		slog.String("app", cfg.App.Name),
		slog.String("config", configPath))

	sessionClock, err := clock.New(cfg.ClockConfig())
	if err != nil {
		return err
	}
	b.Clock = sessionClock

	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("database initialized", slog.String("path", cfg.Storage.Path))

	universe := make([]engine.Listing, 0, len(cfg.Market.Universe))
	for _, l := range cfg.Market.Universe {
		universe = append(universe, engine.Listing{Symbol: l.Symbol, Name: l.Name})
	}

	b.Engine = engine.New(engine.Options{
		Clock:        sessionClock,
		Store:        store,
		LimitRatio:   decimal.NewFromFloat(cfg.Market.LimitRatio),
		HistoryLimit: cfg.Market.HistoryLimit,
		InitialCash:  decimal.NewFromFloat(cfg.Account.InitialCash),
		Universe:     universe,
	})
	slog.Info("market engine ready")

	return nil
}
