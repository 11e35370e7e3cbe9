package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"stock_sim/internal/app"
	"stock_sim/internal/gateway"
)

func main() {
	// Optional .env for the simulation knobs (SIMULATION_SPEED,
	// MARKET_TICK_SECONDS, FORCE_MARKET_OPEN, ...).
	_ = godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The tick loop runs for the lifetime of the process.
	go bootstrap.Engine.Run(ctx)

	srv := gateway.New(bootstrap.Engine)
	if err := srv.Run(ctx, bootstrap.Config.Server.Listen); err != nil {
		slog.Error("gateway failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("shutting down gracefully")
}
