package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/vitormoschetta/movierecs/internal/app"
	"github.com/vitormoschetta/movierecs/internal/config"
	"github.com/vitormoschetta/movierecs/internal/logging"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// no modo terminal os logs não podem sujar a conversa
	if !cfg.RunHTTPServer && cfg.LogFile == "" && cfg.LogLevel == "info" {
		cfg.LogLevel = "error"
	}
	if _, err := logging.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
	}
	if envErr != nil {
		slog.Debug("dotenv_not_loaded", "error", envErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, cfg); err != nil {
		slog.Error("run_failed", "error", err)
		os.Exit(1)
	}
}
