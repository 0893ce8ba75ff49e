package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/vitormoschetta/movierecs/internal/app"
	"github.com/vitormoschetta/movierecs/internal/config"
	"github.com/vitormoschetta/movierecs/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or could not be loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if _, err := logging.Init(cfg); err != nil {
		log.Printf("Warning: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Este binário sempre sobe o servidor HTTP
	if err := app.RunServer(ctx, cfg); err != nil {
		slog.Error("server_failed", "error", err)
		os.Exit(1)
	}
}
