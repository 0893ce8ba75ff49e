// Package app monta os modos de execução: servidor HTTP e terminal
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/vitormoschetta/movierecs/internal/cli"
	"github.com/vitormoschetta/movierecs/internal/config"
	"github.com/vitormoschetta/movierecs/internal/handler"
	"github.com/vitormoschetta/movierecs/internal/llm"
	"github.com/vitormoschetta/movierecs/internal/prompt"
	"github.com/vitormoschetta/movierecs/internal/server"
	"github.com/vitormoschetta/movierecs/internal/service"
)

// RunServer inicia o servidor HTTP e bloqueia até ctx ser cancelado
func RunServer(ctx context.Context, cfg config.Config) error {
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	h := handler.NewHandler(srv)
	srv.SetupRouter(h)

	return srv.Start(ctx)
}

// RunCLI conduz a conversa no terminal
func RunCLI(ctx context.Context, cfg config.Config) error {
	instruction, err := prompt.Load(cfg.SystemInstructionFile)
	if err != nil {
		return err
	}

	factory, err := llm.NewFactory(ctx, cfg, instruction)
	if err != nil {
		return fmt.Errorf("failed to create chat backend: %w", err)
	}

	render, err := cli.MarkdownRenderer(100)
	if err != nil {
		slog.Warn("markdown_renderer_unavailable", "error", err)
		render = nil
	}

	term := cli.NewTerminal()
	defer term.Close()

	repl := cli.NewREPL(service.NewSessionManager(factory), term, os.Stdout, render)
	return repl.Run(ctx)
}

// Run escolhe o modo pelo RUN_HTTP_SERVER
func Run(ctx context.Context, cfg config.Config) error {
	if cfg.RunHTTPServer {
		return RunServer(ctx, cfg)
	}
	return RunCLI(ctx, cfg)
}
