// Package cli implementa a conversa no terminal, com o mesmo fluxo da página
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/vitormoschetta/movierecs/internal/service"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#a855f7"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#60a5fa"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ca3af"))
	loadingStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#6b7280"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f87171"))
)

const helpText = `Commands:
  /reset   start a new conversation
  /help    show this help
  /quit    exit`

// LineReader lê uma linha do usuário. *liner.State satisfaz a interface.
type LineReader interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// REPL conduz uma conversa no terminal
type REPL struct {
	sessions *service.SessionManager
	in       LineReader
	out      io.Writer
	render   func(string) string
	conv     *service.Conversation
}

// NewREPL cria o REPL. render converte markdown para o terminal; nil mantém
// o texto original.
func NewREPL(sessions *service.SessionManager, in LineReader, out io.Writer, render func(string) string) *REPL {
	if render == nil {
		render = func(s string) string { return s }
	}
	return &REPL{sessions: sessions, in: in, out: out, render: render}
}

// Run imprime as boas-vindas e lê mensagens até /quit, Ctrl-D ou Ctrl-C
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, titleStyle.Render("MovieRecs AI"))
	r.start(ctx)

	for {
		if ctx.Err() != nil {
			return nil
		}

		line, err := r.in.Prompt("> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(r.out)
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		r.in.AppendHistory(input)

		if !r.handle(ctx, input) {
			return nil
		}
	}
}

// start abre uma conversa nova e mostra a mensagem inicial
func (r *REPL) start(ctx context.Context) {
	r.conv = r.sessions.GetOrCreate(ctx, "")
	snap := r.conv.Snapshot()
	for _, m := range snap.Messages {
		fmt.Fprintln(r.out, r.render(m.Text))
	}
	if snap.Error != "" {
		fmt.Fprintln(r.out, errorStyle.Render(snap.Error))
	}
}

// handle processa uma linha; false encerra o REPL
func (r *REPL) handle(ctx context.Context, input string) bool {
	switch strings.ToLower(input) {
	case "/quit", "/exit":
		return false
	case "/help":
		fmt.Fprintln(r.out, helpText)
		return true
	case "/reset":
		_ = r.sessions.Delete(r.conv.ID)
		r.start(ctx)
		return true
	}

	fmt.Fprintln(r.out, userStyle.Render("you: "+input))
	fmt.Fprintln(r.out, loadingStyle.Render("..."))

	msg, err := r.conv.Send(ctx, input)
	if err != nil {
		snap := r.conv.Snapshot()
		if snap.Error != "" {
			fmt.Fprintln(r.out, errorStyle.Render(snap.Error))
		} else {
			fmt.Fprintln(r.out, errorStyle.Render(err.Error()))
		}
		if msg.Text == "" {
			return true
		}
	}
	fmt.Fprintln(r.out, r.render(msg.Text))
	return true
}

// MarkdownRenderer cria o renderizador glamour usado no terminal
func MarkdownRenderer(width int) (func(string) string, error) {
	if width <= 0 {
		width = 100
	}
	tr, err := glamour.NewTermRenderer(
		glamour.WithStyles(glamourstyles.DarkStyleConfig),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return func(s string) string {
		out, err := tr.Render(s)
		if err != nil {
			return s
		}
		return strings.TrimRight(out, "\n")
	}, nil
}

// Terminal é o leitor de linhas com histórico persistido em disco
type Terminal struct {
	*liner.State
	historyFile string
}

// NewTerminal abre o terminal e carrega o histórico de entradas
func NewTerminal() *Terminal {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	t := &Terminal{State: line, historyFile: historyPath()}
	if f, err := os.Open(t.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return t
}

// Prompt destaca o prompt com a cor da interface
func (t *Terminal) Prompt(prompt string) (string, error) {
	return t.State.Prompt(promptStyle.Render(prompt))
}

// Close salva o histórico e restaura o terminal
func (t *Terminal) Close() error {
	if f, err := os.OpenFile(t.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600); err == nil {
		t.WriteHistory(f)
		f.Close()
	}
	return t.State.Close()
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), ".movierecs_history")
	}
	return filepath.Join(home, ".movierecs_history")
}
