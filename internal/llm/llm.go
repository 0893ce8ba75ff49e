// Package llm encapsula a sessão de chat com o modelo hospedado. Cada
// backend entrega um Chat já configurado com a instrução de sistema; o
// histórico da conversa fica no provedor.
package llm

import (
	"context"
	"fmt"
	"iter"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/vitormoschetta/movierecs/internal/config"
)

// Chat é uma sessão de conversa com estado mantido pelo provedor
type Chat interface {
	SendMessage(ctx context.Context, text string) (string, error)
	SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error]
}

// Factory cria novas sessões de chat
type Factory interface {
	NewChat(ctx context.Context) (Chat, error)
	Backend() string
}

// NewFactory escolhe o backend de acordo com a configuração
func NewFactory(ctx context.Context, cfg config.Config, instruction string) (Factory, error) {
	switch cfg.Backend {
	case config.BackendGenAI:
		return NewGenAIFactory(ctx, cfg, instruction)
	case config.BackendADK:
		return NewADKFactory(ctx, cfg, instruction)
	default:
		return nil, fmt.Errorf("unknown chat backend %q", cfg.Backend)
	}
}

// collect consome um stream e devolve o texto completo
func collect(seq iter.Seq2[string, error]) (string, error) {
	var sb strings.Builder
	for chunk, err := range seq {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	// o prazo do provedor vale mesmo quando a rota já impõe um prazo maior
	return context.WithTimeout(ctx, timeout)
}

// visibleText concatena as partes de texto, ignorando pensamentos do modelo
func visibleText(content *genai.Content) string {
	if content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return ""
	}
	return visibleText(resp.Candidates[0].Content)
}
