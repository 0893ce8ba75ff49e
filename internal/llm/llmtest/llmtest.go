// Package llmtest fornece chats falsos para testes
package llmtest

import (
	"context"
	"iter"
	"strings"
	"sync"

	"github.com/vitormoschetta/movierecs/internal/llm"
)

// Chat responde com Reply, dividido em Chunks quando informado. Block, se não
// for nil, segura a resposta até ser fechado.
type Chat struct {
	Reply  string
	Chunks []string
	Err    error
	Block  chan struct{}

	mu       sync.Mutex
	received []string
}

func (c *Chat) SendMessage(ctx context.Context, text string) (string, error) {
	var sb strings.Builder
	for chunk, err := range c.SendMessageStream(ctx, text) {
		if err != nil {
			return sb.String(), err
		}
		sb.WriteString(chunk)
	}
	return sb.String(), nil
}

func (c *Chat) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		c.mu.Lock()
		c.received = append(c.received, text)
		c.mu.Unlock()

		if c.Block != nil {
			select {
			case <-c.Block:
			case <-ctx.Done():
				yield("", ctx.Err())
				return
			}
		}

		chunks := c.Chunks
		if len(chunks) == 0 && c.Reply != "" {
			chunks = []string{c.Reply}
		}
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
		if c.Err != nil {
			yield("", c.Err)
		}
	}
}

// Received lista as mensagens recebidas, em ordem
func (c *Chat) Received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.received))
	copy(out, c.received)
	return out
}

// Factory devolve sempre o mesmo Chat, ou Err
type Factory struct {
	Chat *Chat
	Err  error

	mu    sync.Mutex
	calls int
}

func (f *Factory) NewChat(context.Context) (llm.Chat, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Chat, nil
}

func (f *Factory) Backend() string {
	return "fake"
}

// Calls informa quantos chats foram criados
func (f *Factory) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
