package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/vitormoschetta/movierecs/internal/llm"
	"github.com/vitormoschetta/movierecs/internal/model"
	"github.com/vitormoschetta/movierecs/internal/prompt"
)

var (
	ErrEmptyMessage = errors.New("message is required")
	ErrNoChat       = errors.New("chat session is not initialized")
	ErrBusy         = errors.New("a message is already being processed")
	ErrNotFound     = errors.New("session not found")
)

const initFailedMessage = "Failed to initialize chat session."

// Conversation representa uma página de chat: a sessão no provedor e a cópia
// local das mensagens que a interface redesenha
type Conversation struct {
	ID string

	chat llm.Chat

	// inflight garante uma única requisição por vez, como o input desabilitado
	inflight sync.Mutex

	mu       sync.RWMutex
	messages []model.Message
	loading  bool
	errText  string
	lastUsed time.Time
}

func newConversation(id string, chat llm.Chat, initErr error) *Conversation {
	c := &Conversation{
		ID:       id,
		chat:     chat,
		messages: []model.Message{{Role: model.RoleModel, Text: prompt.Welcome}},
		lastUsed: time.Now(),
	}
	if initErr != nil {
		c.errText = initErr.Error()
		if c.errText == "" {
			c.errText = initFailedMessage
		}
	}
	return c
}

// Snapshot é uma cópia do estado visível da conversa
type Snapshot struct {
	Messages []model.Message
	Loading  bool
	Error    string
}

func (c *Conversation) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	msgs := make([]model.Message, len(c.messages))
	copy(msgs, c.messages)
	return Snapshot{Messages: msgs, Loading: c.loading, Error: c.errText}
}

// Send envia a entrada do usuário e espera a resposta completa
func (c *Conversation) Send(ctx context.Context, input string) (model.Message, error) {
	return c.send(ctx, input, func(ctx context.Context, text string) (string, error) {
		return c.chat.SendMessage(ctx, text)
	})
}

// SendStream envia a entrada do usuário e repassa cada trecho da resposta a
// onChunk. Um erro de onChunk interrompe o streaming.
func (c *Conversation) SendStream(ctx context.Context, input string, onChunk func(string) error) (model.Message, error) {
	return c.send(ctx, input, func(ctx context.Context, text string) (string, error) {
		var sb strings.Builder
		for chunk, err := range c.chat.SendMessageStream(ctx, text) {
			if err != nil {
				return sb.String(), err
			}
			sb.WriteString(chunk)
			if onChunk != nil {
				if err := onChunk(chunk); err != nil {
					return sb.String(), err
				}
			}
		}
		return sb.String(), nil
	})
}

type sendFunc func(ctx context.Context, text string) (string, error)

func (c *Conversation) send(ctx context.Context, input string, call sendFunc) (model.Message, error) {
	text := strings.TrimSpace(input)
	if text == "" {
		return model.Message{}, ErrEmptyMessage
	}
	if c.chat == nil {
		return model.Message{}, ErrNoChat
	}
	if !c.inflight.TryLock() {
		return model.Message{}, ErrBusy
	}
	defer c.inflight.Unlock()

	c.mu.Lock()
	c.messages = append(c.messages, model.Message{Role: model.RoleUser, Text: text})
	c.loading = true
	c.errText = ""
	c.lastUsed = time.Now()
	c.mu.Unlock()

	reply, err := call(ctx, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = false
	c.lastUsed = time.Now()

	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		// cliente desistiu: a mensagem volta a não existir na conversa
		slog.Info("chat_send_canceled", "session_id", c.ID)
		c.messages = c.messages[:len(c.messages)-1]
		return model.Message{}, fmt.Errorf("send message: %w", err)
	}
	if err != nil {
		slog.Error("chat_send_failed", "session_id", c.ID, "error", err)
		c.errText = fmt.Sprintf("Sorry, something went wrong. %s", err.Error())
		msg := model.Message{
			Role: model.RoleModel,
			Text: fmt.Sprintf("I seem to have encountered an error. Please try again. \n\n%s", err.Error()),
		}
		c.messages = append(c.messages, msg)
		return msg, fmt.Errorf("send message: %w", err)
	}

	msg := model.Message{Role: model.RoleModel, Text: reply}
	c.messages = append(c.messages, msg)
	return msg, nil
}

func (c *Conversation) idleSince() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUsed
}

func (c *Conversation) busy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loading
}
