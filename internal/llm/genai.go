package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/vitormoschetta/movierecs/internal/config"
)

// ErrMissingAPIKey é devolvido ao criar um chat sem chave configurada
var ErrMissingAPIKey = errors.New("API_KEY environment variable not set")

// genaiChatClient é o subconjunto de *genai.Chat que usamos
type genaiChatClient interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	SendMessageStream(ctx context.Context, parts ...genai.Part) iter.Seq2[*genai.GenerateContentResponse, error]
}

type chatCreator func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (genaiChatClient, error)

var newGenAIClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GenAIFactory cria chats diretamente pelo SDK google.golang.org/genai
type GenAIFactory struct {
	create  chatCreator
	model   string
	config  *genai.GenerateContentConfig
	timeout time.Duration
	initErr error
}

// NewGenAIFactory prepara o cliente Gemini. A falta de chave não impede a
// inicialização: o erro aparece ao abrir a primeira conversa.
func NewGenAIFactory(ctx context.Context, cfg config.Config, instruction string) (*GenAIFactory, error) {
	f := &GenAIFactory{
		model:   cfg.Model,
		config:  chatConfig(instruction),
		timeout: cfg.RequestTimeout,
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		slog.Warn("API_KEY environment variable not set. App may not function correctly.")
		f.initErr = ErrMissingAPIKey
		return f, nil
	}

	client, err := newGenAIClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	f.create = func(ctx context.Context, model string, cfg *genai.GenerateContentConfig) (genaiChatClient, error) {
		return client.Chats.Create(ctx, model, cfg, nil)
	}

	slog.Debug("genai_factory_ready", "model", cfg.Model, "timeout", cfg.RequestTimeout)
	return f, nil
}

func chatConfig(instruction string) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	}
}

func (f *GenAIFactory) Backend() string {
	return config.BackendGenAI
}

// NewChat abre uma nova sessão de chat no provedor
func (f *GenAIFactory) NewChat(ctx context.Context) (Chat, error) {
	if f.initErr != nil {
		return nil, f.initErr
	}
	c, err := f.create(ctx, f.model, f.config)
	if err != nil {
		return nil, fmt.Errorf("create chat session: %w", err)
	}
	return &genaiChat{chat: c, timeout: f.timeout}, nil
}

type genaiChat struct {
	chat    genaiChatClient
	timeout time.Duration
}

func (c *genaiChat) SendMessage(ctx context.Context, text string) (string, error) {
	callCtx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.chat.SendMessage(callCtx, genai.Part{Text: text})
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

func (c *genaiChat) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		callCtx, cancel := withTimeout(ctx, c.timeout)
		defer cancel()

		for resp, err := range c.chat.SendMessageStream(callCtx, genai.Part{Text: text}) {
			if err != nil {
				yield("", err)
				return
			}
			delta := responseText(resp)
			if delta == "" {
				continue
			}
			if !yield(delta, nil) {
				return
			}
		}
	}
}
