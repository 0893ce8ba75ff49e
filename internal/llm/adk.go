package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/mcptoolset"
	"google.golang.org/genai"

	"github.com/vitormoschetta/movierecs/internal/config"
)

const (
	adkAppName = "movierecs"
	adkUserID  = "default-user"
)

// contentRunner executa um turno da conversa e devolve o conteúdo produzido
type contentRunner func(ctx context.Context, sessionID string, msg *genai.Content) iter.Seq2[*genai.Content, error]

// ADKFactory executa a conversa através de um agente do ADK, com ferramentas
// MCP opcionais
type ADKFactory struct {
	run            contentRunner
	sessionService session.Service
	timeout        time.Duration
	mcpEndpoint    string
}

// NewADKFactory cria o modelo Gemini, o agente e o runner do ADK
func NewADKFactory(ctx context.Context, cfg config.Config, instruction string) (*ADKFactory, error) {
	if cfg.APIKey == "" {
		slog.Warn("API_KEY environment variable not set. App may not function correctly.")
	}

	llmModel, err := gemini.NewModel(ctx, cfg.Model, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}

	toolsets, err := mcpToolsets(cfg)
	if err != nil {
		return nil, err
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        "movierecs_agent",
		Model:       llmModel,
		Description: "Multilingual movie recommendation chatbot.",
		Instruction: instruction,
		Toolsets:    toolsets,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}

	sessionService := session.InMemoryService()

	agentRunner, err := runner.New(runner.Config{
		AppName:        adkAppName,
		Agent:          a,
		SessionService: sessionService,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	run := func(ctx context.Context, sessionID string, msg *genai.Content) iter.Seq2[*genai.Content, error] {
		return func(yield func(*genai.Content, error) bool) {
			for event, err := range agentRunner.Run(ctx, adkUserID, sessionID, msg, agent.RunConfig{}) {
				if err != nil {
					yield(nil, err)
					return
				}
				if event == nil || event.Content == nil {
					continue
				}
				if !yield(event.Content, nil) {
					return
				}
			}
		}
	}

	slog.Info("adk_factory_ready", "model", cfg.Model, "mcp", cfg.MCPEndpoint != "")
	return &ADKFactory{
		run:            run,
		sessionService: sessionService,
		timeout:        cfg.RequestTimeout,
		mcpEndpoint:    cfg.MCPEndpoint,
	}, nil
}

func mcpToolsets(cfg config.Config) ([]tool.Toolset, error) {
	if cfg.MCPEndpoint == "" {
		return nil, nil
	}
	if cfg.MCPToken == "" {
		slog.Warn("MCP_TOKEN is not set - MCP requests may fail with 403")
	}

	httpClient := &http.Client{
		Transport: &AuthenticatedTransport{
			Base:  http.DefaultTransport,
			Token: cfg.MCPToken,
		},
		Timeout: 30 * time.Second,
	}

	transport := &mcp.StreamableClientTransport{
		Endpoint:   cfg.MCPEndpoint,
		HTTPClient: httpClient,
	}

	slog.Info("mcp_connecting", "endpoint", cfg.MCPEndpoint)

	mcpToolSet, err := mcptoolset.New(mcptoolset.Config{
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP tool set: %w", err)
	}
	return []tool.Toolset{mcpToolSet}, nil
}

func (f *ADKFactory) Backend() string {
	return config.BackendADK
}

// MCPEndpoint retorna o endpoint MCP configurado, ou vazio
func (f *ADKFactory) MCPEndpoint() string {
	return f.mcpEndpoint
}

// NewChat cria uma sessão no SessionService do ADK
func (f *ADKFactory) NewChat(ctx context.Context) (Chat, error) {
	sessionID := uuid.NewString()
	_, err := f.sessionService.Create(ctx, &session.CreateRequest{
		AppName:   adkAppName,
		UserID:    adkUserID,
		SessionID: sessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("create adk session: %w", err)
	}
	return &adkChat{run: f.run, sessionID: sessionID, timeout: f.timeout}, nil
}

type adkChat struct {
	run       contentRunner
	sessionID string
	timeout   time.Duration
}

func (c *adkChat) SendMessage(ctx context.Context, text string) (string, error) {
	return collect(c.SendMessageStream(ctx, text))
}

func (c *adkChat) SendMessageStream(ctx context.Context, text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		callCtx, cancel := withTimeout(ctx, c.timeout)
		defer cancel()

		msg := genai.NewContentFromText(text, genai.RoleUser)
		for content, err := range c.run(callCtx, c.sessionID, msg) {
			if err != nil {
				yield("", err)
				return
			}
			if delta := visibleText(content); delta != "" {
				if !yield(delta, nil) {
					return
				}
			}
		}
	}
}
