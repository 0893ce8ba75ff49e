package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vitormoschetta/movierecs/internal/config"
	"github.com/vitormoschetta/movierecs/internal/llm"
	"github.com/vitormoschetta/movierecs/internal/prompt"
	"github.com/vitormoschetta/movierecs/internal/service"
)

// Handlers são os endpoints registrados no router
type Handlers interface {
	HandleIndex(http.ResponseWriter, *http.Request)
	HandleHealth(http.ResponseWriter, *http.Request)
	HandleInfo(http.ResponseWriter, *http.Request)
	HandleTools(http.ResponseWriter, *http.Request)
	HandleCreateSession(http.ResponseWriter, *http.Request)
	HandleHistory(http.ResponseWriter, *http.Request)
	HandleDeleteSession(http.ResponseWriter, *http.Request)
	HandleChat(http.ResponseWriter, *http.Request)
	HandleChatStream(http.ResponseWriter, *http.Request)
	HandleWebSocket(http.ResponseWriter, *http.Request)
}

// Server representa o servidor HTTP com todas as dependências
type Server struct {
	Config         config.Config
	Factory        llm.Factory
	SessionManager *service.SessionManager
	Router         chi.Router

	limiter *clientLimiter
}

// NewServer cria o backend de chat configurado e o servidor
func NewServer(ctx context.Context, cfg config.Config) (*Server, error) {
	instruction, err := prompt.Load(cfg.SystemInstructionFile)
	if err != nil {
		return nil, err
	}

	factory, err := llm.NewFactory(ctx, cfg, instruction)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat backend: %w", err)
	}

	return New(cfg, factory), nil
}

// New monta o servidor sobre uma factory já criada
func New(cfg config.Config, factory llm.Factory) *Server {
	return &Server{
		Config:         cfg,
		Factory:        factory,
		SessionManager: service.NewSessionManager(factory),
		limiter:        newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, cfg.TrustProxy),
	}
}

// MCPEndpoint retorna o endpoint MCP quando o backend usa ferramentas
func (s *Server) MCPEndpoint() string {
	if f, ok := s.Factory.(interface{ MCPEndpoint() string }); ok {
		return f.MCPEndpoint()
	}
	return ""
}

// SetupRouter configura as rotas e middlewares do Chi
func (s *Server) SetupRouter(h Handlers) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(rememberConnAddr)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HandleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.Config.RequestTimeout + 30*time.Second))
		r.Get("/", h.HandleIndex)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware)

		// WebSocket fica fora do Timeout: a conexão dura a conversa inteira
		r.Get("/ws", h.HandleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.Config.RequestTimeout + 30*time.Second))

			r.Get("/", h.HandleInfo)
			r.Get("/tools", h.HandleTools)
			r.Post("/sessions", h.HandleCreateSession)
			r.Get("/sessions/{id}/messages", h.HandleHistory)
			r.Delete("/sessions/{id}", h.HandleDeleteSession)
			r.Post("/chat", h.HandleChat)
			r.Post("/chat/stream", h.HandleChatStream)
		})
	})

	s.Router = r
}

// Start inicia o servidor HTTP e bloqueia até ctx ser cancelado
func (s *Server) Start(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.Config.Addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// requisições em andamento são canceladas junto com ctx
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go s.janitor(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http_server_started",
			"addr", s.Config.Addr,
			"backend", s.Factory.Backend(),
			"model", s.Config.Model,
		)
		slog.Info("endpoints",
			"page", "GET /",
			"health", "GET /health",
			"chat", "POST /api/chat",
			"stream", "POST /api/chat/stream",
			"websocket", "GET /api/ws",
		)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok && err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("http_server_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server shutdown: %w", err)
		}
		slog.Warn("http_server_shutdown_timeout", "error", err)
		httpServer.Close()
	}
	slog.Info("http_server_stopped")
	return nil
}

// janitor descarta conversas ociosas e limitadores de clientes antigos
func (s *Server) janitor(ctx context.Context) {
	interval := s.Config.SessionIdleTimeout / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SessionManager.Prune(s.Config.SessionIdleTimeout)
			s.limiter.prune(s.Config.SessionIdleTimeout)
		}
	}
}
