package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vitormoschetta/movierecs/internal/model"
	"github.com/vitormoschetta/movierecs/internal/render"
	"github.com/vitormoschetta/movierecs/internal/server"
	"github.com/vitormoschetta/movierecs/internal/service"
	"github.com/vitormoschetta/movierecs/internal/web"
)

// Handler contém as dependências necessárias para os handlers HTTP
type Handler struct {
	server *server.Server
}

// NewHandler cria uma nova instância do Handler
func NewHandler(srv *server.Server) *Handler {
	return &Handler{
		server: srv,
	}
}

var _ server.Handlers = (*Handler)(nil)

// HandleIndex serve a página do chat
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	page := web.DefaultPage()
	page.SessionID = r.URL.Query().Get("session_id")
	if err := web.Render(w, page); err != nil {
		slog.Error("render_page_failed", "error", err)
	}
}

// HandleHealth retorna o status de saúde do servidor
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// HandleInfo retorna informações sobre o serviço
func (h *Handler) HandleInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "MovieRecs AI",
		"backend": h.server.Factory.Backend(),
		"model":   h.server.Config.Model,
		"endpoints": map[string]any{
			"page":    map[string]string{"method": "GET", "path": "/"},
			"health":  map[string]string{"method": "GET", "path": "/health"},
			"session": map[string]string{"method": "POST", "path": "/api/sessions"},
			"history": map[string]string{"method": "GET", "path": "/api/sessions/{id}/messages"},
			"reset":   map[string]string{"method": "DELETE", "path": "/api/sessions/{id}"},
			"chat": map[string]any{
				"method": "POST",
				"path":   "/api/chat",
				"example": map[string]string{
					"message":    "1",
					"session_id": "optional-session-id",
				},
			},
			"stream":    map[string]string{"method": "POST", "path": "/api/chat/stream"},
			"websocket": map[string]string{"method": "GET", "path": "/api/ws"},
		},
	})
}

// HandleTools informa o backend e as ferramentas MCP disponíveis
func (h *Handler) HandleTools(w http.ResponseWriter, r *http.Request) {
	endpoint := h.server.MCPEndpoint()
	resp := map[string]any{
		"backend":      h.server.Factory.Backend(),
		"mcp_enabled":  endpoint != "",
		"mcp_endpoint": endpoint,
	}
	if endpoint != "" {
		resp["note"] = "MCP tools are available to the agent during the conversation"
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreateSession abre (ou reabre) uma conversa e devolve o histórico
func (h *Handler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	// corpo vazio é aceito: cria uma conversa nova
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("invalid_json", "error", err)
		writeJSON(w, http.StatusBadRequest, model.ChatResponse{Error: "Invalid JSON format"})
		return
	}

	conv := h.server.SessionManager.GetOrCreate(r.Context(), req.SessionID)
	writeJSON(w, http.StatusOK, history(conv))
}

// HandleHistory devolve as mensagens de uma conversa
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	conv, ok := h.server.SessionManager.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, model.ChatResponse{Error: service.ErrNotFound.Error()})
		return
	}
	writeJSON(w, http.StatusOK, history(conv))
}

// HandleDeleteSession descarta a conversa
func (h *Handler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := h.server.SessionManager.Delete(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, model.ChatResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleChat processa uma mensagem e devolve a resposta completa
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	conv := h.server.SessionManager.GetOrCreate(r.Context(), req.SessionID)
	slog.Info("chat_message_received", "session_id", conv.ID, "length", len(req.Message))

	msg, err := conv.Send(r.Context(), req.Message)
	if err != nil {
		status := statusFor(err)
		resp := model.ChatResponse{SessionID: conv.ID, Error: errorText(conv, err)}
		if status == http.StatusBadGateway {
			resp.Response = msg.Text
			resp.HTML = render.HTML(msg.Text)
		}
		writeJSON(w, status, resp)
		return
	}

	slog.Info("chat_reply_sent", "session_id", conv.ID, "length", len(msg.Text))
	writeJSON(w, http.StatusOK, model.ChatResponse{
		Response:  msg.Text,
		HTML:      render.HTML(msg.Text),
		SessionID: conv.ID,
	})
}

func decodeChatRequest(w http.ResponseWriter, r *http.Request) (model.ChatRequest, bool) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("invalid_json", "error", err)
		writeJSON(w, http.StatusBadRequest, model.ChatResponse{Error: "Invalid JSON format"})
		return req, false
	}
	defer r.Body.Close()

	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, model.ChatResponse{
			SessionID: req.SessionID,
			Error:     "Message is required",
		})
		return req, false
	}
	return req, true
}

// statusFor traduz os erros da conversa em códigos HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoChat):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

func errorText(conv *service.Conversation, err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return "Message is required"
	case errors.Is(err, service.ErrNoChat):
		if snap := conv.Snapshot(); snap.Error != "" {
			return snap.Error
		}
		return err.Error()
	case errors.Is(err, service.ErrBusy):
		return err.Error()
	default:
		return conv.Snapshot().Error
	}
}

func history(conv *service.Conversation) model.HistoryResponse {
	snap := conv.Snapshot()
	msgs := make([]model.Message, len(snap.Messages))
	for i, m := range snap.Messages {
		m.HTML = render.HTML(m.Text)
		msgs[i] = m
	}
	return model.HistoryResponse{
		SessionID: conv.ID,
		Messages:  msgs,
		Loading:   snap.Loading,
		Error:     snap.Error,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write_json_failed", "error", err)
	}
}
