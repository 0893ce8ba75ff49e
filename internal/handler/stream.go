package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/vitormoschetta/movierecs/internal/model"
	"github.com/vitormoschetta/movierecs/internal/render"
	"github.com/vitormoschetta/movierecs/internal/service"
)

type eventWriter func(model.StreamEvent) error

// streamReply envia a mensagem e escreve os eventos session, chunk*, error? e done
func streamReply(ctx context.Context, conv *service.Conversation, text string, write eventWriter) error {
	if err := write(model.StreamEvent{Type: model.EventSession, SessionID: conv.ID}); err != nil {
		return err
	}

	msg, err := conv.SendStream(ctx, text, func(chunk string) error {
		return write(model.StreamEvent{Type: model.EventChunk, Text: chunk, SessionID: conv.ID})
	})
	if err != nil && ctx.Err() != nil {
		return err
	}
	if err != nil {
		if werr := write(model.StreamEvent{Type: model.EventError, SessionID: conv.ID, Error: errorText(conv, err)}); werr != nil {
			return werr
		}
		// erros de validação não geram mensagem na conversa
		if statusFor(err) != http.StatusBadGateway {
			return nil
		}
	}

	return write(model.StreamEvent{
		Type:      model.EventDone,
		Text:      msg.Text,
		HTML:      render.HTML(msg.Text),
		SessionID: conv.ID,
	})
}

// HandleChatStream responde com Server-Sent Events
func (h *Handler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, model.ChatResponse{Error: "Streaming unsupported"})
		return
	}

	req, ok := decodeChatRequest(w, r)
	if !ok {
		return
	}

	conv := h.server.SessionManager.GetOrCreate(r.Context(), req.SessionID)
	slog.Info("chat_stream_started", "session_id", conv.ID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	write := func(ev model.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := streamReply(r.Context(), conv, req.Message, write); err != nil {
		slog.Warn("chat_stream_aborted", "session_id", conv.ID, "error", err)
	}
}

// HandleWebSocket mantém uma conversa por conexão: cada quadro recebido é um
// ChatRequest e a resposta volta como StreamEvents
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		slog.Warn("websocket_accept_failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	write := func(ev model.StreamEvent) error {
		data, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		return conn.Write(ctx, websocket.MessageText, data)
	}

	var sessionID string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				slog.Warn("websocket_read_failed", "session_id", sessionID, "error", err)
			}
			return
		}

		var req model.ChatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			if werr := write(model.StreamEvent{Type: model.EventError, Error: "Invalid JSON format"}); werr != nil {
				return
			}
			continue
		}
		if req.SessionID == "" {
			req.SessionID = sessionID
		}
		if req.Message == "" {
			if werr := write(model.StreamEvent{Type: model.EventError, SessionID: req.SessionID, Error: "Message is required"}); werr != nil {
				return
			}
			continue
		}

		conv := h.server.SessionManager.GetOrCreate(ctx, req.SessionID)
		sessionID = conv.ID

		if err := streamReply(ctx, conv, req.Message, write); err != nil {
			slog.Warn("websocket_stream_aborted", "session_id", sessionID, "error", err)
			return
		}
	}
}
