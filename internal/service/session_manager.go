package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vitormoschetta/movierecs/internal/llm"
)

// SessionManager gerencia as conversas abertas pela página e pelo terminal
type SessionManager struct {
	factory  llm.Factory
	sessions map[string]*Conversation
	mu       sync.RWMutex
}

func NewSessionManager(factory llm.Factory) *SessionManager {
	return &SessionManager{
		factory:  factory,
		sessions: make(map[string]*Conversation),
	}
}

// GetOrCreate obtém uma conversa existente ou cria uma nova. Uma falha ao
// abrir o chat no provedor não é fatal: a conversa guarda o erro e recusa envios.
func (sm *SessionManager) GetOrCreate(ctx context.Context, sessionID string) *Conversation {
	if sessionID != "" {
		if c, ok := sm.Get(sessionID); ok {
			return c
		}
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sessionID == "" {
		sessionID = generateSessionID()
	}
	if c, exists := sm.sessions[sessionID]; exists {
		return c
	}

	chat, err := sm.factory.NewChat(ctx)
	if err != nil {
		slog.Error("chat_session_init_failed", "session_id", sessionID, "error", err)
		chat = nil
	}

	c := newConversation(sessionID, chat, err)
	sm.sessions[sessionID] = c
	slog.Info("chat_session_created", "session_id", sessionID, "backend", sm.factory.Backend())
	return c
}

// Get retorna a conversa com o id informado
func (sm *SessionManager) Get(sessionID string) (*Conversation, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	c, ok := sm.sessions[sessionID]
	return c, ok
}

// Delete descarta a conversa; a próxima mensagem com o mesmo id começa do zero
func (sm *SessionManager) Delete(sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if _, ok := sm.sessions[sessionID]; !ok {
		return ErrNotFound
	}
	delete(sm.sessions, sessionID)
	slog.Info("chat_session_deleted", "session_id", sessionID)
	return nil
}

func (sm *SessionManager) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Prune remove conversas ociosas há mais de maxIdle. Conversas com requisição
// em andamento são mantidas.
func (sm *SessionManager) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for id, c := range sm.sessions {
		if c.busy() || c.idleSince().After(cutoff) {
			continue
		}
		delete(sm.sessions, id)
		removed++
	}
	if removed > 0 {
		slog.Info("chat_sessions_pruned", "removed", removed, "remaining", len(sm.sessions))
	}
	return removed
}

// Backend informa qual backend cria os chats
func (sm *SessionManager) Backend() string {
	return sm.factory.Backend()
}

func generateSessionID() string {
	return uuid.NewString()
}
