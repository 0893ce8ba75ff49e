package model

import (
	"encoding/json"
	"fmt"
)

// Role identifica o autor de uma mensagem na conversa
type Role string

const (
	RoleUser  Role = "USER"
	RoleModel Role = "MODEL"
)

// Valid informa se r é um papel conhecido
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModel:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// UnmarshalJSON aceita apenas papéis conhecidos
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	role := Role(s)
	if !role.Valid() {
		return fmt.Errorf("unknown role %q", s)
	}
	*r = role
	return nil
}

// Message representa uma mensagem renderizada na conversa
type Message struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
	HTML string `json:"html,omitempty"`
}

// ChatRequest representa a requisição para o endpoint de chat
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse representa a resposta do endpoint de chat
type ChatResponse struct {
	Response  string `json:"response"`
	HTML      string `json:"html,omitempty"`
	SessionID string `json:"session_id"`
	Error     string `json:"error,omitempty"`
}

// HistoryResponse contém tudo o que a página precisa para redesenhar a conversa
type HistoryResponse struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
}

// Tipos de evento enviados via SSE e WebSocket
const (
	EventSession = "session"
	EventChunk   = "chunk"
	EventDone    = "done"
	EventError   = "error"
)

// StreamEvent é um quadro do streaming de resposta
type StreamEvent struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}
