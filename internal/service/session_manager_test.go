package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitormoschetta/movierecs/internal/llm/llmtest"
	"github.com/vitormoschetta/movierecs/internal/model"
	"github.com/vitormoschetta/movierecs/internal/prompt"
)

func TestGetOrCreateStartsWithWelcome(t *testing.T) {
	sm := NewSessionManager(&llmtest.Factory{Chat: &llmtest.Chat{}})

	c := sm.GetOrCreate(context.Background(), "")
	require.NotEmpty(t, c.ID)

	snap := c.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, model.RoleModel, snap.Messages[0].Role)
	assert.Equal(t, prompt.Welcome, snap.Messages[0].Text)
	assert.False(t, snap.Loading)
	assert.Empty(t, snap.Error)
}

func TestGetOrCreateReusesSession(t *testing.T) {
	factory := &llmtest.Factory{Chat: &llmtest.Chat{}}
	sm := NewSessionManager(factory)

	first := sm.GetOrCreate(context.Background(), "abc")
	second := sm.GetOrCreate(context.Background(), "abc")

	assert.Same(t, first, second)
	assert.Equal(t, 1, factory.Calls())
	assert.Equal(t, 1, sm.Len())
	assert.Equal(t, "fake", sm.Backend())
}

func TestGetOrCreateGeneratesDistinctIDs(t *testing.T) {
	sm := NewSessionManager(&llmtest.Factory{Chat: &llmtest.Chat{}})

	a := sm.GetOrCreate(context.Background(), "")
	b := sm.GetOrCreate(context.Background(), "")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, sm.Len())
}

func TestGetOrCreateKeepsFactoryError(t *testing.T) {
	sm := NewSessionManager(&llmtest.Factory{Err: errors.New("API_KEY environment variable not set")})

	c := sm.GetOrCreate(context.Background(), "s")
	assert.Equal(t, "API_KEY environment variable not set", c.Snapshot().Error)

	_, err := c.Send(context.Background(), "1")
	assert.ErrorIs(t, err, ErrNoChat)
	assert.Len(t, c.Snapshot().Messages, 1)
}

func TestDelete(t *testing.T) {
	factory := &llmtest.Factory{Chat: &llmtest.Chat{}}
	sm := NewSessionManager(factory)
	sm.GetOrCreate(context.Background(), "abc")

	require.NoError(t, sm.Delete("abc"))
	_, ok := sm.Get("abc")
	assert.False(t, ok)
	assert.ErrorIs(t, sm.Delete("abc"), ErrNotFound)

	sm.GetOrCreate(context.Background(), "abc")
	assert.Equal(t, 2, factory.Calls())
}

func TestPrune(t *testing.T) {
	sm := NewSessionManager(&llmtest.Factory{Chat: &llmtest.Chat{}})
	old := sm.GetOrCreate(context.Background(), "old")
	sm.GetOrCreate(context.Background(), "fresh")

	old.mu.Lock()
	old.lastUsed = time.Now().Add(-2 * time.Hour)
	old.mu.Unlock()

	assert.Equal(t, 1, sm.Prune(time.Hour))
	_, ok := sm.Get("old")
	assert.False(t, ok)
	_, ok = sm.Get("fresh")
	assert.True(t, ok)
}

func TestPruneKeepsBusyConversations(t *testing.T) {
	sm := NewSessionManager(&llmtest.Factory{Chat: &llmtest.Chat{}})
	c := sm.GetOrCreate(context.Background(), "busy")

	c.mu.Lock()
	c.lastUsed = time.Now().Add(-2 * time.Hour)
	c.loading = true
	c.mu.Unlock()

	assert.Zero(t, sm.Prune(time.Hour))
	assert.Equal(t, 1, sm.Len())
}
