package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitormoschetta/movierecs/internal/config"
	"github.com/vitormoschetta/movierecs/internal/llm/llmtest"
)

func TestNewServerWithoutAPIKey(t *testing.T) {
	cfg := config.Default()
	cfg.APIKey = ""

	srv, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, config.BackendGenAI, srv.Factory.Backend())
	assert.Empty(t, srv.MCPEndpoint())

	conv := srv.SessionManager.GetOrCreate(context.Background(), "")
	assert.Contains(t, conv.Snapshot().Error, "API_KEY")
}

func TestNewServerInvalidInstructionFile(t *testing.T) {
	cfg := config.Default()
	cfg.SystemInstructionFile = filepath.Join(t.TempDir(), "missing.md")

	_, err := NewServer(context.Background(), cfg)
	assert.ErrorContains(t, err, "read system instruction")
}

func TestNewServerCustomInstruction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "instruction.md")
	require.NoError(t, os.WriteFile(path, []byte("Only recommend silent films."), 0o600))

	cfg := config.Default()
	cfg.SystemInstructionFile = path

	_, err := NewServer(context.Background(), cfg)
	require.NoError(t, err)
}

func TestStartAndShutdown(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:0"

	srv := New(cfg, &llmtest.Factory{Chat: &llmtest.Chat{}})
	srv.Router = chi.NewRouter()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStartReportsListenError(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = "127.0.0.1:-1"

	srv := New(cfg, &llmtest.Factory{Chat: &llmtest.Chat{}})
	srv.Router = chi.NewRouter()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := srv.Start(ctx)
	assert.ErrorContains(t, err, "server failed")
}

func TestClientLimiter(t *testing.T) {
	l := newClientLimiter(0.001, 2, false)
	assert.True(t, l.allow("a"))
	assert.True(t, l.allow("a"))
	assert.False(t, l.allow("a"))
	assert.True(t, l.allow("b"))

	l.clients["a"].lastSeen = time.Now().Add(-time.Hour)
	l.prune(time.Minute)
	_, ok := l.clients["a"]
	assert.False(t, ok)
	_, ok = l.clients["b"]
	assert.True(t, ok)
}

func TestClientLimiterDisabled(t *testing.T) {
	l := newClientLimiter(0, 0, false)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := l.Middleware(next)

	for range 10 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat", nil))
		assert.Equal(t, http.StatusTeapot, rec.Code)
	}
}

func TestClientKey(t *testing.T) {
	l := newClientLimiter(1, 1, false)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.7:5555"
	assert.Equal(t, "10.0.0.7", l.clientKey(r))

	r.RemoteAddr = "unix"
	assert.Equal(t, "unix", l.clientKey(r))
}

func TestRateLimitIgnoresForwardedHeaders(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1

	srv := New(cfg, &llmtest.Factory{Chat: &llmtest.Chat{}})
	srv.SetupRouter(stubHandlers{})

	codes := make([]int, 0, 3)
	for _, ip := range []string{"1.1.1.1", "2.2.2.2", "3.3.3.3"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests, http.StatusTooManyRequests}, codes)
}

func TestRateLimitTrustsProxyWhenConfigured(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimitRPS = 0.001
	cfg.RateLimitBurst = 1
	cfg.TrustProxy = true

	srv := New(cfg, &llmtest.Factory{Chat: &llmtest.Chat{}})
	srv.SetupRouter(stubHandlers{})

	for _, ip := range []string{"1.1.1.1", "2.2.2.2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/tools", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		srv.Router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, ip)
	}
}

func TestStartCancelsInFlightRequests(t *testing.T) {
	cfg := config.Default()
	cfg.Addr = freeAddr(t)

	started := make(chan struct{})
	canceled := make(chan struct{})
	srv := New(cfg, &llmtest.Factory{Chat: &llmtest.Chat{}})
	router := chi.NewRouter()
	router.Get("/slow", func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-r.Context().Done()
		close(canceled)
	})
	srv.Router = router

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	go func() {
		for range 100 {
			resp, err := http.Get("http://" + cfg.Addr + "/slow")
			if err == nil {
				resp.Body.Close()
				return
			}
			time.Sleep(20 * time.Millisecond)
		}
	}()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("request never reached the handler")
	}
	cancel()

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("handler context was not canceled")
	}
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(6 * time.Second):
		t.Fatal("server did not stop")
	}
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

type stubHandlers struct{}

func stubOK(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

func (stubHandlers) HandleIndex(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleInfo(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleTools(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleCreateSession(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleDeleteSession(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleChat(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleChatStream(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
func (stubHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) { stubOK(w, r) }
