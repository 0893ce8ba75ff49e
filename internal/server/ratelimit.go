package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter aplica um token bucket por endereço do cliente. Sem
// trustProxy a chave é o endereço da conexão, não o dos cabeçalhos.
type clientLimiter struct {
	rps        rate.Limit
	burst      int
	trustProxy bool
	mu         sync.Mutex
	clients    map[string]*clientEntry
}

func newClientLimiter(rps float64, burst int, trustProxy bool) *clientLimiter {
	return &clientLimiter{
		rps:        rate.Limit(rps),
		burst:      burst,
		trustProxy: trustProxy,
		clients:    make(map[string]*clientEntry),
	}
}

type connAddrKey struct{}

// rememberConnAddr guarda o endereço da conexão antes do RealIP reescrever
// r.RemoteAddr
func rememberConnAddr(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), connAddrKey{}, r.RemoteAddr)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (l *clientLimiter) enabled() bool {
	return l.rps > 0 && l.burst > 0
}

func (l *clientLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.clients[key]
	if !ok {
		e = &clientEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.clients[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter.Allow()
}

func (l *clientLimiter) prune(maxIdle time.Duration) {
	cutoff := time.Now().Add(-maxIdle)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.clients {
		if e.lastSeen.Before(cutoff) {
			delete(l.clients, key)
		}
	}
}

// Middleware responde 429 quando o cliente excede o limite
func (l *clientLimiter) Middleware(next http.Handler) http.Handler {
	if !l.enabled() {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.clientKey(r)
		if !l.allow(key) {
			slog.Warn("rate_limited", "client", key, "path", r.URL.Path)
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (l *clientLimiter) clientKey(r *http.Request) string {
	addr := r.RemoteAddr
	if !l.trustProxy {
		if conn, ok := r.Context().Value(connAddrKey{}).(string); ok {
			addr = conn
		}
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
