package llm

import (
	"log/slog"
	"net/http"
)

// AuthenticatedTransport adiciona o token de autenticação às requisições MCP
type AuthenticatedTransport struct {
	Base  http.RoundTripper
	Token string
}

func (t *AuthenticatedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clonar a requisição para não modificar a original
	reqCopy := req.Clone(req.Context())

	if t.Token != "" {
		reqCopy.Header.Set("Authorization", "Bearer "+t.Token)
	}

	slog.Debug("mcp_request", "method", reqCopy.Method, "url", reqCopy.URL.String(), "authenticated", t.Token != "")

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(reqCopy)
}
