// Package server exposes the gateway over HTTP: a server-sent events
// endpoint, a websocket endpoint, provider discovery and a health check.
package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bazelment/agentgate/gateway"
	"github.com/bazelment/agentgate/provider"
)

// DefaultMaxRequestBytes bounds a chat request body.
const DefaultMaxRequestBytes = 1 << 20

// Config configures a Server.
type Config struct {
	Gateway *gateway.Gateway
	Logger  *slog.Logger
	// AuthToken, when set, is required as a bearer token on every route
	// except /healthz.
	AuthToken       string
	MaxRequestBytes int64
	// CheckOrigin overrides the websocket origin check. Nil allows same
	// origin requests only.
	CheckOrigin func(r *http.Request) bool
}

// Server serves chat turns.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.MaxRequestBytes <= 0 {
		cfg.MaxRequestBytes = DefaultMaxRequestBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 32 << 10,
			CheckOrigin:     cfg.CheckOrigin,
		},
	}
}

// Handler returns the HTTP handler with auth and request logging applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/chat/ws", s.handleChatWS)
	mux.HandleFunc("GET /api/providers", s.handleProviders)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	var h http.Handler = mux
	h = authMiddleware(s.cfg.AuthToken)(h)
	h = requestLoggingMiddleware(s.logger)(h)
	return h
}

type providerInfo struct {
	Name         string                `json:"name"`
	DisplayName  string                `json:"display_name"`
	Capabilities provider.Capabilities `json:"capabilities"`
	Models       []provider.Model      `json:"models"`
	Available    bool                  `json:"available"`
	Default      bool                  `json:"default"`
}

type providersResponse struct {
	Providers []providerInfo `json:"providers"`
}

func (s *Server) handleProviders(w http.ResponseWriter, _ *http.Request) {
	reg := s.cfg.Gateway.Registry()
	var defaultName string
	if p := reg.Default(); p != nil {
		defaultName = p.Descriptor().Name
	}
	resp := providersResponse{Providers: []providerInfo{}}
	for _, p := range reg.List() {
		d := p.Descriptor()
		models := d.Models
		if models == nil {
			models = []provider.Model{}
		}
		resp.Providers = append(resp.Providers, providerInfo{
			Name:         d.Name,
			DisplayName:  d.DisplayName,
			Capabilities: d.Capabilities,
			Models:       models,
			Available:    p.Available(),
			Default:      d.Name == defaultName,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
