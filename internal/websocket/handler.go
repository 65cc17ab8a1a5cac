package websocket

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"linka/internal/infrastructure"
)

// Handler upgrades HTTP requests and attaches the connection to the hub
type Handler struct {
	hub            *Hub
	upgrader       websocket.Upgrader
	allowedOrigins map[string]bool
	allowAll       bool
	clientCfg      ClientConfig
	logger         *slog.Logger
}

// HandlerConfig configures the upgrade handler
type HandlerConfig struct {
	// AllowedOrigins lists origins allowed to connect; "*" allows any.
	// Requests without an Origin header are always allowed.
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	Client          ClientConfig
}

// NewHandler creates the /ws handler
func NewHandler(hub *Hub, cfg HandlerConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	h := &Handler{
		hub:            hub,
		allowedOrigins: make(map[string]bool, len(cfg.AllowedOrigins)),
		clientCfg:      cfg.Client,
		logger:         logger.With(slog.String("component", "websocket.handler")),
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin == "*" {
			h.allowAll = true
		}
		h.allowedOrigins[origin] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll || h.allowedOrigins[origin] {
		return true
	}
	h.logger.WarnContext(r.Context(), "WebSocket origin not allowed",
		slog.String("origin", origin))
	return false
}

// ServeHTTP implements http.Handler
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := infrastructure.EnsureTraceID(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		h.logger.WarnContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()),
			slog.String("remote_addr", r.RemoteAddr))
		return
	}

	client := NewClient(h.hub, NewConnection(conn), infrastructure.GetTraceID(ctx), h.clientCfg, h.logger)
	client.Serve()

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("client_id", client.ID()),
		slog.String("remote_addr", r.RemoteAddr))
}
