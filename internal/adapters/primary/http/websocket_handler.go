package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	mw "github.com/lorrc/ticket-broker/internal/adapters/primary/http/middleware"
	wsAdapter "github.com/lorrc/ticket-broker/internal/adapters/primary/websocket"
	"github.com/lorrc/ticket-broker/internal/config"
)

// WebSocketHandler upgrades operators to a stream of their guild's
// lifecycle events. Browsers cannot set headers on the upgrade, so the
// token may also come from the query string.
type WebSocketHandler struct {
	hub            *wsAdapter.Hub
	tm             mw.TokenValidator
	upgrader       websocket.Upgrader
	allowedOrigins []string
	allowAll       bool
	logger         *slog.Logger
}

func NewWebSocketHandler(
	hub *wsAdapter.Hub,
	tm mw.TokenValidator,
	cfg *config.Config,
	logger *slog.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:            hub,
		tm:             tm,
		allowedOrigins: cfg.WebSocket.AllowedOrigins,
		allowAll:       cfg.IsDevelopment(),
		logger:         logger.With("handler", "websocket"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: cfg.WebSocket.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.allowAll || originAllowed(origin, h.allowedOrigins) {
		return true
	}
	h.logger.Warn("websocket origin rejected",
		"origin", origin,
		"remote_addr", r.RemoteAddr,
	)
	return false
}

// originAllowed matches the Origin host against exact hosts and
// "*.example.com" patterns. A missing Origin is a non-browser client.
func originAllowed(origin string, allowed []string) bool {
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	host := parsed.Host
	for _, pattern := range allowed {
		if pattern == "*" || pattern == origin || pattern == host {
			return true
		}
		if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
			if host == suffix || strings.HasSuffix(host, "."+suffix) {
				return true
			}
		}
	}
	return false
}

// bearerToken reads the token from the Authorization header, falling back
// to ?token=.
func bearerToken(r *http.Request) string {
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return r.URL.Query().Get("token")
}

// ServeHTTP handles GET /ws?token=&resource= . The optional resource
// parameter pre-watches one ticket channel.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := bearerToken(r)
	if token == "" {
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Missing authentication token", Code: "UNAUTHORIZED"})
		return
	}
	claims, err := h.tm.ValidateToken(token)
	if err != nil {
		h.logger.WarnContext(ctx, "websocket token rejected", "remote_addr", r.RemoteAddr, "error", err)
		WriteJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired token", Code: "UNAUTHORIZED"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.logger.WarnContext(ctx, "websocket upgrade failed", "user_id", claims.UserID, "error", err)
		return
	}

	client := wsAdapter.NewClient(h.hub, conn, claims.UserID, claims.ScopeID, h.logger)
	if resourceID := r.URL.Query().Get("resource"); resourceID != "" {
		client.Watch(resourceID)
	}
	h.hub.Register <- client

	h.logger.InfoContext(ctx, "websocket client connected",
		"user_id", claims.UserID,
		"scope_id", claims.ScopeID,
		"clients", h.hub.GetClientCount(),
	)

	go client.WritePump()
	go client.ReadPump()
}
