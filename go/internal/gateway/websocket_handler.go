package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/mcdev12/rpsls/go/internal/auth"
	"github.com/rs/zerolog/log"
)

// TokenVerifier validates a player token
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// WebSocketHandler authenticates and upgrades game connections
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	tokens            TokenVerifier
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, tokens TokenVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		tokens:            tokens,
	}
}

// HandleConnection refuses unauthenticated requests before the upgrade
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token, err := auth.TokenFromRequest(r)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	claims, err := h.tokens.Verify(token)
	if err != nil {
		log.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("websocket authentication failed")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		return
	}

	// the upgrader has already written an error response on failure
	if err := h.connectionManager.UpgradeConnection(w, r, claims.Username); err != nil {
		log.Error().
			Err(err).
			Str("username", claims.Username).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections and rooms
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.Stats())
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/socket", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
