package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
)

// LoginRequest is the body of POST /login
type LoginRequest struct {
	Username string `json:"username"`
}

// LoginResponse carries the issued token
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// Handler serves the login endpoint
type Handler struct {
	tokens *TokenManager
}

// NewHandler creates a login handler
func NewHandler(tokens *TokenManager) *Handler {
	return &Handler{tokens: tokens}
}

// HandleLogin handles POST /login
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.tokens.Issue(req.Username)
	if err != nil {
		if errors.Is(err, ErrMissingUsername) {
			writeError(w, http.StatusBadRequest, "Username is required")
			return
		}
		log.Error().Err(err).Msg("failed to sign token")
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	log.Info().Str("username", req.Username).Msg("token issued")

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresIn: int64(h.tokens.TTL().Seconds()),
	})
}

// RegisterRoutes registers the login route
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/login", h.HandleLogin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
