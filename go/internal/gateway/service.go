package gateway

import (
	"context"
	"net/http"

	"github.com/mcdev12/rpsls/go/internal/room"
	"github.com/rs/zerolog/log"
)

// Service is the game gateway: websocket connections in front of the room registry
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// Stats summarises live connections and rooms
type Stats struct {
	Connections int `json:"total_connections"`
	room.Stats
}

// NewService creates a new gateway service
func NewService(config Config, registry *room.Registry, tokens TokenVerifier) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig, registry)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager, tokens),
	}
}

// Start blocks until ctx is done, then closes every connection
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting game gateway service")

	<-ctx.Done()

	log.Info().Msg("game gateway service shutting down")
	return s.Stop()
}

// Stop closes all live connections and returns once each has left its room
func (s *Service) Stop() error {
	s.connectionManager.CloseAll()
	log.Info().Msg("game gateway service stopped")
	return nil
}

// RegisterRoutes registers the WebSocket HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// Stats returns statistics about the gateway service
func (s *Service) Stats() Stats {
	return s.connectionManager.Stats()
}
