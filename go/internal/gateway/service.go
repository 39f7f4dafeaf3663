package gateway

import (
	"context"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/jkram11/bombsquad/go/internal/game"
)

// Service wires the connection manager, router and game registry into one
// gateway that owns the whole real-time surface.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	router            *Router
	registry          *game.Registry
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
}

// DefaultConfig returns default configuration for the gateway.
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
	}
}

// NewService creates the gateway service. The clock drives every session
// countdown; tests pass a fake.
func NewService(config Config, clock clockwork.Clock, seed int64) *Service {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	registry := game.NewRegistry(clock, connectionManager, seed)
	router := NewRouter(registry, connectionManager)
	connectionManager.SetHandler(router)

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		router:            router,
		registry:          registry,
	}
}

// Start runs the broadcast loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	log.Info().Msg("starting game gateway service")
	s.connectionManager.Start(ctx)
	log.Info().Msg("game gateway service stopped")
}

// RegisterRoutes registers the WebSocket HTTP routes.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("game gateway routes registered")
}

// Registry exposes the session registry.
func (s *Service) Registry() *game.Registry {
	return s.registry
}
