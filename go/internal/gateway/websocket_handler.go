package gateway

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
)

// WebSocketHandler handles WebSocket upgrade requests for game connections.
type WebSocketHandler struct {
	connectionManager *ConnectionManager
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(cm *ConnectionManager) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
	}
}

// HandleGameConnection upgrades the request and hands the socket to the
// connection manager. Game membership is negotiated afterwards over the
// socket via joinGame events, so the endpoint takes no parameters.
func (h *WebSocketHandler) HandleGameConnection(w http.ResponseWriter, r *http.Request) {
	if err := h.connectionManager.UpgradeConnection(w, r); err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleConnectionStats returns statistics about active connections.
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	totalConnections, activeGames := h.connectionManager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"total_connections":%d,"active_games":%d}`, totalConnections, activeGames)
}

// RegisterRoutes registers WebSocket routes with an HTTP mux.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleGameConnection)
	mux.HandleFunc("/ws/stats", h.HandleConnectionStats)
}
